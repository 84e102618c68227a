package app

import "tutorchat/internal/model"

const (
	LabelForbidden = "(not your course)"
	LabelUnknown   = "(unknown course)"
)

// Phase is the identity/course-count half of the coordinator state.
type Phase string

const (
	PhaseNoIdentity  Phase = "no_identity"
	PhaseNoCourses   Phase = "no_courses"
	PhaseWithCourses Phase = "with_courses"
)

// SelectionState describes how the selected course id was resolved.
type SelectionState string

const (
	SelectionNone      SelectionState = "none"
	SelectionValid     SelectionState = "valid"
	SelectionUnknown   SelectionState = "unknown"
	SelectionForbidden SelectionState = "forbidden"
	SelectionResolving SelectionState = "resolving"
)

// ReconcileSelection repairs a selection after the course list is replaced:
// the old id survives when it is still listed or the list is empty,
// otherwise the first (most recent) course is picked.
func ReconcileSelection(selected string, courses []model.Course) string {
	if len(courses) == 0 {
		return selected
	}
	if _, ok := model.FindCourse(courses, selected); ok {
		return selected
	}
	return courses[0].ID
}

// MergeCourse prepends c unless a course with the same id is already listed.
func MergeCourse(courses []model.Course, c model.Course) []model.Course {
	if _, ok := model.FindCourse(courses, c.ID); ok {
		return courses
	}
	merged := make([]model.Course, 0, len(courses)+1)
	merged = append(merged, c)
	return append(merged, courses...)
}

func phaseOf(identity string, courses []model.Course) Phase {
	switch {
	case identity == "":
		return PhaseNoIdentity
	case len(courses) == 0:
		return PhaseNoCourses
	default:
		return PhaseWithCourses
	}
}
