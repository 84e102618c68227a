package app

import (
	"context"
	"strings"
	"sync"

	"tutorchat/internal/backend"
	"tutorchat/internal/model"
	"tutorchat/internal/pkg/logger"
)

type CourseBackend interface {
	ListCourses(ctx context.Context, identity string) ([]model.Course, error)
	GetCourse(ctx context.Context, identity, courseID string) (*model.Course, error)
	CreateCourse(ctx context.Context, identity, name, term string) (*model.Course, error)
}

// IdentityProvider is an external auth session source. Subscribers are told
// when a session starts (active=true) or ends.
type IdentityProvider interface {
	Current() (model.AuthSession, bool)
	Subscribe(fn func(ctx context.Context, s model.AuthSession, active bool)) (unsubscribe func())
}

// CourseState is a point-in-time copy of the coordinator.
type CourseState struct {
	Identity            string         `json:"identity"`
	IdentityLocked      bool           `json:"identity_locked"`
	Courses             []model.Course `json:"courses"`
	SelectedCourseID    string         `json:"selected_course_id"`
	SelectedCourseLabel string         `json:"selected_course_label"`
	Selection           SelectionState `json:"selection"`
	Phase               Phase          `json:"phase"`
}

// CourseCoordinator keeps identity, the identity's course list and the
// selected course consistent. The mutex is never held across backend calls;
// results that arrive after the state they depend on has moved on are
// dropped using generation counters.
type CourseCoordinator struct {
	backend CourseBackend
	logger  *logger.Logger

	mu             sync.Mutex
	identity       string
	manualIdentity string
	identityLocked bool
	courses        []model.Course
	selectedID     string
	label          string
	selection      SelectionState

	// identityGen changes whenever identity changes; labelGen whenever
	// identity, selection or courses change.
	identityGen uint64
	labelGen    uint64

	unsubscribe func()
}

func NewCourseCoordinator(backend CourseBackend, log *logger.Logger, identity, courseID string) *CourseCoordinator {
	if log == nil {
		log = logger.Nop()
	}
	identity = strings.TrimSpace(identity)
	courseID = strings.TrimSpace(courseID)
	c := &CourseCoordinator{
		backend:        backend,
		logger:         log,
		identity:       identity,
		manualIdentity: identity,
		courses:        []model.Course{},
		selectedID:     courseID,
		selection:      SelectionNone,
	}
	if courseID != "" {
		c.selection = SelectionResolving
	}
	return c
}

// Init runs the initial refresh and label resolution.
func (c *CourseCoordinator) Init(ctx context.Context) {
	c.refresh(ctx)
	c.ResolveLabel(ctx)
}

func (c *CourseCoordinator) Snapshot() CourseState {
	c.mu.Lock()
	defer c.mu.Unlock()
	courses := make([]model.Course, len(c.courses))
	copy(courses, c.courses)
	return CourseState{
		Identity:            c.identity,
		IdentityLocked:      c.identityLocked,
		Courses:             courses,
		SelectedCourseID:    c.selectedID,
		SelectedCourseLabel: c.label,
		Selection:           c.selection,
		Phase:               phaseOf(c.identity, c.courses),
	}
}

func (c *CourseCoordinator) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *CourseCoordinator) SelectedCourseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// SetIdentity replaces a manually entered identity and refreshes courses.
// It is refused while an auth session owns the identity.
func (c *CourseCoordinator) SetIdentity(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)

	c.mu.Lock()
	if c.identityLocked {
		c.mu.Unlock()
		return precondition(MsgIdentityLocked)
	}
	c.manualIdentity = token
	c.applyIdentityLocked(token)
	c.mu.Unlock()

	c.refresh(ctx)
	c.ResolveLabel(ctx)
	return nil
}

// RefreshCourses reloads the course list for the current identity. Failures
// leave an empty list and are only logged.
func (c *CourseCoordinator) RefreshCourses(ctx context.Context) {
	c.refresh(ctx)
	c.ResolveLabel(ctx)
}

func (c *CourseCoordinator) refresh(ctx context.Context) {
	c.mu.Lock()
	identity := c.identity
	gen := c.identityGen
	c.mu.Unlock()

	if identity == "" {
		return
	}

	courses, err := c.backend.ListCourses(ctx, identity)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.identityGen {
		c.logger.Debug("discarding course list for previous identity", "identity_fp", logger.Fingerprint(identity))
		return
	}
	c.labelGen++
	if err != nil {
		c.logger.Warn("refresh courses failed", "identity_fp", logger.Fingerprint(identity), "error", err)
		c.courses = []model.Course{}
		return
	}
	c.courses = courses
	if repaired := ReconcileSelection(c.selectedID, courses); repaired != c.selectedID {
		c.logger.Debug("selection repaired", "from", c.selectedID, "to", repaired)
		c.selectedID = repaired
	}
}

// CreateCourse creates a course for the current identity, merges it into the
// list and selects it. A result that arrives after the identity changed is
// returned but not applied.
func (c *CourseCoordinator) CreateCourse(ctx context.Context, name, term string) (*model.Course, error) {
	name = strings.TrimSpace(name)
	term = strings.TrimSpace(term)
	if name == "" {
		return nil, precondition(MsgCourseNameRequired)
	}

	c.mu.Lock()
	identity := c.identity
	gen := c.identityGen
	c.mu.Unlock()
	if identity == "" {
		return nil, precondition(MsgIdentityRequired)
	}

	course, err := c.backend.CreateCourse(ctx, identity, name, term)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if gen != c.identityGen {
		c.mu.Unlock()
		c.logger.Info("created course under previous identity, not selecting", "course_id", course.ID)
		return course, nil
	}
	c.courses = MergeCourse(c.courses, *course)
	c.selectedID = course.ID
	c.labelGen++
	c.mu.Unlock()

	c.ResolveLabel(ctx)
	return course, nil
}

// SelectCourse points the selection at id, which may be empty or a course
// the identity does not own.
func (c *CourseCoordinator) SelectCourse(ctx context.Context, id string) string {
	c.mu.Lock()
	c.selectedID = strings.TrimSpace(id)
	c.labelGen++
	c.mu.Unlock()
	return c.ResolveLabel(ctx)
}

// ResolveLabel recomputes the selected course label. Courses missing from
// the local list are looked up on the backend; the lookup result is dropped
// if anything it depends on changed in the meantime.
func (c *CourseCoordinator) ResolveLabel(ctx context.Context) string {
	c.mu.Lock()
	c.labelGen++
	gen := c.labelGen
	selected := c.selectedID
	identity := c.identity

	if selected == "" {
		c.label, c.selection = "", SelectionNone
		c.mu.Unlock()
		return ""
	}
	if course, ok := model.FindCourse(c.courses, selected); ok {
		label := course.Label()
		c.label, c.selection = label, SelectionValid
		c.mu.Unlock()
		return label
	}
	if identity == "" {
		c.label, c.selection = LabelUnknown, SelectionUnknown
		c.mu.Unlock()
		return LabelUnknown
	}
	c.label, c.selection = "", SelectionResolving
	c.mu.Unlock()

	label, state := LabelUnknown, SelectionUnknown
	course, err := c.backend.GetCourse(ctx, identity, selected)
	switch {
	case err == nil:
		label, state = course.Label(), SelectionValid
	case backend.IsForbidden(err):
		label, state = LabelForbidden, SelectionForbidden
	default:
		// Cancelled lookups land here too so the label never stays resolving.
		c.logger.Debug("course lookup failed", "course_id", selected, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.labelGen {
		c.logger.Debug("discarding stale course label", "course_id", selected)
		return c.label
	}
	c.label, c.selection = label, state
	return label
}

// AttachProvider subscribes to an external auth session source. While a
// session is active its identity overrides manual entry.
func (c *CourseCoordinator) AttachProvider(ctx context.Context, p IdentityProvider) {
	unsubscribe := p.Subscribe(c.onSession)

	c.mu.Lock()
	previous := c.unsubscribe
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	if previous != nil {
		previous()
	}

	if s, ok := p.Current(); ok {
		c.onSession(ctx, s, true)
	}
}

// Detach drops the provider subscription, if any.
func (c *CourseCoordinator) Detach() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *CourseCoordinator) onSession(ctx context.Context, s model.AuthSession, active bool) {
	identity := strings.TrimSpace(s.Identity)

	c.mu.Lock()
	switch {
	case active && identity != "":
		c.identityLocked = true
		c.applyIdentityLocked(identity)
	case c.identityLocked:
		c.identityLocked = false
		c.applyIdentityLocked(c.manualIdentity)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.refresh(ctx)
	c.ResolveLabel(ctx)
}

// applyIdentityLocked must be called with c.mu held.
func (c *CourseCoordinator) applyIdentityLocked(identity string) {
	if identity != c.identity {
		c.identity = identity
		c.courses = []model.Course{}
		c.identityGen++
	}
	c.labelGen++
}
