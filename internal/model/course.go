package model

// Course is a named scope owned by one identity on the backend.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Term string `json:"term,omitempty"`
}

// Label joins name and term with a spaced dash, or returns the name alone.
func (c Course) Label() string {
	if c.Term == "" {
		return c.Name
	}
	return c.Name + " — " + c.Term
}

// FindCourse returns the course with the given id, if present.
func FindCourse(courses []Course, id string) (Course, bool) {
	for _, c := range courses {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}
