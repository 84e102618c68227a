package model

// Preferences is what a browser remembers between page loads.
type Preferences struct {
	Identity string `json:"identity"`
	CourseID string `json:"course_id"`
}
