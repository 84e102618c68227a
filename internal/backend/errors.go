package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a non-2xx answer from the tutor backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend status %d: %s", e.Op, e.Status, e.UserMessage())
}

// UserMessage is the text shown inline: the response body when there is
// one, otherwise "HTTP <status>".
func (e *StatusError) UserMessage() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (e *StatusError) Forbidden() bool {
	return e.Status == http.StatusForbidden
}

// IsForbidden reports whether err carries a 403 from the backend.
func IsForbidden(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Forbidden()
}

// UserMessage extracts the inline message for any backend error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return err.Error()
}
