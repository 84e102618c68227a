package app

import "errors"

// User-facing precondition messages. Each one blocks its operation before
// any backend call is made.
const (
	MsgQuestionRequired   = "Please enter a question."
	MsgIdentityRequired   = "No user id set."
	MsgCourseRequiredAsk  = "No course selected — pick or create one in the sidebar."
	MsgCourseRequired     = "No course selected."
	MsgFileRequired       = "Choose a file first."
	MsgPDFOnly            = "Only PDF files are allowed."
	MsgPDFTooLarge        = "PDF too large (max 100 MB)."
	MsgUnknownUploadKind  = "Unknown upload kind."
	MsgCourseNameRequired = "Course name is required."
	MsgIdentityLocked     = "User id comes from your signed-in session."
)

// ErrPrecondition is matched with errors.Is by transport code.
var ErrPrecondition = errors.New("precondition failed")

type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

func precondition(msg string) error {
	return &PreconditionError{Message: msg}
}
