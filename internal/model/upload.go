package model

import "io"

type UploadKind string

const (
	UploadPDF   UploadKind = "pdf"
	UploadImage UploadKind = "image"
)

// UploadFile is a file picked by the user, before any client-side checks.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadReceipt is the backend confirmation of an ingested file.
type UploadReceipt struct {
	OK       bool   `json:"ok"`
	CourseID string `json:"course_id"`
	Filename string `json:"filename"`

	Pages  int `json:"pages,omitempty"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}
