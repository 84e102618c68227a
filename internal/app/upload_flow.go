package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"tutorchat/internal/backend"
	"tutorchat/internal/model"
	"tutorchat/internal/pkg/imageinfo"
	"tutorchat/internal/pkg/logger"
	"tutorchat/internal/pkg/pdfinfo"
)

// MaxPDFBytes is the largest PDF accepted for upload (100 MiB).
const MaxPDFBytes int64 = 100 << 20

// DefaultMaxImageBytes caps image uploads unless WithMaxImageBytes says otherwise.
const DefaultMaxImageBytes int64 = 20 << 20

var pdfContentTypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

type UploadBackend interface {
	Upload(
		ctx context.Context,
		identity string,
		kind model.UploadKind,
		courseID, filename, contentType string,
		body io.Reader,
	) (*model.UploadReceipt, error)
}

// UploadState is what the upload panel's status line shows.
type UploadState struct {
	Pending bool   `json:"pending"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type UploadResult struct {
	Receipt *model.UploadReceipt `json:"receipt"`
	Message string               `json:"message"`
}

type UploadFlow struct {
	backend  UploadBackend
	logger   *logger.Logger
	maxImage int64

	mu    sync.Mutex
	gen   uint64
	state UploadState
}

type UploadOption func(*UploadFlow)

// WithMaxImageBytes sets the image size ceiling. Non-positive values keep
// the default.
func WithMaxImageBytes(n int64) UploadOption {
	return func(f *UploadFlow) {
		if n > 0 {
			f.maxImage = n
		}
	}
}

func NewUploadFlow(backend UploadBackend, log *logger.Logger, opts ...UploadOption) *UploadFlow {
	if log == nil {
		log = logger.Nop()
	}
	f := &UploadFlow{backend: backend, logger: log, maxImage: DefaultMaxImageBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxImageBytes reports the image size ceiling in effect.
func (f *UploadFlow) MaxImageBytes() int64 {
	return f.maxImage
}

func (f *UploadFlow) State() UploadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Upload validates file against kind and sends it to the course's knowledge
// base. PDFs are size-checked on both the declared size and the bytes read.
func (f *UploadFlow) Upload(
	ctx context.Context,
	file *model.UploadFile,
	kind model.UploadKind,
	identity, courseID string,
) (*UploadResult, error) {
	identity = strings.TrimSpace(identity)
	courseID = strings.TrimSpace(courseID)

	gen := f.begin()
	result, err := f.upload(ctx, file, kind, identity, courseID)
	f.finish(gen, result, err)
	return result, err
}

func (f *UploadFlow) upload(
	ctx context.Context,
	file *model.UploadFile,
	kind model.UploadKind,
	identity, courseID string,
) (*UploadResult, error) {
	if err := f.checkUpload(file, kind, identity, courseID); err != nil {
		return nil, err
	}

	data, err := f.readUpload(file, kind)
	if err != nil {
		return nil, err
	}

	contentType := file.ContentType
	if kind == model.UploadImage {
		contentType = imageinfo.ContentType(contentType, data)
	} else if contentType == "" {
		contentType = "application/pdf"
	}

	receipt, err := f.backend.Upload(ctx, identity, kind, courseID, file.Name, contentType, bytes.NewReader(data))
	if err != nil {
		f.logger.Warn("upload failed",
			"identity_fp", logger.Fingerprint(identity),
			"course_id", courseID,
			"kind", kind,
			"error", err,
		)
		return nil, err
	}
	if receipt.Filename == "" {
		receipt.Filename = file.Name
	}
	describe(receipt, kind, data)

	f.logger.Info("upload accepted",
		"identity_fp", logger.Fingerprint(identity),
		"course_id", courseID,
		"kind", kind,
		"bytes", len(data),
	)
	return &UploadResult{Receipt: receipt, Message: confirmation(receipt, kind)}, nil
}

func (f *UploadFlow) checkUpload(file *model.UploadFile, kind model.UploadKind, identity, courseID string) error {
	switch {
	case identity == "":
		return precondition(MsgIdentityRequired)
	case courseID == "":
		return precondition(MsgCourseRequired)
	case file == nil || file.Body == nil || file.Name == "":
		return precondition(MsgFileRequired)
	}

	switch kind {
	case model.UploadPDF:
		if !isPDF(file) {
			return precondition(MsgPDFOnly)
		}
		if file.Size > MaxPDFBytes {
			return precondition(MsgPDFTooLarge)
		}
	case model.UploadImage:
		if file.Size > f.maxImage {
			return precondition(imageTooLarge(f.maxImage))
		}
	default:
		return precondition(MsgUnknownUploadKind)
	}
	return nil
}

func isPDF(file *model.UploadFile) bool {
	mediaType, _, _ := strings.Cut(file.ContentType, ";")
	if pdfContentTypes[strings.ToLower(strings.TrimSpace(mediaType))] {
		return true
	}
	return strings.EqualFold(filepath.Ext(file.Name), ".pdf")
}

// readUpload reads at most one byte past the kind's ceiling so oversized
// bodies are rejected without being held in full.
func (f *UploadFlow) readUpload(file *model.UploadFile, kind model.UploadKind) ([]byte, error) {
	limit, tooLarge := MaxPDFBytes, MsgPDFTooLarge
	if kind == model.UploadImage {
		limit, tooLarge = f.maxImage, imageTooLarge(f.maxImage)
	}
	data, err := io.ReadAll(io.LimitReader(file.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, precondition(tooLarge)
	}
	return data, nil
}

func imageTooLarge(limit int64) string {
	const mb = 1 << 20
	return fmt.Sprintf("Image too large (max %d MB).", (limit+mb-1)/mb)
}

// describe fills in locally computed detail; parse failures leave it empty.
func describe(receipt *model.UploadReceipt, kind model.UploadKind, data []byte) {
	switch kind {
	case model.UploadPDF:
		if n, err := pdfinfo.PageCount(data); err == nil {
			receipt.Pages = n
		}
	case model.UploadImage:
		if w, h, err := imageinfo.Dimensions(data); err == nil {
			receipt.Width, receipt.Height = w, h
		}
	}
}

func confirmation(receipt *model.UploadReceipt, kind model.UploadKind) string {
	if kind == model.UploadImage {
		msg := "Uploaded image: " + receipt.Filename
		if receipt.Width > 0 && receipt.Height > 0 {
			msg += fmt.Sprintf(" (%d×%d)", receipt.Width, receipt.Height)
		}
		return msg
	}

	msg := "Uploaded PDF: " + receipt.Filename
	switch {
	case receipt.Pages == 1:
		msg += " (1 page)"
	case receipt.Pages > 1:
		msg += fmt.Sprintf(" (%d pages)", receipt.Pages)
	}
	return msg
}

func (f *UploadFlow) begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = UploadState{Pending: true}
	return f.gen
}

func (f *UploadFlow) finish(gen uint64, result *UploadResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	switch {
	case err != nil:
		f.state = UploadState{Error: backend.UserMessage(err)}
	case result != nil:
		f.state = UploadState{Message: result.Message}
	default:
		f.state = UploadState{}
	}
}
