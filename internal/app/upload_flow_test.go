package app

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorchat/internal/model"
)

func file(name, contentType, body string) *model.UploadFile {
	return &model.UploadFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func TestUploadPreconditions(t *testing.T) {
	tests := []struct {
		name               string
		file               *model.UploadFile
		kind               model.UploadKind
		identity, courseID string
		want               string
	}{
		{"no identity", file("a.pdf", "application/pdf", "x"), model.UploadPDF, "", "c1", MsgIdentityRequired},
		{"no course", file("a.pdf", "application/pdf", "x"), model.UploadPDF, "u1", "", MsgCourseRequired},
		{"no file", nil, model.UploadPDF, "u1", "c1", MsgFileRequired},
		{"identity checked before file", nil, model.UploadImage, "", "", MsgIdentityRequired},
		{"text file as pdf", file("notes.txt", "text/plain", "hello"), model.UploadPDF, "u1", "c1", MsgPDFOnly},
		{"declared size too large", &model.UploadFile{
			Name: "big.pdf", ContentType: "application/pdf", Size: MaxPDFBytes + 1, Body: strings.NewReader(""),
		}, model.UploadPDF, "u1", "c1", MsgPDFTooLarge},
		{"unknown kind", file("a.bin", "", "x"), model.UploadKind("video"), "u1", "c1", MsgUnknownUploadKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			flow := NewUploadFlow(fb, nil)

			_, err := flow.Upload(context.Background(), tt.file, tt.kind, tt.identity, tt.courseID)
			require.ErrorIs(t, err, ErrPrecondition)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.want, flow.State().Error)

			_, _, _, uploads := fb.counts()
			assert.Zero(t, uploads)
		})
	}
}

func TestUploadPDFSizeCheckedOnBytesRead(t *testing.T) {
	fb := newFakeBackend()
	flow := NewUploadFlow(fb, nil)

	// The declared size understates the real body.
	big := &model.UploadFile{
		Name:        "big.pdf",
		ContentType: "application/pdf",
		Size:        10,
		Body:        bytes.NewReader(make([]byte, MaxPDFBytes+1)),
	}
	_, err := flow.Upload(context.Background(), big, model.UploadPDF, "u1", "c1")
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, MsgPDFTooLarge, err.Error())

	_, _, _, uploads := fb.counts()
	assert.Zero(t, uploads)
}

func TestUploadImageCeiling(t *testing.T) {
	fb := newFakeBackend()
	flow := NewUploadFlow(fb, nil, WithMaxImageBytes(3<<20))
	assert.Equal(t, int64(3<<20), flow.MaxImageBytes())
	assert.Equal(t, DefaultMaxImageBytes, NewUploadFlow(fb, nil, WithMaxImageBytes(0)).MaxImageBytes())

	declared := &model.UploadFile{
		Name: "huge.png",
		Size: 3<<20 + 1,
		Body: bytes.NewReader(nil),
	}
	_, err := flow.Upload(context.Background(), declared, model.UploadImage, "u1", "c1")
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, "Image too large (max 3 MB).", err.Error())

	// The declared size understates the real body.
	understated := &model.UploadFile{
		Name: "huge.png",
		Size: 10,
		Body: bytes.NewReader(make([]byte, 3<<20+1)),
	}
	_, err = flow.Upload(context.Background(), understated, model.UploadImage, "u1", "c1")
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, "Image too large (max 3 MB).", err.Error())
	assert.Equal(t, "Image too large (max 3 MB).", flow.State().Error)

	_, _, _, uploads := fb.counts()
	assert.Zero(t, uploads)
}

func TestUploadPDFAcceptedByTypeOrExtension(t *testing.T) {
	tests := []struct {
		name, filename, contentType, wantType string
	}{
		{"pdf type", "notes", "application/pdf", "application/pdf"},
		{"x-pdf type", "notes", "application/x-pdf", "application/x-pdf"},
		{"extension only", "Notes.PDF", "", "application/pdf"},
		{"extension with generic type", "notes.pdf", "application/octet-stream", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			flow := NewUploadFlow(fb, nil)

			res, err := flow.Upload(context.Background(), file(tt.filename, tt.contentType, "%PDF-bogus"), model.UploadPDF, "u1", "c1")
			require.NoError(t, err)
			assert.Equal(t, "Uploaded PDF: "+tt.filename, res.Message)
			assert.Equal(t, []string{"pdf:" + tt.filename + ":" + tt.wantType}, fb.uploadCalls)
			assert.Equal(t, "%PDF-bogus", string(fb.uploadBody))
			assert.Equal(t, res.Message, flow.State().Message)
		})
	}
}

func TestUploadImageReportsDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48))))

	fb := newFakeBackend()
	flow := NewUploadFlow(fb, nil)
	img := &model.UploadFile{Name: "board.png", Size: int64(buf.Len()), Body: bytes.NewReader(buf.Bytes())}

	res, err := flow.Upload(context.Background(), img, model.UploadImage, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Uploaded image: board.png (64×48)", res.Message)
	assert.Equal(t, 64, res.Receipt.Width)
	assert.Equal(t, []string{"image:board.png:image/png"}, fb.uploadCalls)
}

func TestUploadImageWithoutDecodableHeader(t *testing.T) {
	fb := newFakeBackend()
	res, err := NewUploadFlow(fb, nil).Upload(context.Background(),
		file("scan.heic", "image/heic", "opaque"), model.UploadImage, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Uploaded image: scan.heic", res.Message)
}

func TestUploadUsesReturnedFilename(t *testing.T) {
	fb := newFakeBackend()
	fb.onUpload = func() (*model.UploadReceipt, error) {
		return &model.UploadReceipt{OK: true, CourseID: "c1", Filename: "stored.pdf"}, nil
	}
	res, err := NewUploadFlow(fb, nil).Upload(context.Background(),
		file("local.pdf", "application/pdf", "x"), model.UploadPDF, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Uploaded PDF: stored.pdf", res.Message)
}

func TestUploadBackendFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.onUpload = func() (*model.UploadReceipt, error) { return nil, statusErr(413) }
	flow := NewUploadFlow(fb, nil)

	_, err := flow.Upload(context.Background(), file("a.pdf", "application/pdf", "x"), model.UploadPDF, "u1", "c1")
	require.Error(t, err)
	assert.Equal(t, UploadState{Error: "HTTP 413"}, flow.State())
}

func TestConfirmationPages(t *testing.T) {
	assert.Equal(t, "Uploaded PDF: a.pdf (1 page)",
		confirmation(&model.UploadReceipt{Filename: "a.pdf", Pages: 1}, model.UploadPDF))
	assert.Equal(t, "Uploaded PDF: a.pdf (12 pages)",
		confirmation(&model.UploadReceipt{Filename: "a.pdf", Pages: 12}, model.UploadPDF))
}
