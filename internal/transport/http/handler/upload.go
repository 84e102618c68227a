package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/model"
	"tutorchat/internal/transport/http/middleware"
	"tutorchat/internal/transport/http/response"
)

// multipartOverhead leaves room for the form fields and part headers
// around the file itself.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	features Features
	maxBody  int64
}

// NewUploadHandler caps request bodies at maxFileBytes plus multipart
// overhead. A non-positive maxFileBytes disables the cap.
func NewUploadHandler(features Features, maxFileBytes int64) *UploadHandler {
	h := &UploadHandler{features: features}
	if maxFileBytes > 0 {
		h.maxBody = maxFileBytes + multipartOverhead
	}
	return h
}

// Upload accepts a multipart form with a "file" part. A missing part is
// passed to the flow as no file so it reports the usual message.
func (h *UploadHandler) Upload(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}

	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	var file *model.UploadFile
	var tooLarge *http.MaxBytesError
	header, err := c.FormFile("file")
	switch {
	case errors.As(err, &tooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "upload too large")
		return
	case err == nil:
		f, openErr := header.Open()
		if openErr != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "could not read uploaded file")
			return
		}
		defer f.Close()
		file = &model.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        f,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart payload")
		return
	}

	st := ws.Courses.Snapshot()
	result, err := ws.Uploads.Upload(c.Request.Context(), file, model.UploadKind(c.Param("kind")), st.Identity, st.SelectedCourseID)
	if err != nil {
		writeError(c, err, "upload failed", buildState(ws, h.features))
		return
	}
	response.OK(c, result)
}
