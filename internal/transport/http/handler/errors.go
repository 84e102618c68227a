package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/app"
	"tutorchat/internal/backend"
	"tutorchat/internal/transport/http/response"
)

// writeError maps flow errors onto the response envelope. data, when not
// nil, carries the refreshed view so the page can render the inline error.
func writeError(c *gin.Context, err error, fallback string, data interface{}) {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, app.ErrPrecondition):
		response.ErrorWithData(c, http.StatusBadRequest, response.CodeBadRequest, err.Error(), data)
	case errors.As(err, &statusErr):
		response.ErrorWithData(c, http.StatusBadGateway, response.CodeUpstream, statusErr.UserMessage(), data)
	case errors.Is(err, app.ErrTranscriptDisabled):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	default:
		_ = c.Error(err)
		response.ErrorWithData(c, http.StatusInternalServerError, response.CodeInternalServer, fallback, data)
	}
}
