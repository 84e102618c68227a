package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/session"
	"tutorchat/internal/transport/http/middleware"
	"tutorchat/internal/transport/http/response"
)

type SessionHandler struct {
	verifier *session.Verifier
	features Features
}

type StartSessionRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

func NewSessionHandler(verifier *session.Verifier, features Features) *SessionHandler {
	return &SessionHandler{verifier: verifier, features: features}
}

// Start verifies a provider access token and hands its identity to the
// workspace, which locks manual identity entry until End.
func (h *SessionHandler) Start(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}
	if !h.verifier.Enabled() {
		response.Error(c, http.StatusNotFound, response.CodeAuthDisabled, "sign-in is not configured")
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	s, err := h.verifier.Verify(c.Request.Context(), req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidToken):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid or expired token")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusBadGateway, response.CodeUpstream, "auth provider unavailable")
		}
		return
	}

	ws.Sessions.Start(c.Request.Context(), s)
	response.OK(c, buildState(ws, h.features))
}

func (h *SessionHandler) End(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}
	ws.Sessions.End(c.Request.Context())
	response.OK(c, buildState(ws, h.features))
}
