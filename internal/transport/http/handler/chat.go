package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/app"
	"tutorchat/internal/transport/http/middleware"
	"tutorchat/internal/transport/http/response"
)

type ChatHandler struct {
	transcript *app.TranscriptService
	features   Features
}

type AskRequest struct {
	Question string `json:"question"`
}

func NewChatHandler(transcript *app.TranscriptService, features Features) *ChatHandler {
	return &ChatHandler{transcript: transcript, features: features}
}

// Ask posts the question for the workspace's current identity and course.
// Level and mode are fixed by the chat flow.
func (h *ChatHandler) Ask(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	st := ws.Courses.Snapshot()
	payload, err := ws.Chat.Ask(c.Request.Context(), req.Question, st.Identity, st.SelectedCourseID)
	if err != nil {
		writeError(c, err, "ask failed", buildState(ws, h.features))
		return
	}
	response.OK(c, payload)
}

func (h *ChatHandler) History(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}
	if h.transcript == nil {
		writeError(c, app.ErrTranscriptDisabled, "", nil)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	st := ws.Courses.Snapshot()
	exchanges, err := h.transcript.History(c.Request.Context(), st.Identity, st.SelectedCourseID, limit)
	if err != nil {
		writeError(c, err, "get history failed", nil)
		return
	}
	response.OK(c, exchanges)
}
