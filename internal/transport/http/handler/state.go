package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/app"
	"tutorchat/internal/transport/http/middleware"
	"tutorchat/internal/transport/http/response"
	"tutorchat/internal/workspace"
)

// Features are the optional parts of the service the page may show.
type Features struct {
	AuthEnabled       bool
	TranscriptEnabled bool
}

type AuthView struct {
	Enabled  bool   `json:"enabled"`
	SignedIn bool   `json:"signed_in"`
	Email    string `json:"email,omitempty"`
}

// StateView is everything the page needs to render.
type StateView struct {
	WorkspaceID string          `json:"workspace_id"`
	Courses     app.CourseState `json:"courses"`
	Chat        app.ChatState   `json:"chat"`
	Upload      app.UploadState `json:"upload"`
	Auth        AuthView        `json:"auth"`
	Transcript  bool            `json:"transcript"`
}

func buildState(ws *workspace.Workspace, features Features) StateView {
	view := StateView{
		WorkspaceID: ws.ID,
		Courses:     ws.Courses.Snapshot(),
		Chat:        ws.Chat.State(),
		Upload:      ws.Uploads.State(),
		Auth:        AuthView{Enabled: features.AuthEnabled},
		Transcript:  features.TranscriptEnabled,
	}
	if s, ok := ws.Sessions.Current(); ok {
		view.Auth.SignedIn = true
		view.Auth.Email = s.Email
	}
	return view
}

type StateHandler struct {
	features Features
}

func NewStateHandler(features Features) *StateHandler {
	return &StateHandler{features: features}
}

func (h *StateHandler) Get(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}
	response.OK(c, buildState(ws, h.features))
}
