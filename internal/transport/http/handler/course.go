package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/transport/http/middleware"
	"tutorchat/internal/transport/http/response"
)

type CourseHandler struct {
	features Features
}

type SetIdentityRequest struct {
	UserID string `json:"user_id"`
}

type CreateCourseRequest struct {
	Name string `json:"name" binding:"max=200"`
	Term string `json:"term" binding:"max=100"`
}

type SelectCourseRequest struct {
	CourseID string `json:"course_id"`
}

func NewCourseHandler(features Features) *CourseHandler {
	return &CourseHandler{features: features}
}

func (h *CourseHandler) SetIdentity(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}

	var req SetIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := ws.Courses.SetIdentity(c.Request.Context(), req.UserID); err != nil {
		writeError(c, err, "set identity failed", buildState(ws, h.features))
		return
	}
	response.OK(c, buildState(ws, h.features))
}

func (h *CourseHandler) Refresh(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}
	ws.Courses.RefreshCourses(c.Request.Context())
	response.OK(c, buildState(ws, h.features))
}

func (h *CourseHandler) Create(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}

	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if _, err := ws.Courses.CreateCourse(c.Request.Context(), req.Name, req.Term); err != nil {
		writeError(c, err, "create course failed", buildState(ws, h.features))
		return
	}
	response.OK(c, buildState(ws, h.features))
}

func (h *CourseHandler) Select(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "workspace missing")
		return
	}

	var req SelectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	ws.Courses.SelectCourse(c.Request.Context(), req.CourseID)
	response.OK(c, buildState(ws, h.features))
}
