package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/response"
)

type CourseHandler struct {
	courseService *services.CourseService
}

func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courses}
}

// Get returns the project's course modules in order
// GET /api/projects/:id/course
func (h *CourseHandler) Get(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	topics, err := h.courseService.Fetch(projectID, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, topics)
}

// Regenerate replaces the course and waits for the result
// POST /api/projects/:id/course/regenerate
func (h *CourseHandler) Regenerate(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	topics, err := h.courseService.Regenerate(c.Request.Context(), projectID, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, topics)
}

// Generate queues regeneration; progress is reported on /api/events/courses
// POST /api/projects/:id/course/generate
func (h *CourseHandler) Generate(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.courseService.RequestGeneration(projectID, middleware.GetUserID(c), services.CourseReasonRegenerate); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, response.Response{
		Code:    0,
		Message: "queued",
		Data:    gin.H{"project_id": projectID},
	})
}

// Delete removes every module of the course
// DELETE /api/projects/:id/course
func (h *CourseHandler) Delete(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.courseService.DeleteAll(projectID, middleware.GetUserID(c)); err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, nil)
}
