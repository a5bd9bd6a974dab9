package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/onboardhub/backend/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	courseService  *services.CourseService
}

func NewProjectHandler(projects *services.ProjectService, courses *services.CourseService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projects,
		courseService:  courses,
	}
}

// CreateProjectResponse reports whether course generation was queued with the project.
type CreateProjectResponse struct {
	Project      *models.Project `json:"project"`
	CourseQueued bool            `json:"course_queued"`
}

// CoursePreviewResponse is a generated course that was not stored anywhere.
type CoursePreviewResponse struct {
	Modules   []services.ModuleDescriptor `json:"modules"`
	Fallback  bool                        `json:"fallback"`
	Ephemeral bool                        `json:"ephemeral"`
}

// List returns the caller's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.ListForUser(middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a project with the caller's role
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(id, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, project)
}

// Create creates a new project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	project, err := h.projectService.Create(userID, &req)
	if err != nil {
		renderError(c, err)
		return
	}

	queued := false
	if req.GenerateCourse && h.courseService != nil {
		// the project is already stored, so a queue failure only costs the course
		if err := h.courseService.RequestGeneration(project.ID, userID, services.CourseReasonCreate); err != nil {
			logger.Warnf("[Project] Failed to queue course for project %d: %v", project.ID, err)
		} else {
			queued = true
		}
	}

	response.Created(c, CreateProjectResponse{Project: project, CourseQueued: queued})
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(id, middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, project)
}

// Delete deletes a project and everything it owns
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(id, middleware.GetUserID(c)); err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, nil)
}

// PreviewCourse generates a course for a draft project without persisting it
// POST /api/projects/preview-course
func (h *ProjectHandler) PreviewCourse(c *gin.Context) {
	var src services.CourseSource
	if err := c.ShouldBindJSON(&src); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	modules, fallback, err := h.courseService.Preview(c.Request.Context(), src)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, CoursePreviewResponse{Modules: modules, Fallback: fallback, Ephemeral: true})
}
