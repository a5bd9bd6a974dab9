package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/response"
	"gorm.io/gorm"
)

type DocumentationHandler struct {
	documentationService *services.DocumentationService
}

func NewDocumentationHandler(db *gorm.DB) *DocumentationHandler {
	return &DocumentationHandler{
		documentationService: services.NewDocumentationService(db),
	}
}

// GET /api/projects/:id/documentation
func (h *DocumentationHandler) Get(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	doc, err := h.documentationService.Get(projectID, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, doc)
}

// PUT /api/projects/:id/documentation
func (h *DocumentationHandler) Upsert(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.DocumentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentationService.Upsert(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, doc)
}
