package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/internal/utils"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/onboardhub/backend/pkg/response"
	"gorm.io/gorm"
)

// SSEHandler handles Server-Sent Events for course generation updates
type SSEHandler struct {
	db        *gorm.DB
	hub       *services.CourseEventHub
	keepAlive time.Duration
}

func NewSSEHandler(db *gorm.DB, hub *services.CourseEventHub) *SSEHandler {
	return &SSEHandler{
		db:        db,
		hub:       hub,
		keepAlive: 25 * time.Second,
	}
}

// StreamCourseEvents streams status changes of one project's course. The
// current status is sent first. EventSource cannot set headers, so the token
// may be passed as a query parameter.
// GET /api/events/courses?project_id=&token=
func (h *SSEHandler) StreamCourseEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	if token == "" {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	id, err := strconv.ParseUint(c.Query("project_id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid project id")
		return
	}
	projectID := uint(id)

	member, err := services.IsProjectMember(h.db, projectID, claims.UserID)
	if err != nil {
		renderError(c, err)
		return
	}
	if !member {
		response.Forbidden(c, "not a member of this project")
		return
	}

	var project models.Project
	if err := h.db.Select("id", "course_status", "course_error").First(&project, projectID).Error; err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID, projectID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Uint("project_id", projectID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	writeEvent(c, services.CourseEvent{
		ProjectID: project.ID,
		Status:    project.CourseStatus,
		Error:     project.CourseError,
	})

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeEvent(c, event)
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return
		}
	}
}

func writeEvent(c *gin.Context, event services.CourseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("SSE marshal error")
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
