package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *services.CourseEventHub
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, hub *services.CourseEventHub) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	// Database check
	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err = sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if err != nil {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	// Queue mode
	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	sseClients := 0
	if h.hub != nil {
		sseClients = h.hub.ClientCount()
	}

	var generating int64
	if err == nil {
		h.db.Model(&models.Project{}).
			Where("course_status = ?", models.CourseStatusGenerating).
			Count(&generating)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "onboardhub",
		"components": gin.H{
			"database":           dbStatus,
			"queue_mode":         queueMode,
			"sse_clients":        sseClients,
			"generating_courses": generating,
		},
	})
}
