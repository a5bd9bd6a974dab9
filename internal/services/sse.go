package services

import (
	"sync"

	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/internal/models"
)

// CourseEvent is a course generation state change for one project.
type CourseEvent struct {
	ProjectID uint                `json:"project_id"`
	Status    models.CourseStatus `json:"status"`
	Modules   int                 `json:"modules,omitempty"`
	Fallback  bool                `json:"fallback,omitempty"`
	Error     string              `json:"error,omitempty"`
}

type subscriber struct {
	projectID uint
	ch        chan CourseEvent
}

// CourseEventHub fans course events out to SSE clients watching a project.
type CourseEventHub struct {
	clients map[string]subscriber
	mu      sync.RWMutex
}

func NewCourseEventHub() *CourseEventHub {
	return &CourseEventHub{
		clients: make(map[string]subscriber),
	}
}

// Subscribe registers a client for events of projectID.
func (h *CourseEventHub) Subscribe(clientID string, projectID uint) <-chan CourseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		close(old.ch)
	} else {
		metrics.SSEClients.Inc()
	}
	ch := make(chan CourseEvent, 32)
	h.clients[clientID] = subscriber{projectID: projectID, ch: ch}
	return ch
}

func (h *CourseEventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.clients[clientID]; ok {
		close(sub.ch)
		delete(h.clients, clientID)
		metrics.SSEClients.Dec()
	}
}

// Publish delivers the event to subscribers of its project. Slow clients miss events.
func (h *CourseEventHub) Publish(event CourseEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		if sub.projectID != event.ProjectID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (h *CourseEventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
