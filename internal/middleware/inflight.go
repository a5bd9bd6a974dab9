package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/onboardhub/backend/pkg/response"
)

// InFlight rejects a mutating request while an identical one from the same
// caller is still being processed. Identical means same user, method, URI and body.
type InFlight struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{pending: make(map[string]struct{})}
}

func (f *InFlight) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH", "DELETE":
		default:
			c.Next()
			return
		}

		key := f.requestKey(c)
		if !f.begin(key) {
			metrics.DuplicateRequestsTotal.WithLabelValues(c.FullPath()).Inc()
			logger.Warnf("[InFlight] Duplicate %s %s from %s rejected", c.Request.Method, c.Request.URL.Path, clientKey(c))
			response.Error(c, response.NewConflict("an identical request is already in progress"))
			c.Abort()
			return
		}
		defer f.end(key)

		c.Next()
	}
}

func (f *InFlight) requestKey(c *gin.Context) string {
	h := sha256.New()
	if c.Request.Body != nil {
		body, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		h.Write(body)
	}
	return clientKey(c) + "|" + c.Request.Method + "|" + c.Request.URL.RequestURI() + "|" + hex.EncodeToString(h.Sum(nil))
}

func (f *InFlight) begin(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.pending[key]; busy {
		return false
	}
	f.pending[key] = struct{}{}
	return true
}

func (f *InFlight) end(key string) {
	f.mu.Lock()
	delete(f.pending, key)
	f.mu.Unlock()
}

// Pending returns the number of requests currently tracked.
func (f *InFlight) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
