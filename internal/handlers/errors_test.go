package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/response"
)

func TestRenderError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("project %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrAlreadyMember, http.StatusConflict},
		{services.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("%w: no modules", services.ErrFormat), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: name is required", services.ErrValidation), http.StatusBadRequest},
		{services.ErrInvalidRole, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrGeneratorUnavailable, http.StatusBadGateway},
		{response.NewTooManyRequests("slow down"), http.StatusTooManyRequests},
		{errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			renderError(c, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, expected %d", w.Code, tt.status)
			}
		})
	}
}

func TestRenderError_HidesStoreErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	renderError(c, errors.New("UNIQUE constraint failed: secret_table.col"))
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "internal server error" {
		t.Errorf("message = %q, expected generic text", body.Message)
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"12", true},
		{"0", false},
		{"-1", false},
		{"abc", false},
		{"99999999999", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Params = gin.Params{{Key: "id", Value: tt.raw}}

			_, ok := pathID(c, "id", "project")
			if ok != tt.ok {
				t.Errorf("pathID(%q) ok = %v, expected %v", tt.raw, ok, tt.ok)
			}
			if !ok && w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, expected 400", w.Code)
			}
		})
	}
}
