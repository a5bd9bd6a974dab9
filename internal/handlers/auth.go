package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/response"
	"gorm.io/gorm"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, jwtCfg),
	}
}

// Register creates a profile and signs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Created(c, resp)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, resp)
}

// GetCurrentUser returns the signed-in profile
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	profile, err := h.authService.GetProfile(middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateCurrentUser changes display name or avatar
// PUT /api/auth/me
func (h *AuthHandler) UpdateCurrentUser(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.authService.UpdateProfile(middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, profile)
}
