package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/internal/utils"
	"github.com/onboardhub/backend/pkg/response"
)

type InviteCodeHandler struct {
	inviteCodeService *services.InviteCodeService
}

func NewInviteCodeHandler(codes *services.InviteCodeService) *InviteCodeHandler {
	return &InviteCodeHandler{inviteCodeService: codes}
}

type JoinRequest struct {
	Code string `json:"code" binding:"required"`
}

// List returns the project's active codes
// GET /api/projects/:id/invite-codes
func (h *InviteCodeHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	codes, err := h.inviteCodeService.List(projectID, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, codes)
}

// Generate creates a new invite code for the project
// POST /api/projects/:id/invite-codes
func (h *InviteCodeHandler) Generate(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.GenerateInviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.ProjectID = projectID

	code, err := h.inviteCodeService.Generate(middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Created(c, code)
}

// Join redeems a code for the caller
// POST /api/invite-codes/join
func (h *InviteCodeHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.inviteCodeService.Redeem(req.Code, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}

// Revoke deletes a code
// DELETE /api/invite-codes/:codeId
func (h *InviteCodeHandler) Revoke(c *gin.Context) {
	codeID, ok := pathID(c, "codeId", "invite code")
	if !ok {
		return
	}

	if err := h.inviteCodeService.Revoke(codeID, middleware.GetUserID(c)); err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, nil)
}

// Function serves the serverless-style endpoint used by the web client.
// Every failure, whatever its cause, is a 500 with {"error": "..."}.
// ANY /functions/v1/invite-code
func (h *InviteCodeHandler) Function(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		return
	}

	data, err := h.dispatch(c)
	if err != nil {
		response.FunctionError(c, err)
		return
	}
	response.FunctionSuccess(c, data)
}

func (h *InviteCodeHandler) dispatch(c *gin.Context) (interface{}, error) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return nil, errors.New("Unauthorized")
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, errors.New("Unauthorized")
	}
	actorID := claims.UserID

	switch c.Request.Method {
	case http.MethodPost:
		switch c.Query("action") {
		case "generate":
			var req services.GenerateInviteCodeRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, fmt.Errorf("invalid request body: %w", err)
			}
			if req.ProjectID == 0 {
				return nil, errors.New("project_id is required")
			}
			return h.inviteCodeService.Generate(actorID, &req)
		case "join":
			var req JoinRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, fmt.Errorf("invalid request body: %w", err)
			}
			return h.inviteCodeService.Redeem(req.Code, actorID)
		default:
			return nil, errors.New("Invalid action")
		}
	case http.MethodGet:
		projectID, err := queryID(c, "project_id")
		if err != nil {
			return nil, err
		}
		return h.inviteCodeService.List(projectID, actorID)
	case http.MethodDelete:
		codeID, err := queryID(c, "code_id")
		if err != nil {
			return nil, err
		}
		return nil, h.inviteCodeService.Revoke(codeID, actorID)
	}
	return nil, errors.New("Method not allowed")
}

func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}
