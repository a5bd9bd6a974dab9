package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/response"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: members}
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// List returns members, pending invitations and (for admins) invite codes
// GET /api/projects/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	membership, err := h.memberService.List(c.Request.Context(), projectID, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, membership)
}

// Invite records an email invitation
// POST /api/projects/:id/invitations
func (h *MemberHandler) Invite(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.InviteByEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	invitation, err := h.memberService.InviteByEmail(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Created(c, invitation)
}

// ChangeRole updates a member's role
// PUT /api/members/:memberId
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	memberID, ok := pathID(c, "memberId", "member")
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.ChangeRole(middleware.GetUserID(c), memberID, req.Role)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, member)
}

// Remove deletes a membership
// DELETE /api/members/:memberId
func (h *MemberHandler) Remove(c *gin.Context) {
	memberID, ok := pathID(c, "memberId", "member")
	if !ok {
		return
	}

	if err := h.memberService.RemoveMember(middleware.GetUserID(c), memberID); err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, nil)
}

// CancelInvitation deletes a pending invitation
// DELETE /api/invitations/:invitationId
func (h *MemberHandler) CancelInvitation(c *gin.Context) {
	invitationID, ok := pathID(c, "invitationId", "invitation")
	if !ok {
		return
	}

	if err := h.memberService.CancelInvitation(middleware.GetUserID(c), invitationID); err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, nil)
}

// Accept joins the caller to the project an invitation was sent for
// POST /api/invitations/accept
func (h *MemberHandler) Accept(c *gin.Context) {
	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.memberService.AcceptInvitation(req.Token, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}

// Leave removes the caller from the project
// DELETE /api/projects/:id/membership
func (h *MemberHandler) Leave(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	left, err := h.memberService.LeaveProject(projectID, middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, gin.H{"left": left})
}
