package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type MemberService struct {
	db         *gorm.DB
	mailer     InvitationMailer
	expiryDays int
}

// NewMemberService builds the membership manager. mailer may be nil.
func NewMemberService(db *gorm.DB, mailer InvitationMailer, cfg *config.InviteConfig) *MemberService {
	days := 7
	if cfg != nil && cfg.InvitationExpiryDays > 0 {
		days = cfg.InvitationExpiryDays
	}
	return &MemberService{db: db, mailer: mailer, expiryDays: days}
}

// MemberView is a membership joined with the member's profile display fields.
type MemberView struct {
	ID          uint        `json:"id"`
	ProjectID   uint        `json:"project_id"`
	UserID      uint        `json:"user_id"`
	Role        models.Role `json:"role"`
	InvitedBy   *uint       `json:"invited_by,omitempty"`
	JoinedAt    time.Time   `json:"joined_at"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	AvatarURL   string      `json:"avatar_url"`
}

// Membership is everything the members page shows for one project.
type Membership struct {
	Role        models.Role                `json:"role"`
	Members     []MemberView               `json:"members"`
	Invitations []models.ProjectInvitation `json:"invitations"`
	InviteCodes []models.ProjectInviteCode `json:"invite_codes"`
}

type InviteByEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

// List reads members, pending invitations and active codes in parallel.
// Any member may list; invite codes are only returned to admins.
func (s *MemberService) List(ctx context.Context, projectID, actorID uint) (*Membership, error) {
	out := &Membership{
		Members:     []MemberView{},
		Invitations: []models.ProjectInvitation{},
		InviteCodes: []models.ProjectInviteCode{},
	}
	if projectID == 0 {
		return out, nil
	}

	role, err := requireMember(s.db, projectID, actorID)
	if err != nil {
		return nil, err
	}
	out.Role = role

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Table("project_members").
			Select("project_members.id, project_members.project_id, project_members.user_id, project_members.role, " +
				"project_members.invited_by, project_members.joined_at, profiles.email, profiles.display_name, profiles.avatar_url").
			Joins("LEFT JOIN profiles ON profiles.id = project_members.user_id").
			Where("project_members.project_id = ?", projectID).
			Order("project_members.joined_at ASC, project_members.id ASC").
			Scan(&out.Members).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("project_id = ? AND accepted_at IS NULL AND expires_at > ?", projectID, models.NowUTC()).
			Order("created_at DESC, id DESC").
			Find(&out.Invitations).Error
	})
	if role.IsAdmin() {
		g.Go(func() error {
			return activeCodes(s.db.WithContext(gctx), projectID).Find(&out.InviteCodes).Error
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list membership: %w", err)
	}
	return out, nil
}

// InviteByEmail records a pending invitation. Re-inviting a pending address
// refreshes its token, role and expiry instead of adding a second row.
func (s *MemberService) InviteByEmail(projectID, actorID uint, req *InviteByEmailRequest) (*models.ProjectInvitation, error) {
	if projectID == 0 {
		return nil, nil
	}

	actorRole, err := requireAdmin(s.db, projectID, actorID)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	role := models.RoleMember
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok || parsed == models.RoleOwner {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
		}
		role = parsed
	}
	if !CanAssign(actorRole, role) {
		return nil, ErrForbidden
	}

	var invitation models.ProjectInvitation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&models.ProjectMember{}).
			Joins("JOIN profiles ON profiles.id = project_members.user_id").
			Where("project_members.project_id = ? AND profiles.email = ?", projectID, email).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		now := models.NowUTC()
		expiresAt := now.Add(time.Duration(s.expiryDays) * 24 * time.Hour)

		err = tx.Where("project_id = ? AND email = ? AND accepted_at IS NULL", projectID, email).
			First(&invitation).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			invitation = models.ProjectInvitation{
				ProjectID: projectID,
				Email:     email,
				Role:      role,
				InvitedBy: actorID,
				Token:     uuid.NewString(),
				ExpiresAt: expiresAt,
			}
			return tx.Create(&invitation).Error
		case err != nil:
			return err
		}

		invitation.Role = role
		invitation.InvitedBy = actorID
		invitation.Token = uuid.NewString()
		invitation.ExpiresAt = expiresAt
		return tx.Model(&invitation).Updates(map[string]interface{}{
			"role":       invitation.Role,
			"invited_by": invitation.InvitedBy,
			"token":      invitation.Token,
			"expires_at": invitation.ExpiresAt,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyMember) {
			return nil, err
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	logger.Infof("[Member] Invited %s to project %d as %s", email, projectID, role)
	s.deliver(&invitation, actorID)
	return &invitation, nil
}

// deliver hands the invitation to the mailer. Delivery problems never fail the invite.
func (s *MemberService) deliver(inv *models.ProjectInvitation, actorID uint) {
	if s.mailer == nil {
		metrics.InvitationsSent.WithLabelValues("skipped").Inc()
		return
	}

	var project models.Project
	if err := s.db.Select("id", "name").First(&project, inv.ProjectID).Error; err != nil {
		metrics.InvitationsSent.WithLabelValues("failed").Inc()
		logger.Errorf("[Member] Invitation %d not delivered, loading project %d: %v", inv.ID, inv.ProjectID, err)
		return
	}
	var inviter models.Profile
	if err := s.db.Select("id", "display_name", "email").First(&inviter, actorID).Error; err != nil {
		metrics.InvitationsSent.WithLabelValues("failed").Inc()
		logger.Errorf("[Member] Invitation %d not delivered, loading inviter %d: %v", inv.ID, actorID, err)
		return
	}

	inviterName := inviter.DisplayName
	if inviterName == "" {
		inviterName = inviter.Email
	}

	err := s.mailer.SendInvitation(&InvitationMail{
		To:          inv.Email,
		ProjectName: project.Name,
		InviterName: inviterName,
		Role:        string(inv.Role),
		Token:       inv.Token,
		ExpiresAt:   inv.ExpiresAt,
	})
	if err != nil {
		metrics.InvitationsSent.WithLabelValues("failed").Inc()
		logger.Warnf("[Member] Invitation %d recorded but delivery failed: %v", inv.ID, err)
		return
	}
	metrics.InvitationsSent.WithLabelValues("sent").Inc()
}

// ChangeRole re-derives the actor's authority on the member's project before updating.
func (s *MemberService) ChangeRole(actorID, memberID uint, newRole string) (*models.ProjectMember, error) {
	target, err := s.findMember(memberID)
	if err != nil {
		return nil, err
	}

	actorRole, err := requireMember(s.db, target.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(newRole)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, newRole)
	}
	if !CanChangeRole(actorRole, target.Role, role) {
		return nil, ErrForbidden
	}

	if err := s.db.Model(target).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	logger.Infof("[Member] User %d changed member %d from %s to %s", actorID, memberID, target.Role, role)
	target.Role = role
	return target, nil
}

func (s *MemberService) RemoveMember(actorID, memberID uint) error {
	target, err := s.findMember(memberID)
	if err != nil {
		return err
	}

	actorRole, err := requireMember(s.db, target.ProjectID, actorID)
	if err != nil {
		return err
	}
	if !CanRemove(actorRole, target.Role) {
		return ErrForbidden
	}

	if err := s.db.Delete(&models.ProjectMember{}, target.ID).Error; err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	logger.Infof("[Member] User %d removed user %d from project %d", actorID, target.UserID, target.ProjectID)
	return nil
}

// CancelInvitation deletes a pending invitation. Accepted invitations are not found.
func (s *MemberService) CancelInvitation(actorID, invitationID uint) error {
	var inv models.ProjectInvitation
	err := s.db.Where("id = ? AND accepted_at IS NULL", invitationID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("invitation %w", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := requireAdmin(s.db, inv.ProjectID, actorID); err != nil {
		return err
	}

	if err := s.db.Delete(&models.ProjectInvitation{}, inv.ID).Error; err != nil {
		return fmt.Errorf("cancel invitation: %w", err)
	}
	logger.Infof("[Member] Invitation %d on project %d cancelled by user %d", inv.ID, inv.ProjectID, actorID)
	return nil
}

// LeaveProject removes the actor's own membership. The owner cannot leave.
func (s *MemberService) LeaveProject(projectID, actorID uint) (bool, error) {
	if projectID == 0 {
		return false, nil
	}

	role, ok, err := MemberRole(s.db, projectID, actorID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if !CanLeave(role) {
		return false, ErrForbidden
	}

	res := s.db.Where("project_id = ? AND user_id = ?", projectID, actorID).Delete(&models.ProjectMember{})
	if res.Error != nil {
		return false, fmt.Errorf("leave project: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logger.Infof("[Member] User %d left project %d", actorID, projectID)
	}
	return res.RowsAffected > 0, nil
}

// AcceptInvitation turns a pending invitation into a membership for the
// profile whose email it was addressed to.
func (s *MemberService) AcceptInvitation(token string, actorID uint) (*RedeemResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}

	var result *RedeemResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv models.ProjectInvitation
		err := tx.Where("token = ?", token).First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		now := models.NowUTC()
		if !inv.Pending(now) {
			return ErrNotFound
		}

		var actor models.Profile
		if err := tx.Select("id", "email").First(&actor, actorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrForbidden
			}
			return err
		}
		if !strings.EqualFold(actor.Email, inv.Email) {
			return ErrForbidden
		}

		member, err := isMember(tx, inv.ProjectID, actorID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		invitedBy := inv.InvitedBy
		row := &models.ProjectMember{
			ProjectID: inv.ProjectID,
			UserID:    actorID,
			Role:      inv.Role,
			InvitedBy: &invitedBy,
			JoinedAt:  now,
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}
		if err := tx.Model(&inv).Update("accepted_at", now).Error; err != nil {
			return err
		}

		var project models.Project
		if err := tx.Select("id", "name").First(&project, inv.ProjectID).Error; err != nil {
			return err
		}
		result = &RedeemResult{Member: row, ProjectName: project.Name}
		return nil
	})

	switch {
	case err == nil:
		logger.Infof("[Member] User %d accepted invitation to project %d", actorID, result.Member.ProjectID)
		return result, nil
	case errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("invitation %w", ErrNotFound)
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAlreadyMember):
		return nil, err
	default:
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
}

// PurgeExpiredInvitations deletes pending invitations past their expiry.
func (s *MemberService) PurgeExpiredInvitations() (int64, error) {
	res := s.db.Where("accepted_at IS NULL AND expires_at <= ?", models.NowUTC()).Delete(&models.ProjectInvitation{})
	return res.RowsAffected, res.Error
}

func (s *MemberService) findMember(memberID uint) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := s.db.First(&m, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("member %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", ErrValidation, raw)
	}
	return email, nil
}
