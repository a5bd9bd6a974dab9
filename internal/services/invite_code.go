package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeGroups   = 3
	inviteCodeGroupLen = 4
)

type InviteCodeService struct {
	db                *gorm.DB
	defaultExpiryDays int
}

func NewInviteCodeService(db *gorm.DB, cfg *config.InviteConfig) *InviteCodeService {
	days := 30
	if cfg != nil && cfg.DefaultExpiryDays > 0 {
		days = cfg.DefaultExpiryDays
	}
	return &InviteCodeService{db: db, defaultExpiryDays: days}
}

type GenerateInviteCodeRequest struct {
	ProjectID     uint   `json:"project_id"`
	Role          string `json:"role"`
	ExpiresInDays int    `json:"expires_in_days"`
	UsesLeft      *int   `json:"uses_left"`
}

type RedeemResult struct {
	Member      *models.ProjectMember `json:"member"`
	ProjectName string                `json:"project_name"`
}

// NewInviteCode returns a random code of three groups of four characters, e.g. AB3X-9KPQ-7Z2M.
func NewInviteCode() (string, error) {
	size := big.NewInt(int64(len(inviteCodeAlphabet)))
	var b strings.Builder
	b.Grow(inviteCodeGroups*inviteCodeGroupLen + inviteCodeGroups - 1)

	for g := 0; g < inviteCodeGroups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < inviteCodeGroupLen; i++ {
			n, err := rand.Int(rand.Reader, size)
			if err != nil {
				return "", err
			}
			b.WriteByte(inviteCodeAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// NormalizeInviteCode canonicalizes user input before lookup.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Generate issues a new code for req.ProjectID. The actor must be a project admin.
func (s *InviteCodeService) Generate(actorID uint, req *GenerateInviteCodeRequest) (*models.ProjectInviteCode, error) {
	if req.ProjectID == 0 {
		return nil, fmt.Errorf("%w: project_id is required", ErrValidation)
	}

	actorRole, err := requireAdmin(s.db, req.ProjectID, actorID)
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
	if req.UsesLeft != nil && *req.UsesLeft <= 0 {
		return nil, fmt.Errorf("%w: uses_left must be positive", ErrValidation)
	}
	if !CanAssign(actorRole, role) {
		return nil, ErrForbidden
	}

	days := req.ExpiresInDays
	if days <= 0 {
		days = s.defaultExpiryDays
	}

	code, err := NewInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}

	invite := &models.ProjectInviteCode{
		ProjectID: req.ProjectID,
		Code:      code,
		Role:      role,
		CreatedBy: actorID,
		ExpiresAt: models.NowUTC().Add(time.Duration(days) * 24 * time.Hour),
		UsesLeft:  req.UsesLeft,
	}
	if err := s.db.Create(invite).Error; err != nil {
		return nil, fmt.Errorf("create invite code: %w", err)
	}

	metrics.InviteCodesGenerated.WithLabelValues(string(role)).Inc()
	logger.Infof("[InviteCode] Generated code %d for project %d (role=%s, expires in %dd)", invite.ID, req.ProjectID, role, days)
	return invite, nil
}

// List returns the project's unexpired codes, newest first. Expired rows are left in place.
func (s *InviteCodeService) List(projectID, actorID uint) ([]models.ProjectInviteCode, error) {
	codes := []models.ProjectInviteCode{}
	if projectID == 0 {
		return codes, nil
	}
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return nil, err
	}

	if err := activeCodes(s.db, projectID).Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func activeCodes(db *gorm.DB, projectID uint) *gorm.DB {
	return db.Where("project_id = ? AND expires_at > ?", projectID, models.NowUTC()).
		Order("created_at DESC, id DESC")
}

// Redeem joins the actor to the code's project with the code's role. The
// membership insert and the use-count adjustment commit together.
func (s *InviteCodeService) Redeem(code string, actorID uint) (*RedeemResult, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}

	var result *RedeemResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invite models.ProjectInviteCode
		err := tx.Where("code = ? AND expires_at > ?", code, models.NowUTC()).First(&invite).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		member, err := isMember(tx, invite.ProjectID, actorID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		if invite.UsesLeft != nil {
			res := tx.Model(&models.ProjectInviteCode{}).
				Where("id = ? AND uses_left > 0", invite.ID).
				UpdateColumn("uses_left", gorm.Expr("uses_left - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
			if err := tx.Where("id = ? AND uses_left <= 0", invite.ID).Delete(&models.ProjectInviteCode{}).Error; err != nil {
				return err
			}
		}

		invitedBy := invite.CreatedBy
		row := &models.ProjectMember{
			ProjectID: invite.ProjectID,
			UserID:    actorID,
			Role:      invite.Role,
			InvitedBy: &invitedBy,
			JoinedAt:  models.NowUTC(),
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}

		var project models.Project
		if err := tx.Select("id", "name").First(&project, invite.ProjectID).Error; err != nil {
			return err
		}

		result = &RedeemResult{Member: row, ProjectName: project.Name}
		return nil
	})

	switch {
	case err == nil:
		metrics.InviteRedemptions.WithLabelValues("success").Inc()
		logger.Infof("[InviteCode] User %d joined project %d as %s", actorID, result.Member.ProjectID, result.Member.Role)
		return result, nil
	case errors.Is(err, ErrNotFound):
		metrics.InviteRedemptions.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("invite code %w", ErrNotFound)
	case errors.Is(err, ErrAlreadyMember):
		metrics.InviteRedemptions.WithLabelValues("already_member").Inc()
		return nil, ErrAlreadyMember
	default:
		metrics.InviteRedemptions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("redeem invite code: %w", err)
	}
}

// Revoke deletes a code. NotFound is reported before authorization is checked.
func (s *InviteCodeService) Revoke(codeID, actorID uint) error {
	var invite models.ProjectInviteCode
	err := s.db.Select("id", "project_id").First(&invite, codeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("invite code %w", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := requireAdmin(s.db, invite.ProjectID, actorID); err != nil {
		return err
	}

	if err := s.db.Delete(&models.ProjectInviteCode{}, invite.ID).Error; err != nil {
		return fmt.Errorf("delete invite code: %w", err)
	}
	logger.Infof("[InviteCode] Revoked code %d on project %d", invite.ID, invite.ProjectID)
	return nil
}

// PurgeExpired deletes codes whose expiry has passed.
func (s *InviteCodeService) PurgeExpired() (int64, error) {
	res := s.db.Where("expires_at <= ?", models.NowUTC()).Delete(&models.ProjectInviteCode{})
	return res.RowsAffected, res.Error
}

func isMember(db *gorm.DB, projectID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}
