package services

import (
	"errors"
	"fmt"

	"github.com/onboardhub/backend/internal/models"
	"gorm.io/gorm"
)

// MemberRole returns the actor's role on projectID. ok is false when the
// actor holds no membership.
func MemberRole(db *gorm.DB, projectID, userID uint) (role models.Role, ok bool, err error) {
	var member models.ProjectMember
	err = db.Select("role").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return member.Role, true, nil
}

// IsProjectAdmin mirrors the store predicate: the actor is owner or admin.
func IsProjectAdmin(db *gorm.DB, projectID, userID uint) (bool, error) {
	role, ok, err := MemberRole(db, projectID, userID)
	if err != nil || !ok {
		return false, err
	}
	return role.IsAdmin(), nil
}

// IsProjectMember mirrors the store predicate: the actor holds any role.
func IsProjectMember(db *gorm.DB, projectID, userID uint) (bool, error) {
	_, ok, err := MemberRole(db, projectID, userID)
	return ok, err
}

func requireAdmin(db *gorm.DB, projectID, userID uint) (models.Role, error) {
	role, ok, err := MemberRole(db, projectID, userID)
	if err != nil {
		return "", fmt.Errorf("check project role: %w", err)
	}
	if !ok || !role.IsAdmin() {
		return "", ErrForbidden
	}
	return role, nil
}

func requireMember(db *gorm.DB, projectID, userID uint) (models.Role, error) {
	role, ok, err := MemberRole(db, projectID, userID)
	if err != nil {
		return "", fmt.Errorf("check project role: %w", err)
	}
	if !ok {
		return "", ErrForbidden
	}
	return role, nil
}
