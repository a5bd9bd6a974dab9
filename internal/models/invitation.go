package models

import "time"

// ProjectInvitation is an email-addressed request to join a project.
// It is pending while AcceptedAt is nil.
type ProjectInvitation struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"index;not null" json:"project_id"`
	Email      string     `gorm:"size:255;not null;index" json:"email"`
	Role       Role       `gorm:"size:20;not null;default:member" json:"role"`
	InvitedBy  uint       `json:"invited_by"`
	Token      string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (ProjectInvitation) TableName() string { return "project_invitations" }

// Pending reports whether the invitation can still be accepted at now.
func (i *ProjectInvitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && i.ExpiresAt.After(now)
}
