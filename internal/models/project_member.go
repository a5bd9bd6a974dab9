package models

import "time"

// ProjectMember represents a user's membership and role within a project.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *Profile  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      Role      `gorm:"size:20;not null;default:member" json:"role"`
	InvitedBy *uint     `json:"invited_by,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (ProjectMember) TableName() string { return "project_members" }
