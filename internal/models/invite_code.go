package models

import "time"

// ProjectInviteCode is a shareable code granting Role on ProjectID.
// A nil UsesLeft means the code can be redeemed until it expires.
type ProjectInviteCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index;not null" json:"project_id"`
	Code      string    `gorm:"uniqueIndex;size:14;not null" json:"code"`
	Role      Role      `gorm:"size:20;not null;default:member" json:"role"`
	CreatedBy uint      `json:"created_by"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	UsesLeft  *int      `json:"uses_left"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectInviteCode) TableName() string { return "project_invite_codes" }
