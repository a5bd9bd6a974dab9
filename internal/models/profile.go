package models

import "time"

// Profile is the account record members, invitations and codes refer to.
type Profile struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName  string     `gorm:"size:100" json:"display_name"`
	AvatarURL    string     `gorm:"size:500" json:"avatar_url"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
