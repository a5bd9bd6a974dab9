package models

import "time"

// CourseStatus tracks course generation for a project.
type CourseStatus string

const (
	CourseStatusNone       CourseStatus = "none"
	CourseStatusGenerating CourseStatus = "generating"
	CourseStatusPopulated  CourseStatus = "populated"
	CourseStatusFailed     CourseStatus = "failed"
)

// ProjectSettings is free-form per-project configuration stored as JSON.
type ProjectSettings map[string]interface{}

// Project is the top-level container for onboarding content and membership.
type Project struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	OwnerID      uint            `gorm:"index;not null" json:"owner_id"`
	Settings     ProjectSettings `gorm:"type:text;serializer:json" json:"settings"`
	CourseStatus CourseStatus    `gorm:"size:20;default:none" json:"course_status"`
	CourseError  string          `gorm:"size:500" json:"course_error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
