package models

import "time"

type ProjectDocumentation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"uniqueIndex;not null" json:"project_id"`
	Overview     string    `gorm:"type:text" json:"overview"`
	Setup        string    `gorm:"type:text" json:"setup"`
	Architecture string    `gorm:"type:text" json:"architecture"`
	Conventions  string    `gorm:"type:text" json:"conventions"`
	Resources    string    `gorm:"type:text" json:"resources"`
	UpdatedBy    uint      `json:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ProjectDocumentation) TableName() string { return "project_documentation" }

// Empty reports whether no documentation field carries text.
func (d *ProjectDocumentation) Empty() bool {
	return d == nil || d.Overview == "" && d.Setup == "" && d.Architecture == "" &&
		d.Conventions == "" && d.Resources == ""
}
