package services

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/onboardhub/backend/internal/models"
	"gorm.io/gorm"
)

// Per-field limit on documentation text, counted in characters.
const MaxDocumentationFieldLen = 20000

type DocumentationService struct {
	db *gorm.DB
}

func NewDocumentationService(db *gorm.DB) *DocumentationService {
	return &DocumentationService{db: db}
}

type DocumentationRequest struct {
	Overview     string `json:"overview"`
	Setup        string `json:"setup"`
	Architecture string `json:"architecture"`
	Conventions  string `json:"conventions"`
	Resources    string `json:"resources"`
}

func (r *DocumentationRequest) validate() error {
	fields := []struct {
		name, value string
	}{
		{"overview", r.Overview},
		{"setup", r.Setup},
		{"architecture", r.Architecture},
		{"conventions", r.Conventions},
		{"resources", r.Resources},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > MaxDocumentationFieldLen {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, f.name, MaxDocumentationFieldLen)
		}
	}
	return nil
}

// Get returns the project's documentation, or an empty record when none was saved.
func (s *DocumentationService) Get(projectID, actorID uint) (*models.ProjectDocumentation, error) {
	if projectID == 0 {
		return &models.ProjectDocumentation{}, nil
	}
	if _, err := requireMember(s.db, projectID, actorID); err != nil {
		return nil, err
	}
	return loadDocumentation(s.db, projectID)
}

func loadDocumentation(db *gorm.DB, projectID uint) (*models.ProjectDocumentation, error) {
	var doc models.ProjectDocumentation
	err := db.Where("project_id = ?", projectID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ProjectDocumentation{ProjectID: projectID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Upsert replaces all documentation fields. Admins only.
func (s *DocumentationService) Upsert(projectID, actorID uint, req *DocumentationRequest) (*models.ProjectDocumentation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return nil, err
	}

	doc, err := loadDocumentation(s.db, projectID)
	if err != nil {
		return nil, err
	}
	doc.Overview = req.Overview
	doc.Setup = req.Setup
	doc.Architecture = req.Architecture
	doc.Conventions = req.Conventions
	doc.Resources = req.Resources
	doc.UpdatedBy = actorID

	if err := s.db.Save(doc).Error; err != nil {
		return nil, fmt.Errorf("save documentation: %w", err)
	}
	return doc, nil
}
