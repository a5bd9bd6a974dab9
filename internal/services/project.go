package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	maxProjectNameLen        = 200
	maxProjectDescriptionLen = 5000
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Name     string `form:"name"`
}

// ProjectWithRole is a project as seen by one member.
type ProjectWithRole struct {
	models.Project
	Role models.Role `json:"role"`
}

type ProjectListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []ProjectWithRole `json:"items"`
}

type CreateProjectRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Settings    models.ProjectSettings `json:"settings"`
	// GenerateCourse queues course generation once the project exists.
	GenerateCourse bool `json:"generate_course"`
}

type UpdateProjectRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Settings    models.ProjectSettings `json:"settings"`
}

// ListForUser returns the projects the actor belongs to, most recently updated first.
func (s *ProjectService) ListForUser(actorID uint, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Table("projects").
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", actorID)
	if req.Name != "" {
		query = query.Where("projects.name LIKE ?", "%"+req.Name+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	items := []ProjectWithRole{}
	offset := (req.Page - 1) * req.PageSize
	err := query.Select("projects.*, project_members.role AS role").
		Order("projects.updated_at DESC, projects.id DESC").
		Offset(offset).Limit(req.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// Get returns the project if the actor is a member. Projects the actor
// cannot see are reported as forbidden whether or not they exist.
func (s *ProjectService) Get(projectID, actorID uint) (*ProjectWithRole, error) {
	role, err := requireMember(s.db, projectID, actorID)
	if err != nil {
		return nil, err
	}
	project, err := s.find(projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectWithRole{Project: *project, Role: role}, nil
}

// Create inserts the project and the creator's owner membership together.
func (s *ProjectService) Create(actorID uint, req *CreateProjectRequest) (*models.Project, error) {
	name, err := validateProjectName(req.Name)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.Description) > maxProjectDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxProjectDescriptionLen)
	}

	project := &models.Project{
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		OwnerID:      actorID,
		Settings:     req.Settings,
		CourseStatus: models.CourseStatusNone,
	}
	if project.Settings == nil {
		project.Settings = models.ProjectSettings{}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectMember{
			ProjectID: project.ID,
			UserID:    actorID,
			Role:      models.RoleOwner,
			JoinedAt:  models.NowUTC(),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	logger.Infof("[Project] User %d created project %d (%s)", actorID, project.ID, project.Name)
	return project, nil
}

// Update changes name, description or settings. Admins only.
func (s *ProjectService) Update(projectID, actorID uint, req *UpdateProjectRequest) (*models.Project, error) {
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return nil, err
	}
	project, err := s.find(projectID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name, err := validateProjectName(*req.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if req.Description != nil {
		if utf8.RuneCountInString(*req.Description) > maxProjectDescriptionLen {
			return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxProjectDescriptionLen)
		}
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Settings != nil {
		project.Settings = req.Settings
		if err := s.db.Model(project).Select("settings").Updates(project).Error; err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.find(projectID)
}

// Delete removes the project and everything hanging off it. Owner only.
func (s *ProjectService) Delete(projectID, actorID uint) error {
	role, err := requireMember(s.db, projectID, actorID)
	if err != nil {
		return err
	}
	project, err := s.find(projectID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner || project.OwnerID != actorID {
		return ErrForbidden
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteCourse(tx, projectID); err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.ProjectDocumentation{},
			&models.ProjectInviteCode{},
			&models.ProjectInvitation{},
			&models.ProjectMember{},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	logger.Infof("[Project] User %d deleted project %d", actorID, projectID)
	return nil
}

func (s *ProjectService) find(projectID uint) (*models.Project, error) {
	var project models.Project
	err := s.db.First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("project %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func validateProjectName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxProjectNameLen {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrValidation, maxProjectNameLen)
	}
	return name, nil
}
