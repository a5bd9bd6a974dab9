package services

import (
	"encoding/json"

	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/pkg/logger"
	"gorm.io/gorm"
)

var auditDB *gorm.DB

// InitSystemLogger points the package-level audit writers at db.
func InitSystemLogger(db *gorm.DB) {
	auditDB = db
}

// AuditEntry is one row destined for system_logs.
type AuditEntry struct {
	Module    string
	Action    string
	Message   string
	UserID    uint
	ProjectID uint
	IP        string
	UserAgent string
	Extra     interface{}
}

func LogInfo(e AuditEntry)    { writeLog("info", e) }
func LogWarning(e AuditEntry) { writeLog("warning", e) }
func LogError(e AuditEntry)   { writeLog("error", e) }

func writeLog(level string, e AuditEntry) {
	if auditDB == nil {
		return
	}

	var extra string
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			extra = string(b)
		}
	}

	row := &models.SystemLog{
		Level:     level,
		Module:    e.Module,
		Action:    e.Action,
		Message:   e.Message,
		UserID:    optionalID(e.UserID),
		ProjectID: optionalID(e.ProjectID),
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Extra:     extra,
		CreatedAt: models.NowUTC(),
	}
	if err := auditDB.Create(row).Error; err != nil {
		logger.Warnf("[SystemLog] Failed to write %s/%s: %v", e.Module, e.Action, err)
	}
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Level    string `form:"level"`
	Module   string `form:"module"`
	Action   string `form:"action"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

// ListForProject returns the audit trail of one project, newest first. Admins only.
func (s *SystemLogService) ListForProject(projectID, actorID uint, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}
	if projectID == 0 {
		return &SystemLogListResponse{Page: req.Page, PageSize: req.PageSize, Items: []models.SystemLog{}}, nil
	}
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return nil, err
	}

	query := s.db.Model(&models.SystemLog{}).Where("project_id = ?", projectID)
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	logs := []models.SystemLog{}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// CleanupOldLogs deletes logs older than retentionDays and returns the count removed.
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := models.NowUTC().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
