package services

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const janitorLockName = "janitor"

// JanitorReport counts rows removed by one janitor run.
type JanitorReport struct {
	InviteCodes int64 `json:"invite_codes"`
	Invitations int64 `json:"invitations"`
	SystemLogs  int64 `json:"system_logs"`
}

// Janitor periodically deletes expired invite codes, stale invitations and old audit logs.
type Janitor struct {
	db       *gorm.DB
	cfg      config.JanitorConfig
	codes    *InviteCodeService
	members  *MemberService
	logs     *SystemLogService
	instance string

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewJanitor(db *gorm.DB, cfg *config.JanitorConfig, codes *InviteCodeService, members *MemberService, logs *SystemLogService) *Janitor {
	host, _ := os.Hostname()
	j := &Janitor{
		db:       db,
		codes:    codes,
		members:  members,
		logs:     logs,
		instance: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
	}
	if cfg != nil {
		j.cfg = *cfg
	}
	if j.cfg.Schedule == "" {
		j.cfg.Schedule = "@hourly"
	}
	return j
}

// Start schedules the janitor. It is a no-op when disabled.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.cfg.Enabled || j.cron != nil {
		return nil
	}

	c := cron.New()
	entryID, err := c.AddFunc(j.cfg.Schedule, j.runScheduled)
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.cfg.Schedule, err)
	}
	j.cron = c
	j.entryID = entryID
	c.Start()
	logger.Infof("[Janitor] Scheduled (cron: %s)", j.cfg.Schedule)
	return nil
}

func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron == nil {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.cron.Remove(j.entryID)
	j.cron = nil
	logger.Infof("[Janitor] Stopped")
}

func (j *Janitor) runScheduled() {
	key := models.NowUTC().Truncate(time.Minute).Format(time.RFC3339)
	ok, err := j.acquire(key, time.Hour)
	if err != nil {
		logger.Errorf("[Janitor] Failed to acquire lock: %v", err)
		return
	}
	if !ok {
		logger.Debug().Str("key", key).Msg("[Janitor] Run owned by another instance")
		return
	}
	if _, err := j.RunOnce(); err != nil {
		logger.Errorf("[Janitor] Run failed: %v", err)
	}
}

// acquire claims the run identified by key. Only one instance can insert a
// given (name, key) pair; stale locks are removed first.
func (j *Janitor) acquire(key string, ttl time.Duration) (bool, error) {
	now := models.NowUTC()
	if err := j.db.Where("lock_name = ? AND expires_at < ?", janitorLockName, now).Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	err := j.db.Create(&models.SchedulerLock{
		LockName:  janitorLockName,
		LockKey:   key,
		LockedBy:  j.instance,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RunOnce purges everything that has expired. Each step runs even if an
// earlier one failed; the first error is returned.
func (j *Janitor) RunOnce() (*JanitorReport, error) {
	report := &JanitorReport{}
	var firstErr error
	record := func(kind string, n int64, err error) int64 {
		if err != nil {
			logger.Errorf("[Janitor] Purging %s failed: %v", kind, err)
			if firstErr == nil {
				firstErr = err
			}
			return 0
		}
		metrics.ExpiredPurged.WithLabelValues(kind).Add(float64(n))
		return n
	}

	if j.codes != nil {
		n, err := j.codes.PurgeExpired()
		report.InviteCodes = record("invite_code", n, err)
	}
	if j.members != nil {
		n, err := j.members.PurgeExpiredInvitations()
		report.Invitations = record("invitation", n, err)
	}
	if j.logs != nil && j.cfg.LogRetentionDays > 0 {
		n, err := j.logs.CleanupOldLogs(j.cfg.LogRetentionDays)
		report.SystemLogs = record("system_log", n, err)
	}

	logger.Infof("[Janitor] Removed %d invite codes, %d invitations, %d system logs",
		report.InviteCodes, report.Invitations, report.SystemLogs)
	return report, firstErr
}
