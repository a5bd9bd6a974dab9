package main

import (
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/internal/utils"
	"github.com/onboardhub/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg *config.Config
	db  *gorm.DB

	events    *services.CourseEventHub
	taskQueue services.TaskQueue
	worker    *services.Worker
	janitor   *services.Janitor

	projects    *services.ProjectService
	courses     *services.CourseService
	inviteCodes *services.InviteCodeService
	members     *services.MemberService
	systemLogs  *services.SystemLogService
}

// openDatabase connects and migrates the configured database.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if err := models.InitDB(&cfg.Database); err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, err
	}
	return models.GetDB(), nil
}

// newAppServices wires services on db without starting any background work.
func newAppServices(cfg *config.Config, db *gorm.DB) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	var mailer services.InvitationMailer
	if cfg.Mail.Enabled {
		mailer = services.NewSMTPMailer(&cfg.Mail)
	}

	events := services.NewCourseEventHub()
	courses := services.NewCourseService(db, services.NewGenerator(&cfg.Generator), events)
	taskQueue := services.NewTaskQueue(&cfg.Redis, courses.Process)
	courses.SetQueue(taskQueue)

	inviteCodes := services.NewInviteCodeService(db, &cfg.Invite)
	members := services.NewMemberService(db, mailer, &cfg.Invite)
	systemLogs := services.NewSystemLogService(db)

	return &appServices{
		cfg:         cfg,
		db:          db,
		events:      events,
		taskQueue:   taskQueue,
		janitor:     services.NewJanitor(db, &cfg.Janitor, inviteCodes, members, systemLogs),
		projects:    services.NewProjectService(db),
		courses:     courses,
		inviteCodes: inviteCodes,
		members:     members,
		systemLogs:  systemLogs,
	}
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	db, err := openDatabase(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize system logger
	services.InitSystemLogger(db)

	svc := newAppServices(cfg, db)

	// Start async worker if Redis is enabled
	if worker := services.NewWorker(&cfg.Redis); worker != nil {
		worker.SetProcessor(svc.courses.Process)
		if err := worker.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start worker, queued courses will wait")
		} else {
			svc.worker = worker
		}
	}

	if err := svc.janitor.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start janitor")
	}

	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.janitor.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("All background work stopped")
}
