package models

import (
	"fmt"
	"time"

	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// NowUTC is the clock used for stored timestamps. Expiry comparisons rely on
// every timestamp being written in the same zone.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Open connects to the configured database without touching the package-level DB.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(cfg.LogLevel),
		NowFunc:        NowUTC,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&Project{},
		&ProjectMember{},
		&ProjectInvitation{},
		&ProjectInviteCode{},
		&ProjectDocumentation{},
		&CourseTopic{},
		&CourseSummary{},
		&CourseQuiz{},
		&SystemLog{},
		&SchedulerLock{},
	}
}

func AutoMigrate() error {
	return Migrate(DB)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func GetDB() *gorm.DB {
	return DB
}
