// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/models"
	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database in a per-test temp directory.
// The pool is capped at one connection so sqlite never reports a locked database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := models.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		LogLevel:     "silent",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
