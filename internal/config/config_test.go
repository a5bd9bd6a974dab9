package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Generator.Provider != "gemini" {
		t.Errorf("Generator.Provider = %q, expected %q", cfg.Generator.Provider, "gemini")
	}
	if cfg.Invite.DefaultExpiryDays != 30 {
		t.Errorf("Invite.DefaultExpiryDays = %d, expected 30", cfg.Invite.DefaultExpiryDays)
	}
	if cfg.Invite.InvitationExpiryDays != 7 {
		t.Errorf("Invite.InvitationExpiryDays = %d, expected 7", cfg.Invite.InvitationExpiryDays)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
	if cfg.Mail.Enabled {
		t.Error("Mail should be disabled by default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" && os.Getenv("SERVER_HOST") == "" {
		t.Errorf("Server.Host = %q, expected default", cfg.Server.Host)
	}
	if GlobalConfig != cfg {
		t.Error("Load should set GlobalConfig")
	}
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "9090"
generator:
  provider: openai
  model: gpt-4o-mini
invite:
  default_expiry_days: 14
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SERVER_PORT", "")
	t.Setenv("GENERATOR_PROVIDER", "")
	t.Setenv("GENERATOR_MODEL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	if cfg.Generator.Provider != "openai" {
		t.Errorf("Generator.Provider = %q, expected %q", cfg.Generator.Provider, "openai")
	}
	if cfg.Invite.DefaultExpiryDays != 14 {
		t.Errorf("Invite.DefaultExpiryDays = %d, expected 14", cfg.Invite.DefaultExpiryDays)
	}
	// untouched sections keep their defaults
	if cfg.Invite.InvitationExpiryDays != 7 {
		t.Errorf("Invite.InvitationExpiryDays = %d, expected 7", cfg.Invite.InvitationExpiryDays)
	}
	if cfg.Database.Driver != "sqlite" && os.Getenv("DB_DRIVER") == "" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail on invalid YAML")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/onboard")
	t.Setenv("GENERATOR_API_KEY", "key-123")
	t.Setenv("MAIL_HOST", "smtp.example.com")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "7000")
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Database.DSN != "postgres://localhost/onboard" {
		t.Errorf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Generator.APIKey != "key-123" {
		t.Errorf("Generator.APIKey = %q, expected %q", cfg.Generator.APIKey, "key-123")
	}
	if !cfg.Mail.Enabled || cfg.Mail.Host != "smtp.example.com" {
		t.Errorf("MAIL_HOST should enable mail, got enabled=%v host=%q", cfg.Mail.Enabled, cfg.Mail.Host)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{"host only", "redis://localhost:6379", "localhost:6379", "", 0},
		{"with db", "redis://localhost:6379/2", "localhost:6379", "", 2},
		{"with password", "redis://:secret@redis:6380/1", "redis:6380", "secret", 1},
		{"user and password", "redis://user:pw@cache:6379", "cache:6379", "pw", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestApplyFallbacks(t *testing.T) {
	cfg := &Config{}
	cfg.applyFallbacks()

	if cfg.Invite.DefaultExpiryDays != 30 {
		t.Errorf("DefaultExpiryDays = %d, expected 30", cfg.Invite.DefaultExpiryDays)
	}
	if cfg.Invite.InvitationExpiryDays != 7 {
		t.Errorf("InvitationExpiryDays = %d, expected 7", cfg.Invite.InvitationExpiryDays)
	}
	if cfg.Janitor.Schedule != "@hourly" {
		t.Errorf("Janitor.Schedule = %q, expected %q", cfg.Janitor.Schedule, "@hourly")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = "9999"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
}
