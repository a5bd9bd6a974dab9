package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Generator GeneratorConfig `yaml:"generator"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	Invite    InviteConfig    `yaml:"invite"`
	Janitor   JanitorConfig   `yaml:"janitor"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite, mysql, postgres
	DSN          string `yaml:"dsn"`
	LogLevel     string `yaml:"log_level"` // silent, error, warn, info
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// GeneratorConfig selects the text generation backend used for course content.
type GeneratorConfig struct {
	Provider       string  `yaml:"provider"` // gemini, openai, azure, anthropic, ollama
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MailConfig for invitation emails. Disabled by default; invitations are still recorded.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
	AppURL   string `yaml:"app_url"` // base URL used in accept links
}

type InviteConfig struct {
	DefaultExpiryDays    int     `yaml:"default_expiry_days"`
	InvitationExpiryDays int     `yaml:"invitation_expiry_days"`
	JoinRPS              float64 `yaml:"join_rps"`
	JoinBurst            int     `yaml:"join_burst"`
}

type JanitorConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Schedule         string `yaml:"schedule"` // cron expression
	LogRetentionDays int    `yaml:"log_retention_days"`
}

var GlobalConfig *Config

// Load reads configuration from configPath (default config.yaml), falls back to
// defaults when the file is missing, and applies environment overrides. A .env
// file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	_ = godotenv.Load()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	cfg.applyFallbacks()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "onboardhub.db",
			LogLevel:     "warn",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		JWT: JWTConfig{
			Secret:     "onboardhub-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Generator: GeneratorConfig{
			Provider:       "gemini",
			Model:          "gemini-2.0-flash",
			Temperature:    0.4,
			MaxTokens:      8192,
			TimeoutSeconds: 90,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Mail: MailConfig{
			Enabled: false,
			Port:    587,
			AppURL:  "http://localhost:5173",
		},
		Invite: InviteConfig{
			DefaultExpiryDays:    30,
			InvitationExpiryDays: 7,
			JoinRPS:              1,
			JoinBurst:            5,
		},
		Janitor: JanitorConfig{
			Enabled:          true,
			Schedule:         "@hourly",
			LogRetentionDays: 30,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if provider := os.Getenv("GENERATOR_PROVIDER"); provider != "" {
		c.Generator.Provider = provider
	}
	if baseURL := os.Getenv("GENERATOR_BASE_URL"); baseURL != "" {
		c.Generator.BaseURL = baseURL
	}
	if apiKey := os.Getenv("GENERATOR_API_KEY"); apiKey != "" {
		c.Generator.APIKey = apiKey
	}
	if model := os.Getenv("GENERATOR_MODEL"); model != "" {
		c.Generator.Model = model
	}
	if host := os.Getenv("MAIL_HOST"); host != "" {
		c.Mail.Host = host
		c.Mail.Enabled = true
	}
	if username := os.Getenv("MAIL_USERNAME"); username != "" {
		c.Mail.Username = username
	}
	if password := os.Getenv("MAIL_PASSWORD"); password != "" {
		c.Mail.Password = password
	}
	if appURL := os.Getenv("APP_URL"); appURL != "" {
		c.Mail.AppURL = appURL
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

func (c *Config) applyFallbacks() {
	if c.Invite.DefaultExpiryDays <= 0 {
		c.Invite.DefaultExpiryDays = 30
	}
	if c.Invite.InvitationExpiryDays <= 0 {
		c.Invite.InvitationExpiryDays = 7
	}
	if c.Invite.JoinRPS <= 0 {
		c.Invite.JoinRPS = 1
	}
	if c.Invite.JoinBurst <= 0 {
		c.Invite.JoinBurst = 5
	}
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = 90
	}
	if c.Janitor.Schedule == "" {
		c.Janitor.Schedule = "@hourly"
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
