// Package config loads and validates application configuration from
// defaults, an optional JSON file, and LINGOKIT_* environment variables
// (highest precedence).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lingokit/adapters/redis"
	"lingokit/adapters/sqlx"
	"lingokit/core"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"LINGOKIT_ENV"`
	Profile     string      `json:"profile" env:"LINGOKIT_PROFILE"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Reward schedule overrides
	Rewards RewardsConfig `json:"rewards"`

	// Event dispatch configuration
	Events EventsConfig `json:"events"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Outbound integrations (webhooks, analytics export)
	Integrations IntegrationsConfig `json:"integrations"`

	// Security configuration
	Security SecurityConfig `json:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"LINGOKIT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"LINGOKIT_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"LINGOKIT_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"LINGOKIT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"LINGOKIT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"LINGOKIT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"LINGOKIT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"LINGOKIT_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"LINGOKIT_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty"`
	SQL     sqlx.Config  `json:"sql,omitempty"`
	File    FileConfig   `json:"file,omitempty"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"LINGOKIT_STORAGE_FILE_PATH"`
}

// RewardsConfig holds XP reward overrides. Zero values fall back to the
// built-in schedule.
type RewardsConfig struct {
	LessonComplete    int `json:"lesson_complete" env:"LINGOKIT_REWARDS_LESSON_COMPLETE"`
	PerfectScore      int `json:"perfect_score" env:"LINGOKIT_REWARDS_PERFECT_SCORE"`
	DailyBonus        int `json:"daily_bonus" env:"LINGOKIT_REWARDS_DAILY_BONUS"`
	StreakBonusPerDay int `json:"streak_bonus_per_day" env:"LINGOKIT_REWARDS_STREAK_BONUS_PER_DAY"`
	StreakBonusCap    int `json:"streak_bonus_cap" env:"LINGOKIT_REWARDS_STREAK_BONUS_CAP"`
	FirstTrack        int `json:"first_track" env:"LINGOKIT_REWARDS_FIRST_TRACK"`
}

// ToRewards merges the overrides onto the default schedule.
func (r RewardsConfig) ToRewards() core.Rewards {
	rw := core.DefaultRewards()
	if r.LessonComplete > 0 {
		rw.LessonComplete = r.LessonComplete
	}
	if r.PerfectScore > 0 {
		rw.PerfectScore = r.PerfectScore
	}
	if r.DailyBonus > 0 {
		rw.DailyBonus = r.DailyBonus
	}
	if r.StreakBonusPerDay > 0 {
		rw.StreakBonusPerDay = r.StreakBonusPerDay
	}
	if r.StreakBonusCap > 0 {
		rw.StreakBonusCap = r.StreakBonusCap
	}
	if r.FirstTrack > 0 {
		rw.FirstTrack = r.FirstTrack
	}
	return rw
}

// EventsConfig holds event bus configuration
type EventsConfig struct {
	// Dispatch selects handler invocation: "sync" or "async".
	Dispatch string `json:"dispatch" env:"LINGOKIT_EVENTS_DISPATCH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"LINGOKIT_LOG_LEVEL"`
	Format     string            `json:"format" env:"LINGOKIT_LOG_FORMAT"`
	Output     string            `json:"output" env:"LINGOKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// IntegrationsConfig holds outbound integration configuration
type IntegrationsConfig struct {
	// WebhookURLs receive every domain event as a JSON POST.
	WebhookURLs []string `json:"webhook_urls,omitempty" env:"LINGOKIT_WEBHOOK_URLS"`

	// Analytics export target. Empty endpoint disables the exporter.
	AnalyticsEndpoint  string `json:"analytics_endpoint" env:"LINGOKIT_ANALYTICS_ENDPOINT"`
	AnalyticsAPIKey    string `json:"analytics_api_key" env:"LINGOKIT_ANALYTICS_API_KEY"`
	AnalyticsBatchSize int    `json:"analytics_batch_size" env:"LINGOKIT_ANALYTICS_BATCH_SIZE"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"LINGOKIT_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"LINGOKIT_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"LINGOKIT_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" env:"LINGOKIT_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"LINGOKIT_SECURITY_RATE_LIMIT_CLEANUP"`
}

// Validate validates security settings.
func (s SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadProfile returns the defaults adjusted for a named deployment profile.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch Environment(name) {
	case EnvDevelopment:
		cfg.Environment = EnvDevelopment
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "debug"
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Logging.Level = "info"
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Logging.Level = "warn"
		cfg.Server.CORSOrigin = ""
		cfg.Security.EnableRateLimit = true
	default:
		return nil, fmt.Errorf("unknown profile: %s", name)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file. Environment variables
// still override file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/lingokit.json",
			},
		},
		Events: EventsConfig{
			Dispatch: "async",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Integrations: IntegrationsConfig{
			AnalyticsBatchSize: 10,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Rewards.ToRewards().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rewards config: %v", err))
	}

	if err := c.Events.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("events config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Integrations.AnalyticsAPIKey != "" {
		cfg.Integrations.AnalyticsAPIKey = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
