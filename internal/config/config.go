package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"rent-billing/internal/logger"
)

// Schedules holds the cron spec of every billing job.
type Schedules struct {
	Generate string `yaml:"generate" validate:"required"`
	Overdue  string `yaml:"overdue" validate:"required"`
	LateFees string `yaml:"late_fees" validate:"required"`
	Cleanup  string `yaml:"cleanup" validate:"required"`
}

// NotifyConfig configures outbound notifications.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	Template   string        `yaml:"template"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output string `yaml:"output"`
}

// Config is the process configuration.
type Config struct {
	DatabaseURL            string        `yaml:"database_url"`
	HTTPAddr               string        `yaml:"http_addr" validate:"required"`
	JWTSecret              string        `yaml:"-"`
	Timezone               string        `yaml:"timezone" validate:"required"`
	Workers                int           `yaml:"workers" validate:"min=1,max=64"`
	SchedulerEnabled       bool          `yaml:"scheduler_enabled"`
	Schedules              Schedules     `yaml:"schedules"`
	RedisURL               string        `yaml:"redis_url"`
	JobLockTTL             time.Duration `yaml:"job_lock_ttl" validate:"gt=0"`
	DefaultElectricityRate float64       `yaml:"default_electricity_rate" validate:"gt=0"`
	Notify                 NotifyConfig  `yaml:"notify"`
	Log                    LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		Timezone:         "Asia/Dhaka",
		Workers:          4,
		SchedulerEnabled: true,
		Schedules: Schedules{
			Generate: "1 0 * * *",
			Overdue:  "5 0 * * *",
			LateFees: "10 0 * * *",
			Cleanup:  "15 0 * * *",
		},
		JobLockTTL:             10 * time.Minute,
		DefaultElectricityRate: 8,
		Notify:                 NotifyConfig{Timeout: 5 * time.Second},
		Log:                    LogConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by BILLING_CONFIG and the environment, in that order of precedence.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.Timezone = getenvDefault("BILLING_TIMEZONE", cfg.Timezone)
	cfg.Workers = getenvIntDefault("BILLING_WORKERS", cfg.Workers)
	cfg.SchedulerEnabled = getenvBoolDefault("SCHEDULER_ENABLED", cfg.SchedulerEnabled)
	cfg.Schedules.Generate = getenvDefault("SCHEDULE_GENERATE", cfg.Schedules.Generate)
	cfg.Schedules.Overdue = getenvDefault("SCHEDULE_OVERDUE", cfg.Schedules.Overdue)
	cfg.Schedules.LateFees = getenvDefault("SCHEDULE_LATE_FEES", cfg.Schedules.LateFees)
	cfg.Schedules.Cleanup = getenvDefault("SCHEDULE_CLEANUP", cfg.Schedules.Cleanup)
	cfg.RedisURL = getenvDefault("REDIS_URL", cfg.RedisURL)
	cfg.JobLockTTL = getenvDuration("JOB_LOCK_TTL", cfg.JobLockTTL)
	cfg.DefaultElectricityRate = getenvFloatDefault("DEFAULT_ELECTRICITY_RATE", cfg.DefaultElectricityRate)
	cfg.Notify.WebhookURL = getenvDefault("NOTIFY_WEBHOOK_URL", cfg.Notify.WebhookURL)
	cfg.Notify.Timeout = getenvDuration("NOTIFY_TIMEOUT", cfg.Notify.Timeout)
	cfg.Notify.Template = getenvDefault("NOTIFY_TEMPLATE", cfg.Notify.Template)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Output = getenvDefault("LOG_OUTPUT", cfg.Log.Output)
}

// Validate checks field constraints and that the time zone resolves.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// RequireServe checks the settings the HTTP server cannot start without.
func (c Config) RequireServe() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL or PG_DSN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// Location returns the billing time zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggerConfig maps the log section onto the logger package.
func (c Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	if c.Log.Level != "" {
		cfg.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	if c.Log.Output != "" {
		cfg.Output = c.Log.Output
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
