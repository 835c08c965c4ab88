// Package config provides application configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperrors "portfolio_tracker/internal/errors"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	Port string `validate:"required,numeric"`
	Host string

	// Database settings
	DBPath string `validate:"required"`

	// Logging
	LogLevel  string `validate:"omitempty,oneof=debug info warn warning error"`
	LogPretty bool

	// Ingestion
	InboxDir      string `validate:"required"`
	ProcessedDir  string `validate:"required"`
	InboxSchedule string // cron spec with seconds, empty disables the scheduler
	MappingsFile  string
	DefaultFXRate float64 `validate:"gt=0"`

	// Store write throttling
	WriteInterval     time.Duration `validate:"gte=0"`
	RetryBackoff      time.Duration `validate:"gte=0"`
	MaxRetries        int           `validate:"gte=0,lte=10"`
	RateLimitCooldown time.Duration `validate:"gte=0"`

	// Admin
	AdminTokenHash string // bcrypt hash guarding destructive endpoints
	SeedDemo       bool
}

// New creates a new Config with values from the environment, an optional
// .env file, or defaults.
func New() *Config {
	// A missing .env file is fine; the real environment still applies.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Host:              getEnv("HOST", "localhost"),
		DBPath:            getEnv("DB_PATH", filepath.Join("data", "portfolio.db")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvBool("LOG_PRETTY", true),
		InboxDir:          getEnv("INBOX_DIR", filepath.Join("data", "inbox")),
		ProcessedDir:      getEnv("PROCESSED_DIR", filepath.Join("data", "processed")),
		InboxSchedule:     getEnv("INBOX_SCHEDULE", ""),
		MappingsFile:      getEnv("MAPPINGS_FILE", filepath.Join("data", "mappings.toml")),
		DefaultFXRate:     getEnvFloat("DEFAULT_FX_RATE", 1150.0),
		WriteInterval:     getEnvDuration("WRITE_INTERVAL", time.Second),
		RetryBackoff:      getEnvDuration("RETRY_BACKOFF", 5*time.Second),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		RateLimitCooldown: getEnvDuration("RATE_LIMIT_COOLDOWN", 30*time.Second),
		AdminTokenHash:    getEnv("ADMIN_TOKEN_HASH", ""),
		SeedDemo:          getEnvBool("SEED_DEMO", false),
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid configuration", err)
	}
	return nil
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
