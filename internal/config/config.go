// Package config loads slotdrop settings from the environment.
//
// An optional .env file in the working directory is applied first; variables
// already present in the process environment win over it. Every value has a
// default so the service starts with nothing configured except DATABASE_URL
// (or SLOT_STORE=memory).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Upper bounds accepted for SLOT_MAX_TEXT_LENGTH and SLOT_RATE_LIMIT.
const (
	MaxTextLengthLimit = 1 << 16
	MaxRateLimit       = 100000
)

// Config holds runtime settings.
type Config struct {
	Addr    string
	Env     string
	Version string
	Commit  string

	Store          string
	DatabaseURL    string
	ConnectTimeout time.Duration
	ReadyWait      time.Duration

	Limits Limits

	// RateLimit is write requests per minute per client IP; 0 disables it.
	RateLimit int

	LogLevel  string
	LogFormat string
}

// Limits are the protocol and ingestion bounds.
type Limits struct {
	UploadWindow  time.Duration
	MaxFileBytes  int64
	MaxFieldBytes int64
	MaxTextLength int
	// MaxMetaBytes caps the whole POST /file body.
	MaxMetaBytes  int64
}

// DefaultLimits mirrors the fixed values of the reservation protocol.
func DefaultLimits() Limits {
	return Limits{
		UploadWindow:  30 * time.Second,
		MaxFileBytes:  1 << 20,
		MaxFieldBytes: 1 << 20,
		MaxTextLength: 255,
		MaxMetaBytes:  64 << 10,
	}
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	if err := ValidateEnvironment(); err != nil {
		return nil, err
	}

	def := DefaultLimits()
	cfg := &Config{
		Addr:           getenvDefault("SLOT_ADDR", ":8080"),
		Env:            getenvDefault("SLOT_ENV", "development"),
		Version:        getenvDefault("SLOT_VERSION", "dev"),
		Commit:         getenvDefault("SLOT_COMMIT", "unknown"),
		Store:          getenvDefault("SLOT_STORE", StorePostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ConnectTimeout: getenvDuration("SLOT_CONNECT_TIMEOUT", 30*time.Second),
		ReadyWait:      getenvDuration("SLOT_READY_WAIT", 2*time.Second),
		Limits: Limits{
			UploadWindow:  getenvDuration("SLOT_UPLOAD_WINDOW", def.UploadWindow),
			MaxFileBytes:  getenvInt64("SLOT_MAX_FILE_BYTES", def.MaxFileBytes),
			MaxFieldBytes: getenvInt64("SLOT_MAX_FIELD_BYTES", def.MaxFieldBytes),
			MaxTextLength: int(getenvInt64("SLOT_MAX_TEXT_LENGTH", int64(def.MaxTextLength))),
			MaxMetaBytes:  getenvInt64("SLOT_MAX_META_BYTES", def.MaxMetaBytes),
		},
		RateLimit: int(getenvInt64("SLOT_RATE_LIMIT", 0)),
		LogLevel:  getenvDefault("SLOT_LOG_LEVEL", "info"),
		LogFormat: os.Getenv("SLOT_LOG_FORMAT"),
	}
	return cfg, nil
}

// JSONLogs reports whether logs should be emitted as JSON.
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json" || (c.LogFormat == "" && c.Env == "production")
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Values are validated before these run, so parse errors fall back to def.
func getenvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}

func getenvInt64(key string, def int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return def
	}
	return n
}
