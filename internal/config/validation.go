// validation.go - Startup validation of the environment.
//
// All problems are collected and reported together so a misconfigured
// deployment fails once with the full list.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects configuration validation errors.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

// AddError adds a validation error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *Validator) ErrorString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):\n", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidatePort validates ":port" or "host:port".
func (v *Validator) ValidatePort(key, value string) {
	if value == "" {
		return
	}

	portStr := value
	if i := strings.LastIndex(value, ":"); i >= 0 {
		portStr = value[i+1:]
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *Validator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *Validator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}
	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateIntRange validates an integer within [min, max].
func (v *Validator) ValidateIntRange(key, value string, min, max int64) {
	if value == "" {
		return
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}
	if num < min || num > max {
		v.AddError(key, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

// ValidatePositiveDuration validates a Go duration string such as "30s".
func (v *Validator) ValidatePositiveDuration(key, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.AddError(key, "must be a valid duration (e.g., 30s, 2m)")
		return
	}
	if d <= 0 {
		v.AddError(key, "must be a positive duration")
	}
}

// ValidateEnvironment checks every variable Load reads.
func ValidateEnvironment() error {
	v := NewValidator()

	store := os.Getenv("SLOT_STORE")
	v.ValidateEnum("SLOT_STORE", store, []string{StorePostgres, StoreMemory})

	if store == "" || store == StorePostgres {
		dbURL := os.Getenv("DATABASE_URL")
		switch {
		case dbURL == "":
			v.AddError("DATABASE_URL", "required environment variable not set")
		case !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://"):
			v.AddError("DATABASE_URL", "must be a valid PostgreSQL connection string")
		}
	}

	v.ValidatePort("SLOT_ADDR", os.Getenv("SLOT_ADDR"))

	v.ValidatePositiveDuration("SLOT_UPLOAD_WINDOW", os.Getenv("SLOT_UPLOAD_WINDOW"))
	v.ValidatePositiveDuration("SLOT_READY_WAIT", os.Getenv("SLOT_READY_WAIT"))
	v.ValidatePositiveDuration("SLOT_CONNECT_TIMEOUT", os.Getenv("SLOT_CONNECT_TIMEOUT"))

	v.ValidatePositiveInt("SLOT_MAX_FILE_BYTES", os.Getenv("SLOT_MAX_FILE_BYTES"))
	v.ValidatePositiveInt("SLOT_MAX_FIELD_BYTES", os.Getenv("SLOT_MAX_FIELD_BYTES"))
	v.ValidatePositiveInt("SLOT_MAX_META_BYTES", os.Getenv("SLOT_MAX_META_BYTES"))
	v.ValidateIntRange("SLOT_MAX_TEXT_LENGTH", os.Getenv("SLOT_MAX_TEXT_LENGTH"), 1, MaxTextLengthLimit)
	v.ValidateIntRange("SLOT_RATE_LIMIT", os.Getenv("SLOT_RATE_LIMIT"), 0, MaxRateLimit)

	v.ValidateEnum("SLOT_LOG_FORMAT", os.Getenv("SLOT_LOG_FORMAT"), []string{"json", "text"})
	v.ValidateEnum("SLOT_LOG_LEVEL", os.Getenv("SLOT_LOG_LEVEL"), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("SLOT_ENV", os.Getenv("SLOT_ENV"), []string{"development", "production", "staging"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}
