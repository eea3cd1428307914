package secore

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SecurityLevel selects a tier of limiter and session constants. Hosts
// that do not tune individual knobs pick a level and get a consistent
// policy.
type SecurityLevel string

const (
	// LevelStandard suits interactive tooling: generous quotas, long
	// session timeout.
	LevelStandard SecurityLevel = "standard"

	// LevelElevated tightens quotas for semi-trusted surfaces.
	LevelElevated SecurityLevel = "elevated"

	// LevelStrict is for high-exposure surfaces: small quotas, short
	// sessions.
	LevelStrict SecurityLevel = "strict"
)

// Config holds the security core configuration.
type Config struct {
	// MaxRequests is the sustained admission quota per identity per
	// Window.
	MaxRequests int

	// Window is the sliding-window length for admission control.
	Window time.Duration

	// BurstLimit caps admitted requests in any trailing second.
	BurstLimit int

	// SessionTimeout is the inactivity span after which a session
	// expires.
	SessionTimeout time.Duration

	// AuditEnabled controls whether audit events are emitted.
	AuditEnabled bool

	// ServiceName names the embedding host in telemetry and audit
	// source tags.
	ServiceName string

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// LevelConfig returns the constants for a security level. Unknown levels
// fall back to LevelStandard.
func LevelConfig(level SecurityLevel) Config {
	switch level {
	case LevelStrict:
		return Config{
			MaxRequests:    10,
			Window:         time.Minute,
			BurstLimit:     3,
			SessionTimeout: 5 * time.Minute,
			AuditEnabled:   true,
		}
	case LevelElevated:
		return Config{
			MaxRequests:    30,
			Window:         time.Minute,
			BurstLimit:     5,
			SessionTimeout: 15 * time.Minute,
			AuditEnabled:   true,
		}
	default:
		return Config{
			MaxRequests:    100,
			Window:         time.Minute,
			BurstLimit:     10,
			SessionTimeout: 30 * time.Minute,
			AuditEnabled:   true,
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("MaxRequests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("Window must be positive, got %v", c.Window)
	}
	if c.BurstLimit < 0 {
		return fmt.Errorf("BurstLimit must not be negative, got %d", c.BurstLimit)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SessionTimeout must be positive, got %v", c.SessionTimeout)
	}
	return nil
}

// LoadFromEnv builds a Config from environment variables, starting from
// the tier selected by SECORE_LEVEL and overriding individual knobs from
// SECORE_MAX_REQUESTS, SECORE_WINDOW, SECORE_BURST_LIMIT,
// SECORE_SESSION_TIMEOUT, and SECORE_AUDIT. A .env file is honored when
// present.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := LevelConfig(SecurityLevel(getEnv("SECORE_LEVEL", string(LevelStandard))))
	cfg.ServiceName = getEnv("SECORE_SERVICE_NAME", "")

	var err error
	if cfg.MaxRequests, err = getEnvInt("SECORE_MAX_REQUESTS", cfg.MaxRequests); err != nil {
		return Config{}, err
	}
	if cfg.BurstLimit, err = getEnvInt("SECORE_BURST_LIMIT", cfg.BurstLimit); err != nil {
		return Config{}, err
	}
	if cfg.Window, err = getEnvDuration("SECORE_WINDOW", cfg.Window); err != nil {
		return Config{}, err
	}
	if cfg.SessionTimeout, err = getEnvDuration("SECORE_SESSION_TIMEOUT", cfg.SessionTimeout); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("SECORE_AUDIT"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SECORE_AUDIT %q: %w", raw, err)
		}
		cfg.AuditEnabled = enabled
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
