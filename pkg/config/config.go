// Package config provides configuration management for the world-room server.
// It handles environment variable loading, validation, and provides secure
// defaults for production deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"tilekeep/pkg/retry"

	"github.com/sirupsen/logrus"
)

// Config represents the server configuration with environment variable support.
// All configuration values can be set via environment variables or will use
// secure defaults appropriate for production deployment.
// Config is thread-safe; all field access should be done through getter methods
// when used concurrently, or by holding the mutex directly.
type Config struct {
	mu sync.RWMutex `json:"-"`

	// ServerPort is the port the HTTP/WebSocket server will listen on
	ServerPort int `json:"server_port"`

	// LogLevel controls the logging verbosity (debug, info, warn, error)
	LogLevel string `json:"log_level"`

	// AllowedOrigins is a list of allowed WebSocket origins for CORS
	AllowedOrigins []string `json:"allowed_origins"`

	// MaxRequestSize is the maximum size of the join envelope, in bytes
	MaxRequestSize int64 `json:"max_request_size"`

	// EnableDevMode relaxes origin checking for local development
	EnableDevMode bool `json:"enable_dev_mode"`

	// RequestTimeout is validated at load (at least 1s); the gateway does not
	// read it and bounds the join with its own fixed 10-second deadline
	RequestTimeout time.Duration `json:"request_timeout"`

	// Rate limiting configuration. The gateway builds one token bucket per
	// connection for INPUT messages from RateLimitRequestsPerSecond and
	// RateLimitBurst; RateLimitEnabled and RateLimitCleanupInterval are only
	// validated, not read by the gateway

	RateLimitEnabled           bool          `json:"rate_limit_enabled"`
	RateLimitRequestsPerSecond float64       `json:"rate_limit_requests_per_second"`
	RateLimitBurst             int           `json:"rate_limit_burst"`
	RateLimitCleanupInterval   time.Duration `json:"rate_limit_cleanup_interval"`

	// Retry configuration, exposed as a retry.RetryConfig via GetRetryConfig.
	// pkg/persistence does not read it; its writes use the fixed policy of
	// integration.NetworkExecutor

	RetryEnabled           bool          `json:"retry_enabled"`
	RetryMaxAttempts       int           `json:"retry_max_attempts"`
	RetryInitialDelay      time.Duration `json:"retry_initial_delay"`
	RetryMaxDelay          time.Duration `json:"retry_max_delay"`
	RetryBackoffMultiplier float64       `json:"retry_backoff_multiplier"`
	RetryJitterPercent     int           `json:"retry_jitter_percent"`

	// DatabaseDriver selects the relational backend: "sqlite3" or "postgres"
	DatabaseDriver string `json:"database_driver"`

	// DatabaseDSN is the driver-specific connection string
	DatabaseDSN string `json:"database_dsn"`

	// JWTSigningKey verifies bearer tokens issued by the external AuthService
	JWTSigningKey string `json:"-"`

	// MapFile points at the YAML map definition loaded by every WorldRoom
	MapFile string `json:"map_file"`

	// TickRate is the simulation step rate in Hz (spec-pinned at 20)
	TickRate int `json:"tick_rate"`

	// AutoSaveInterval is how often a warm room persists its state
	AutoSaveInterval time.Duration `json:"auto_save_interval"`

	// IdleCheckInterval is how often a room scans for idle sessions
	IdleCheckInterval time.Duration `json:"idle_check_interval"`

	// IdleWarnAfter is the elapsed-since-last-input threshold for a warning
	IdleWarnAfter time.Duration `json:"idle_warn_after"`

	// IdleKickAfter is the elapsed-since-last-input threshold for a kick
	IdleKickAfter time.Duration `json:"idle_kick_after"`

	// MaxQueueDepth is validated at load; the room's per-session input FIFO
	// uses the fixed room.MaxQueueDepth constant and does not read this value
	MaxQueueDepth int `json:"max_queue_depth"`

	// MaxPartySize bounds the number of concurrently joined sessions per room
	MaxPartySize int `json:"max_party_size"`

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// ShutdownGracePeriod is the grace period after shutdown before forcing exit
	ShutdownGracePeriod time.Duration `json:"shutdown_grace_period"`
}

// Load creates a new Config instance by reading from environment variables
// and applying secure defaults. It validates all configuration values and
// returns an error if any required values are missing or invalid.
func Load() (*Config, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"package":  "config",
	}).Debug("entering Load")

	config := &Config{
		ServerPort:     getEnvAsInt("SERVER_PORT", 8080),
		LogLevel:       getEnvAsString("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvAsStringSlice("ALLOWED_ORIGINS", []string{}),
		MaxRequestSize: getEnvAsInt64("MAX_REQUEST_SIZE", 64*1024), // 64KB default
		EnableDevMode:  getEnvAsBool("ENABLE_DEV_MODE", true),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),

		RateLimitEnabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSecond: getEnvAsFloat64("RATE_LIMIT_REQUESTS_PER_SECOND", 2),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 5),
		RateLimitCleanupInterval:   getEnvAsDuration("RATE_LIMIT_CLEANUP_INTERVAL", 1*time.Minute),

		RetryEnabled:           getEnvAsBool("RETRY_ENABLED", true),
		RetryMaxAttempts:       getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay:      getEnvAsDuration("RETRY_INITIAL_DELAY", 100*time.Millisecond),
		RetryMaxDelay:          getEnvAsDuration("RETRY_MAX_DELAY", 5*time.Second),
		RetryBackoffMultiplier: getEnvAsFloat64("RETRY_BACKOFF_MULTIPLIER", 2.0),
		RetryJitterPercent:     getEnvAsInt("RETRY_JITTER_PERCENT", 10),

		DatabaseDriver: getEnvAsString("DATABASE_DRIVER", "sqlite3"),
		DatabaseDSN:    getEnvAsString("DATABASE_DSN", "./data/world.db"),
		JWTSigningKey:  getEnvAsString("JWT_SIGNING_KEY", ""),

		MapFile: getEnvAsString("MAP_FILE", "./data/map.yaml"),

		TickRate:          getEnvAsInt("TICK_RATE", 20),
		AutoSaveInterval:  getEnvAsDuration("AUTO_SAVE_INTERVAL", 60*time.Second),
		IdleCheckInterval: getEnvAsDuration("IDLE_CHECK_INTERVAL", 30*time.Second),
		IdleWarnAfter:     getEnvAsDuration("IDLE_WARN_AFTER", 14*time.Minute),
		IdleKickAfter:     getEnvAsDuration("IDLE_KICK_AFTER", 15*time.Minute),
		MaxQueueDepth:     getEnvAsInt("MAX_QUEUE_DEPTH", 10),
		MaxPartySize:      getEnvAsInt("MAX_PARTY_SIZE", 8),

		ShutdownTimeout:     getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: getEnvAsDuration("SHUTDOWN_GRACE_PERIOD", 1*time.Second),
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Load",
		"package":     "config",
		"server_port": config.ServerPort,
		"dev_mode":    config.EnableDevMode,
		"log_level":   config.LogLevel,
	}).Debug("configuration loaded, starting validation")

	if err := config.validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"package":  "config",
			"error":    err,
		}).Error("configuration validation failed")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Load",
		"package":     "config",
		"server_port": config.ServerPort,
	}).Debug("exiting Load - configuration successfully loaded and validated")

	return config, nil
}

// validate checks that all configuration values are valid and consistent.
func (c *Config) validate() error {
	if err := c.validateServerSettings(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateSecuritySettings(); err != nil {
		return err
	}
	if err := c.validateRateLimitConfig(); err != nil {
		return err
	}
	if err := c.validateRetryConfig(); err != nil {
		return err
	}
	if err := c.validateRoomSettings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServerSettings() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.ServerPort)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, level := range validLogLevels {
		if strings.ToLower(c.LogLevel) == level {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("log level must be one of %v, got %s", validLogLevels, c.LogLevel)
	}

	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database driver must be sqlite3 or postgres, got %s", c.DatabaseDriver)
	}

	return nil
}

func (c *Config) validateTimeouts() error {
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second, got %v", c.RequestTimeout)
	}
	return nil
}

func (c *Config) validateSecuritySettings() error {
	if c.MaxRequestSize < 256 {
		return fmt.Errorf("max request size must be at least 256 bytes, got %d", c.MaxRequestSize)
	}
	if !c.EnableDevMode && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed origins must be specified when dev mode is disabled")
	}
	if !c.EnableDevMode && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT signing key must be specified when dev mode is disabled")
	}
	return nil
}

func (c *Config) validateRateLimitConfig() error {
	if c.RateLimitEnabled {
		if c.RateLimitRequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be greater than 0 when rate limiting is enabled")
		}
		if c.RateLimitBurst <= 0 {
			return fmt.Errorf("rate limit burst must be greater than 0 when rate limiting is enabled")
		}
	}
	return nil
}

func (c *Config) validateRetryConfig() error {
	if c.RetryEnabled {
		if c.RetryMaxAttempts < 1 {
			return fmt.Errorf("retry max attempts must be at least 1 when retry is enabled")
		}
		if c.RetryInitialDelay < 0 {
			return fmt.Errorf("retry initial delay must be non-negative when retry is enabled")
		}
		if c.RetryMaxDelay < c.RetryInitialDelay {
			return fmt.Errorf("retry max delay must be greater than or equal to initial delay when retry is enabled")
		}
		if c.RetryBackoffMultiplier <= 1.0 {
			return fmt.Errorf("retry backoff multiplier must be greater than 1.0 when retry is enabled")
		}
		if c.RetryJitterPercent < 0 || c.RetryJitterPercent > 100 {
			return fmt.Errorf("retry jitter percent must be between 0 and 100 when retry is enabled")
		}
	}
	return nil
}

// validateRoomSettings enforces the constants the client protocol depends on.
func (c *Config) validateRoomSettings() error {
	if c.TickRate < 1 || c.TickRate > 240 {
		return fmt.Errorf("tick rate must be between 1 and 240, got %d", c.TickRate)
	}
	if c.MaxQueueDepth < 1 {
		return fmt.Errorf("max queue depth must be at least 1, got %d", c.MaxQueueDepth)
	}
	if c.MaxPartySize < 1 {
		return fmt.Errorf("max party size must be at least 1, got %d", c.MaxPartySize)
	}
	if c.IdleKickAfter <= c.IdleWarnAfter {
		return fmt.Errorf("idle kick threshold (%v) must be greater than idle warn threshold (%v)", c.IdleKickAfter, c.IdleWarnAfter)
	}
	return nil
}

// OriginAllowed checks if the given origin is allowed for WebSocket connections.
// In development mode, all origins are allowed. In production mode, only explicitly
// allowed origins are permitted. This method is thread-safe.
func (c *Config) OriginAllowed(origin string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.EnableDevMode {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// TickPeriod returns the wall-clock duration of a single simulation tick.
func (c *Config) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// GetRetryConfig creates a retry.RetryConfig from the current configuration.
func (c *Config) GetRetryConfig() retry.RetryConfig {
	return retry.RetryConfig{
		MaxAttempts:       c.RetryMaxAttempts,
		InitialDelay:      c.RetryInitialDelay,
		MaxDelay:          c.RetryMaxDelay,
		BackoffMultiplier: c.RetryBackoffMultiplier,
		JitterMaxPercent:  c.RetryJitterPercent,
		RetryableErrors:   []error{},
	}
}

// Helper functions for environment variable parsing with type safety and defaults

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
