// Package config provides configuration management for the world-room server.
//
// This package handles environment variable loading with type-safe parsing,
// applies secure production defaults, and performs extensive validation of
// all configuration values.
//
// # Loading Configuration
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
// Server settings: SERVER_PORT, LOG_LEVEL, ENABLE_DEV_MODE, ALLOWED_ORIGINS,
// MAX_REQUEST_SIZE, REQUEST_TIMEOUT.
//
// Room runtime: TICK_RATE, MAX_QUEUE_DEPTH, MAX_PARTY_SIZE,
// AUTO_SAVE_INTERVAL, IDLE_CHECK_INTERVAL, IDLE_WARN_AFTER, IDLE_KICK_AFTER,
// MAP_FILE.
//
// Persistence: DATABASE_DRIVER ("sqlite3" or "postgres"), DATABASE_DSN.
//
// Auth: JWT_SIGNING_KEY.
//
// Rate limiting: RATE_LIMIT_ENABLED, RATE_LIMIT_REQUESTS_PER_SECOND,
// RATE_LIMIT_BURST, RATE_LIMIT_CLEANUP_INTERVAL.
//
// Retry policy: RETRY_ENABLED, RETRY_MAX_ATTEMPTS, RETRY_INITIAL_DELAY,
// RETRY_MAX_DELAY, RETRY_BACKOFF_MULTIPLIER, RETRY_JITTER_PERCENT.
//
// # Validation
//
// All configuration values are validated on load, including the cross-field
// invariant that IDLE_KICK_AFTER must exceed IDLE_WARN_AFTER, and that
// production mode (ENABLE_DEV_MODE=false) requires an explicit origin
// allowlist and a JWT signing key.
//
// # Retry Configuration
//
// GetRetryConfig returns a retry.RetryConfig that can be used directly
// with the retry package:
//
//	retryConfig := cfg.GetRetryConfig()
//	retrier := retry.NewRetrier(retryConfig)
package config
