package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT shared secret with the auth provider
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Reward policy knobs
	if c.Ads.MaxDaily < 1 {
		errs = append(errs, fmt.Sprintf("ADS_MAX_DAILY must be positive, got %d", c.Ads.MaxDaily))
	}
	if c.Ads.CompletionThreshold <= 0 || c.Ads.CompletionThreshold > 1 {
		errs = append(errs, fmt.Sprintf("ADS_COMPLETION_THRESHOLD must be in (0,1], got %g", c.Ads.CompletionThreshold))
	}
	if c.Ads.ProgressInterval <= 0 {
		errs = append(errs, "ADS_PROGRESS_INTERVAL must be positive")
	}
	if c.Ads.HistoryLimit < 1 {
		errs = append(errs, fmt.Sprintf("ADS_HISTORY_LIMIT must be positive, got %d", c.Ads.HistoryLimit))
	}

	if c.Verifier.Timeout <= 0 {
		errs = append(errs, "VERIFIER_TIMEOUT must be positive")
	}
	if c.Verifier.Retries < 0 {
		errs = append(errs, fmt.Sprintf("VERIFIER_RETRIES must be non-negative, got %d", c.Verifier.Retries))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
