package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "watchearn",
			Password: "secret", Name: "watchearn", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret: "access-secret-that-is-at-least-32-chars!",
			Issuer:       "watchearn",
		},
		Ads: AdsConfig{
			MaxDaily:            10,
			CompletionThreshold: 0.90,
			ProgressInterval:    500 * time.Millisecond,
			HistoryLimit:        20,
			LimitCacheTTL:       5 * time.Second,
			VerifyRatePerMinute: 30,
		},
		Verifier: VerifierConfig{Timeout: 10 * time.Second, Retries: 1},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected JWT_ACCESS_SECRET error, got: %v", err)
	}
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_BadServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_BadCompletionThreshold(t *testing.T) {
	for _, v := range []float64{-0.1, 0, 1.5} {
		cfg := validConfig()
		cfg.Ads.CompletionThreshold = v
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "ADS_COMPLETION_THRESHOLD") {
			t.Fatalf("threshold %g: expected ADS_COMPLETION_THRESHOLD error, got: %v", v, err)
		}
	}
}

func TestValidate_BadMaxDaily(t *testing.T) {
	cfg := validConfig()
	cfg.Ads.MaxDaily = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ADS_MAX_DAILY") {
		t.Fatalf("expected ADS_MAX_DAILY error, got: %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = ""
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected both errors collected, got: %v", err)
	}
}
