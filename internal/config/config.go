package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	NATS     NATSConfig
	JWT      JWTConfig
	Ads      AdsConfig
	Verifier VerifierConfig
	CORS     CORSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	// AccessSecret verifies tokens minted by the external auth provider.
	// This service never issues tokens itself.
	AccessSecret string
	Issuer       string
}

// AdsConfig holds the reward policy knobs: daily cap, playback completion
// threshold and how the session coordinator samples playback progress.
type AdsConfig struct {
	MaxDaily            int
	CompletionThreshold float64
	ProgressInterval    time.Duration
	HistoryLimit        int
	LimitCacheTTL       time.Duration
	VerifyRatePerMinute int
}

type VerifierConfig struct {
	URL     string
	Timeout time.Duration
	Retries int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret: k.String("jwt.access.secret"),
			Issuer:       k.String("jwt.issuer"),
		},
		Ads: AdsConfig{
			MaxDaily:            k.Int("ads.max.daily"),
			CompletionThreshold: k.Float64("ads.completion.threshold"),
			HistoryLimit:        k.Int("ads.history.limit"),
			VerifyRatePerMinute: k.Int("ads.verify.rate.per.minute"),
		},
		Verifier: VerifierConfig{
			URL:     k.String("verifier.url"),
			Retries: k.Int("verifier.retries"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "watchearn"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "watchearn"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "watchearn"
	}
	if cfg.Ads.MaxDaily == 0 {
		cfg.Ads.MaxDaily = 10
	}
	if cfg.Ads.CompletionThreshold == 0 {
		cfg.Ads.CompletionThreshold = 0.90
	}
	if cfg.Ads.HistoryLimit == 0 {
		cfg.Ads.HistoryLimit = 20
	}
	if cfg.Ads.VerifyRatePerMinute == 0 {
		cfg.Ads.VerifyRatePerMinute = 30
	}
	if cfg.Verifier.Retries == 0 {
		cfg.Verifier.Retries = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	progressStr := k.String("ads.progress.interval")
	if progressStr == "" {
		progressStr = "500ms"
	}
	cfg.Ads.ProgressInterval, err = time.ParseDuration(progressStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ads progress interval: %w", err)
	}

	cacheTTLStr := k.String("ads.limit.cache.ttl")
	if cacheTTLStr == "" {
		cacheTTLStr = "5s"
	}
	cfg.Ads.LimitCacheTTL, err = time.ParseDuration(cacheTTLStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ads limit cache ttl: %w", err)
	}

	verifierTimeoutStr := k.String("verifier.timeout")
	if verifierTimeoutStr == "" {
		verifierTimeoutStr = "10s"
	}
	cfg.Verifier.Timeout, err = time.ParseDuration(verifierTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing verifier timeout: %w", err)
	}

	return cfg, nil
}
