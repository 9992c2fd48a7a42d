// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token store backends.
const (
	TokenStoreMemory   = "memory"
	TokenStorePostgres = "postgres"
	TokenStoreSQLite   = "sqlite"
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

const (
	defaultAPIURL         = "http://localhost:8000"
	defaultAPITimeout     = 10 * time.Second
	defaultCacheStaleTime = 30 * time.Second
	defaultServiceName    = "finova-bot"
	defaultSQLitePath     = "data/finova.db"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken  string
	APIBaseURL        string
	APITimeout        time.Duration
	DatabaseURL       string
	SQLitePath        string
	TokenStore        string
	CacheStaleTime    time.Duration
	RecaptchaRequired bool
	LogLevel          string
	LogFormat         string
	OTelExporter      string
	ServiceName       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("FINOVA_API_URL")), "/"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		TokenStore:       strings.ToLower(strings.TrimSpace(os.Getenv("TOKEN_STORE"))),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
		OTelExporter:     strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER"))),
		ServiceName:      os.Getenv("SERVICE_NAME"),
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIURL
	}
	if cfg.TokenStore == "" {
		cfg.TokenStore = TokenStoreMemory
		if cfg.DatabaseURL != "" {
			cfg.TokenStore = TokenStorePostgres
		}
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = defaultSQLitePath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.OTelExporter == "" {
		cfg.OTelExporter = ExporterNone
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	cfg.RecaptchaRequired, _ = strconv.ParseBool(os.Getenv("RECAPTCHA_REQUIRED"))
	cfg.APITimeout = durationFromEnv("API_TIMEOUT", defaultAPITimeout)
	cfg.CacheStaleTime = durationFromEnv("CACHE_STALE_TIME", defaultCacheStaleTime)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durationFromEnv parses a Go duration, falling back on empty or invalid input.
func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("FINOVA_API_URL must be an http(s) URL, got %q", c.APIBaseURL))
	}

	switch c.TokenStore {
	case TokenStoreMemory, TokenStoreSQLite:
	case TokenStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when TOKEN_STORE=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown TOKEN_STORE %q (use memory, postgres or sqlite)", c.TokenStore))
	}

	exporters := []string{ExporterNone, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC}
	if !slices.Contains(exporters, c.OTelExporter) {
		errs = append(errs, fmt.Sprintf("unknown OTEL_EXPORTER %q", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
