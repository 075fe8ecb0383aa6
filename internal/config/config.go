// Package config captures every tunable of the service in one structure read
// from the environment at startup. Components receive values at construction
// and never consult the environment again.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTokenIssuer   = "masterfade-api"
	DefaultTokenAudience = "masterfade-web"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigin  string
	SentryDSN   string
	CronSecret  string

	// Credential store (optional: the local login path reports
	// STORE_NOT_CONFIGURED when absent).
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// Token signing.
	JWTSecret     string
	TokenTTL      time.Duration
	TokenIssuer   string
	TokenAudience string

	// Delegated identity provider (optional: the delegated login path and the
	// reset email report PROVIDER_NOT_CONFIGURED when absent).
	SupabaseURL     string
	SupabaseAnonKey string

	// Password-reset limiter.
	ResetMaxAttempts int
	ResetWindow      time.Duration
	ResetBlock       time.Duration

	// Transport-level per-IP limiter.
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func Load() (Config, error) {
	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("missing required env: JWT_SECRET")
	}

	return Config{
		Port:        envOrDefault("PORT", "3002"),
		Environment: envOrDefault("APP_ENV", "development"),
		CORSOrigin:  envOrDefault("CORS_ORIGIN", "http://localhost:5173"),
		SentryDSN:   strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		CronSecret:  strings.TrimSpace(os.Getenv("CRON_SECRET")),

		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),

		JWTSecret:     jwtSecret,
		TokenTTL:      envHoursOrDefault("JWT_EXPIRES_HOURS", 12),
		TokenIssuer:   envOrDefault("JWT_ISSUER", DefaultTokenIssuer),
		TokenAudience: envOrDefault("JWT_AUDIENCE", DefaultTokenAudience),

		SupabaseURL:     strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),

		ResetMaxAttempts: envIntOrDefault("RESET_MAX_ATTEMPTS", 3),
		ResetWindow:      envMinutesOrDefault("RESET_WINDOW_MINUTES", 15),
		ResetBlock:       envMinutesOrDefault("RESET_BLOCK_MINUTES", 30),

		RateLimitMax:    envIntOrDefault("RATE_LIMIT_MAX", 200),
		RateLimitWindow: envSecondsOrDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
	}, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
