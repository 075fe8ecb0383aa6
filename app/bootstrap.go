// Package app wires the whole service into a single http.Handler so the
// standalone server, the serverless entry and integration tests share one
// construction path.
package app

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"masterfade-api/internal/auth"
	"masterfade-api/internal/config"
	"masterfade-api/internal/db"
	"masterfade-api/internal/health"
	"masterfade-api/internal/maintenance"
	"masterfade-api/internal/observability"
	"masterfade-api/internal/respond"
	"masterfade-api/internal/security"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	var database *sql.DB
	var verifier auth.CredentialVerifier
	if cfg.DatabaseURL != "" {
		database, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}

		database.SetMaxOpenConns(cfg.DBMaxOpenConns)
		database.SetMaxIdleConns(cfg.DBMaxIdleConns)
		database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

		if err := database.Ping(); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}

		if options.RunMigrations {
			if err := db.RunMigrations(database); err != nil {
				_ = database.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		verifier = auth.NewStore(database)
	} else {
		logger.Warn("store_not_configured", map[string]any{
			"hint": "DATABASE_URL is empty, local logins will fail with STORE_NOT_CONFIGURED",
		})
	}

	var supabase *auth.SupabaseProvider
	var provider auth.IdentityProvider
	var providerChecker health.ProviderChecker
	if cfg.SupabaseURL != "" && cfg.SupabaseAnonKey != "" {
		supabase, err = auth.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			closeDB(database)
			return nil, fmt.Errorf("init provider: %w", err)
		}
		provider = supabase
		providerChecker = supabase
	} else {
		logger.Warn("provider_not_configured", map[string]any{
			"hint": "SUPABASE_URL/SUPABASE_ANON_KEY are empty, delegated logins and password resets will fail with PROVIDER_NOT_CONFIGURED",
		})
	}

	authService := auth.NewService(verifier, provider, logger, cfg.JWTSecret)
	authService.WithTokenConfig(cfg.TokenTTL, cfg.TokenIssuer, cfg.TokenAudience)

	resetLimiter := auth.NewResetLimiter(auth.NewMemoryAttemptStore(), cfg.ResetMaxAttempts, cfg.ResetWindow, cfg.ResetBlock)
	authHandler := auth.NewHandler(authService, resetLimiter)
	healthHandler := health.NewHandler(database, providerChecker)
	sweepHandler := maintenance.NewSweepHandler(resetLimiter, logger, cfg.CronSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", healthHandler.Live)
	mux.HandleFunc("GET /v1/health/db", healthHandler.Database)
	mux.HandleFunc("GET /v1/health/provider", healthHandler.Provider)
	mux.HandleFunc("GET /v1/auth/login", authHandler.LoginPlaceholder)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /v1/auth/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("GET /internal/maintenance/cleanup", sweepHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", sweepHandler.Handle)
	mux.HandleFunc("/", notFound)

	requestLimiter := security.NewRequestLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)

	handler := observability.RequestIDMiddleware(
		observability.RecoverMiddleware(logger,
			observability.RequestLoggingMiddleware(logger,
				security.Headers(
					security.CORS(cfg.CORSOrigin,
						requestLimiter.Middleware(mux))))))

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Close: func() error {
			observability.FlushSentry()
			if database != nil {
				return database.Close()
			}
			return nil
		},
	}, nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
}

func closeDB(database *sql.DB) {
	if database != nil {
		_ = database.Close()
	}
}
