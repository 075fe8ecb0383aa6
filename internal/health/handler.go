// Package health exposes liveness plus reachability probes for the two
// external collaborators: the Postgres pool and the delegated provider.
package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"masterfade-api/internal/respond"
)

// ProviderChecker reports the HTTP status of a provider reachability probe.
type ProviderChecker interface {
	CheckHealth(ctx context.Context) (int, error)
}

type Handler struct {
	db       *sql.DB
	provider ProviderChecker
}

func NewHandler(db *sql.DB, provider ProviderChecker) *Handler {
	return &Handler{db: db, provider: provider}
}

func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, r, http.StatusOK, nil)
}

// Database runs a real round-trip query so bad credentials or a dead pool
// show up here instead of at the first login.
func (h *Handler) Database(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.Error(w, r, http.StatusInternalServerError, "STORE_NOT_CONFIGURED",
			"database pool is not configured", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var one int
	if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil || one != 1 {
		respond.Error(w, r, http.StatusBadGateway, "DB_UNREACHABLE",
			"database query failed", map[string]any{"provider": "postgres"})
		return
	}

	respond.OK(w, r, http.StatusOK, map[string]any{
		"provider": "postgres",
		"status":   http.StatusOK,
	})
}

func (h *Handler) Provider(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respond.Error(w, r, http.StatusNotImplemented, "PROVIDER_NOT_CONFIGURED",
			"identity provider is not configured", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := h.provider.CheckHealth(ctx)
	if err != nil {
		respond.Error(w, r, http.StatusBadGateway, "PROVIDER_UNREACHABLE",
			"provider request failed", map[string]any{"provider": "supabase-rest"})
		return
	}

	// 401/404 still prove the REST surface answered.
	if status != http.StatusOK && status != http.StatusUnauthorized && status != http.StatusNotFound {
		respond.Error(w, r, http.StatusBadGateway, "PROVIDER_UNREACHABLE",
			"provider returned an unexpected status", map[string]any{
				"provider": "supabase-rest",
				"status":   status,
			})
		return
	}

	respond.OK(w, r, http.StatusOK, map[string]any{
		"provider": "supabase-rest",
		"status":   status,
	})
}
