// Package maintenance exposes a cron-guarded endpoint that evicts expired
// rate-limit records, so the per-email map does not grow for the lifetime of
// the process.
package maintenance

import (
	"net/http"
	"strings"

	"masterfade-api/internal/auth"
	"masterfade-api/internal/observability"
	"masterfade-api/internal/respond"
)

type SweepHandler struct {
	limiter    *auth.ResetLimiter
	logger     *observability.Logger
	cronSecret string
}

func NewSweepHandler(limiter *auth.ResetLimiter, logger *observability.Logger, cronSecret string) *SweepHandler {
	return &SweepHandler{
		limiter:    limiter,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
	}
}

func (h *SweepHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		// No secret configured means the endpoint does not exist.
		respond.Error(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		respond.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
		return
	}

	removed := h.limiter.Sweep()

	h.logger.Info("rate_limit_sweep_completed", map[string]any{
		"removed_records": removed,
	})

	respond.OK(w, r, http.StatusOK, map[string]any{
		"removedRecords": removed,
	})
}
