package maintenance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"masterfade-api/internal/auth"
	"masterfade-api/internal/observability"
)

func newSweepRequest(bearer string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func TestSweepHandler(t *testing.T) {
	limiter := auth.NewResetLimiter(auth.NewMemoryAttemptStore(), 3, time.Millisecond, time.Millisecond)
	logger := observability.NewLogger()

	t.Run("disabled without a secret", func(t *testing.T) {
		handler := NewSweepHandler(limiter, logger, "")
		recorder := httptest.NewRecorder()
		handler.Handle(recorder, newSweepRequest("anything"))
		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("rejects a wrong bearer", func(t *testing.T) {
		handler := NewSweepHandler(limiter, logger, "cron-secret")
		recorder := httptest.NewRecorder()
		handler.Handle(recorder, newSweepRequest("wrong"))
		require.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("sweeps expired records", func(t *testing.T) {
		limiter.RegisterAttempt("stale@b.co")
		time.Sleep(5 * time.Millisecond)

		handler := NewSweepHandler(limiter, logger, "cron-secret")
		recorder := httptest.NewRecorder()
		handler.Handle(recorder, newSweepRequest("cron-secret"))
		require.Equal(t, http.StatusOK, recorder.Code)

		var parsed struct {
			OK   bool `json:"ok"`
			Data struct {
				RemovedRecords int `json:"removedRecords"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
		require.True(t, parsed.OK)
		require.Equal(t, 1, parsed.Data.RemovedRecords)
	})
}
