package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	Headers(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	t.Run("sets the origin on plain requests", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		CORS("http://localhost:5173", okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("answers preflight without hitting the mux", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		CORS("http://localhost:5173", okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil))

		require.Equal(t, http.StatusNoContent, recorder.Code)
		require.NotEmpty(t, recorder.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestRequestLimiter(t *testing.T) {
	limiter := NewRequestLimiter(2, time.Minute)
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	limiter.nowFn = func() time.Time { return current }

	handler := limiter.Middleware(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = ip
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)
	require.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)

	third := send("10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	require.NotEmpty(t, third.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code, "other IPs are unaffected")

	current = current.Add(2 * time.Minute)
	require.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code, "window slides past old hits")
}
