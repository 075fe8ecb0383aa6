package respond

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOKIncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRequestID(req.Context(), "req-123"))

	recorder := httptest.NewRecorder()
	OK(recorder, req, http.StatusOK, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	require.Equal(t, true, parsed["ok"])
	require.Equal(t, "req-123", parsed["requestId"])
	require.Equal(t, map[string]any{"hello": "world"}, parsed["data"])
}

func TestErrorShape(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()
	Error(recorder, req, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	var parsed struct {
		OK    bool `json:"ok"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	require.False(t, parsed.OK)
	require.Equal(t, "INVALID_CREDENTIALS", parsed.Error.Code)
	require.Equal(t, "invalid credentials", parsed.Error.Message)
	require.Empty(t, parsed.RequestID, "no id when the middleware did not run")
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	require.Equal(t, "abc", RequestID(ctx))
	require.Empty(t, RequestID(context.Background()))
}
