// Package respond implements the response envelope every endpoint uses:
// {ok, data|error, meta?, requestId}. The request id travels in the request
// context and is echoed both here and in the X-Request-Id header.
package respond

import (
	"context"
	"encoding/json"
	"net/http"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type envelope struct {
	OK        bool       `json:"ok"`
	Data      any        `json:"data,omitempty"`
	Meta      any        `json:"meta,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	RequestID string     `json:"requestId,omitempty"`
}

func OK(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, envelope{
		OK:        true,
		Data:      data,
		RequestID: RequestID(r.Context()),
	})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, envelope{
		OK: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
