package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// IdentityProvider is the narrow capability the delegated login path and the
// password-reset flow need from an external auth service.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (ProviderUser, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// ProviderError is a failure the provider itself reported, as opposed to a
// transport failure reaching it.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}

func (e *ProviderError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests || e.Code == "over_request_rate_limit"
}

// SupabaseProvider talks to a Supabase project's GoTrue REST surface using
// the anon key.
type SupabaseProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSupabaseProvider(rawURL, apiKey string) (*SupabaseProvider, error) {
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), "/")
	apiKey = strings.TrimSpace(apiKey)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, fmt.Errorf("invalid provider url scheme %q", parsed.Scheme)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing provider api key")
	}

	return &SupabaseProvider{
		baseURL: rawURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type signInResponse struct {
	User *ProviderUser `json:"user"`
}

type providerErrorResponse struct {
	ErrorCode        string `json:"error_code"`
	Code             string `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (r providerErrorResponse) message() string {
	for _, candidate := range []string{r.Msg, r.Message, r.ErrorDescription} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func (r providerErrorResponse) code() string {
	if r.ErrorCode != "" {
		return r.ErrorCode
	}
	return r.Code
}

// SignInWithPassword exchanges an email/password pair for the provider's
// view of the user. A zero-ID user with nil error means the provider answered
// 2xx without a user payload; callers treat that as a rejection.
func (p *SupabaseProvider) SignInWithPassword(ctx context.Context, email, password string) (ProviderUser, error) {
	body, status, err := p.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return ProviderUser{}, err
	}

	if status < 200 || status >= 300 {
		return ProviderUser{}, decodeProviderError(status, body)
	}

	var parsed signInResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ProviderUser{}, fmt.Errorf("decode sign-in response: %w", err)
	}
	if parsed.User == nil {
		return ProviderUser{}, nil
	}

	return *parsed.User, nil
}

func (p *SupabaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	body, status, err := p.post(ctx, "/auth/v1/recover", map[string]string{
		"email": email,
	})
	if err != nil {
		return err
	}

	if status < 200 || status >= 300 {
		return decodeProviderError(status, body)
	}

	return nil
}

// CheckHealth probes the project's REST root. 200/401/404 all prove the
// project is reachable; the anon key may simply lack table access.
func (p *SupabaseProvider) CheckHealth(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/rest/v1/", nil)
	if err != nil {
		return 0, fmt.Errorf("build provider health request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("provider health request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	return resp.StatusCode, nil
}

func (p *SupabaseProvider) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read provider response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func decodeProviderError(status int, body []byte) *ProviderError {
	var parsed providerErrorResponse
	_ = json.Unmarshal(body, &parsed)

	return &ProviderError{
		Status:  status,
		Code:    parsed.code(),
		Message: parsed.message(),
	}
}
