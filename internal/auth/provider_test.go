package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSupabaseProvider(t *testing.T) {
	_, err := NewSupabaseProvider("https://proj.supabase.co/", "anon-key")
	require.NoError(t, err)

	_, err = NewSupabaseProvider("ftp://proj.supabase.co", "anon-key")
	require.Error(t, err)

	_, err = NewSupabaseProvider("https://proj.supabase.co", "  ")
	require.Error(t, err)
}

func TestSignInWithPassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/auth/v1/token", r.URL.Path)
			require.Equal(t, "password", r.URL.Query().Get("grant_type"))
			require.Equal(t, "anon-key", r.Header.Get("apikey"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "a@b.co", body["email"])
			require.Equal(t, "secret", body["password"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"ignored","user":{"id":"uuid-1","email":"a@b.co"}}`))
		}))
		defer server.Close()

		provider, err := NewSupabaseProvider(server.URL, "anon-key")
		require.NoError(t, err)

		user, err := provider.SignInWithPassword(context.Background(), "a@b.co", "secret")
		require.NoError(t, err)
		require.Equal(t, ProviderUser{ID: "uuid-1", Email: "a@b.co"}, user)
	})

	t.Run("provider rejection becomes a ProviderError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
		}))
		defer server.Close()

		provider, err := NewSupabaseProvider(server.URL, "anon-key")
		require.NoError(t, err)

		_, err = provider.SignInWithPassword(context.Background(), "a@b.co", "wrong")
		var providerErr *ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Equal(t, http.StatusBadRequest, providerErr.Status)
		require.Equal(t, "invalid_credentials", providerErr.Code)
		require.Equal(t, "Invalid login credentials", providerErr.Message)
		require.False(t, providerErr.RateLimited())
	})

	t.Run("upstream 429 is flagged as rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"msg":"For security purposes, you can only request this once every 60 seconds"}`))
		}))
		defer server.Close()

		provider, err := NewSupabaseProvider(server.URL, "anon-key")
		require.NoError(t, err)

		_, err = provider.SignInWithPassword(context.Background(), "a@b.co", "secret")
		var providerErr *ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.True(t, providerErr.RateLimited())
	})

	t.Run("2xx without a user yields a zero user", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"t"}`))
		}))
		defer server.Close()

		provider, err := NewSupabaseProvider(server.URL, "anon-key")
		require.NoError(t, err)

		user, err := provider.SignInWithPassword(context.Background(), "a@b.co", "secret")
		require.NoError(t, err)
		require.Empty(t, user.ID)
	})
}

func TestSendPasswordReset(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/v1/recover", r.URL.Path)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		provider, err := NewSupabaseProvider(server.URL, "anon-key")
		require.NoError(t, err)
		require.NoError(t, provider.SendPasswordReset(context.Background(), "a@b.co"))
	})

	t.Run("rate-limit code without a 429 status still counts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_code":"over_request_rate_limit","msg":"too many requests"}`))
		}))
		defer server.Close()

		provider, err := NewSupabaseProvider(server.URL, "anon-key")
		require.NoError(t, err)

		err = provider.SendPasswordReset(context.Background(), "a@b.co")
		var providerErr *ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.True(t, providerErr.RateLimited())
	})
}

func TestCheckHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/", r.URL.Path)
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, err := NewSupabaseProvider(server.URL, "anon-key")
	require.NoError(t, err)

	status, err := provider.CheckHealth(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, status)
}
