package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v5"

	"masterfade-api/internal/observability"
)

const (
	defaultTokenTTL = 12 * time.Hour

	// TokenType distinguishes tokens we mint from provider-native ones.
	TokenType = "app"
)

// Service decides login requests. The store backs identifiers without "@"
// (local path), the provider backs emails (delegated path). Either
// collaborator may be nil, in which case its path reports a configuration
// error instead of falling back to the other.
type Service struct {
	store    CredentialVerifier
	provider IdentityProvider
	logger   *observability.Logger

	jwtSecret []byte
	tokenTTL  time.Duration
	issuer    string
	audience  string
}

func NewService(store CredentialVerifier, provider IdentityProvider, logger *observability.Logger, jwtSecret string) *Service {
	return &Service{
		store:     store,
		provider:  provider,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  defaultTokenTTL,
		issuer:    "masterfade-api",
		audience:  "masterfade-web",
	}
}

func (s *Service) WithTokenConfig(ttl time.Duration, issuer, audience string) {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	if issuer != "" {
		s.issuer = issuer
	}
	if audience != "" {
		s.audience = audience
	}
}

// Login validates the credentials against the appropriate collaborator and
// returns a signed token plus the sanitized user. Failures are always
// classified *Error values with a stable code.
func (s *Service) Login(ctx context.Context, identifier, secret string) (LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	secret = strings.TrimSpace(secret)

	if identifier == "" || secret == "" {
		return LoginResult{}, errMissingCredentials()
	}

	// Purely syntactic dispatch: anything with "@" is an email for the
	// delegated provider, everything else a local username.
	if strings.Contains(identifier, "@") {
		return s.loginDelegated(ctx, identifier, secret)
	}

	return s.loginLocal(ctx, identifier, secret)
}

func (s *Service) loginDelegated(ctx context.Context, email, password string) (LoginResult, error) {
	if s.provider == nil {
		return LoginResult{}, errProviderNotConfigured()
	}

	user, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		var providerErr *ProviderError
		if errors.As(err, &providerErr) {
			if providerErr.RateLimited() {
				return LoginResult{}, errProviderRateLimit(err)
			}
			// Wrong password and unknown account collapse into the same
			// answer so callers cannot enumerate registered emails.
			return LoginResult{}, errInvalidCredentials(providerErr.Message)
		}
		return LoginResult{}, s.processingError("delegated_login_failed", err, nil)
	}
	if user.ID == "" {
		return LoginResult{}, errInvalidCredentials("")
	}

	token, err := s.signToken(jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"roles": []string{},
	})
	if err != nil {
		return LoginResult{}, s.processingError("sign_token_failed", err, nil)
	}

	return LoginResult{Token: token, User: user}, nil
}

func (s *Service) loginLocal(ctx context.Context, username, password string) (LoginResult, error) {
	if s.store == nil {
		return LoginResult{}, errStoreNotConfigured()
	}

	outcome, err := s.store.VerifyCredentials(ctx, username, password)
	if err != nil {
		var details any
		if strings.Contains(err.Error(), LoginFunction) {
			details = "the verification function " + LoginFunction + " appears to be missing; run the migrations and retry"
		}
		return LoginResult{}, s.processingError("local_login_failed", err, details)
	}

	if !outcome.OK || outcome.User == nil {
		return LoginResult{}, errInvalidCredentials(outcome.Message)
	}

	user := *outcome.User
	if user.Roles == nil {
		user.Roles = []string{}
	}
	if user.Branches == nil {
		user.Branches = []string{}
	}

	token, err := s.signToken(jwt.MapClaims{
		"sub":            strconv.FormatInt(user.ID, 10),
		"nombre_usuario": user.Username,
		"roles":          user.Roles,
		"sucursales":     user.Branches,
	})
	if err != nil {
		return LoginResult{}, s.processingError("sign_token_failed", err, nil)
	}

	return LoginResult{Token: token, User: user}, nil
}

// RequestPasswordReset asks the provider to email a reset link. Limiting is
// the caller's concern; this only talks to the provider.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.provider == nil {
		return errProviderNotConfigured()
	}

	if err := s.provider.SendPasswordReset(ctx, email); err != nil {
		var providerErr *ProviderError
		if errors.As(err, &providerErr) && providerErr.RateLimited() {
			return errProviderRateLimit(err)
		}
		return s.processingError("password_reset_failed", err, nil)
	}

	return nil
}

func (s *Service) signToken(claims jwt.MapClaims) (string, error) {
	now := time.Now().UTC()
	claims["tokenType"] = TokenType
	claims["iss"] = s.issuer
	claims["aud"] = s.audience
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.tokenTTL).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// processingError logs the raw failure server-side, reports it to Sentry and
// returns the generic classified error clients see.
func (s *Service) processingError(event string, cause error, details any) *Error {
	if s.logger != nil {
		s.logger.Error(event, map[string]any{"error": cause.Error()})
	}
	sentry.CaptureException(cause)
	return errLoginProcessing(cause, details)
}
