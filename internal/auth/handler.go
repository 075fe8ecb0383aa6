package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"masterfade-api/internal/respond"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
	limiter *ResetLimiter
}

func NewHandler(service *Service, limiter *ResetLimiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// loginRequest accepts the field synonyms older frontends still send.
type loginRequest struct {
	NombreUsuario string `json:"nombre_usuario"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Contrasena    string `json:"contrasena"`
	Password      string `json:"password"`
}

// credentials coalesces the synonyms into one canonical pair, in priority
// order nombre_usuario > username > email and contrasena > password.
func (b loginRequest) credentials() (string, string) {
	identifier := firstNonEmpty(b.NombreUsuario, b.Username, b.Email)
	secret := firstNonEmpty(b.Contrasena, b.Password)
	return identifier, secret
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// LoginPlaceholder keeps the legacy GET route alive for old clients.
func (h *Handler) LoginPlaceholder(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, r, http.StatusOK, map[string]any{
		"message": "login endpoint placeholder, use POST",
		"method":  http.MethodGet,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	identifier, secret := body.credentials()
	result, err := h.service.Login(r.Context(), identifier, secret)
	if err != nil {
		writeClassified(w, r, err)
		return
	}

	respond.OK(w, r, http.StatusOK, result)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	email := strings.TrimSpace(body.Email)
	if !emailRegex.MatchString(email) {
		respond.Error(w, r, http.StatusBadRequest, CodeInvalidEmail, "a valid email is required", nil)
		return
	}

	decision := h.limiter.RegisterAttempt(email)
	if decision.Blocked {
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
		respond.Error(w, r, http.StatusTooManyRequests, CodeResetRateLimit,
			"too many password reset requests for this email, try again later",
			map[string]any{
				"retryAfterSeconds": decision.RetryAfterSeconds,
				"rateLimit":         decision.RateLimit,
			})
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), email); err != nil {
		writeClassified(w, r, err)
		return
	}

	// Deliberately the same message whether or not the account exists.
	respond.OK(w, r, http.StatusOK, map[string]any{
		"message":   "if the email is registered, a reset link has been sent",
		"rateLimit": decision.RateLimit,
	})
}

func writeClassified(w http.ResponseWriter, r *http.Request, err error) {
	var classified *Error
	if !errors.As(err, &classified) {
		respond.Error(w, r, http.StatusInternalServerError, CodeLoginProcessing, "failed to process login", nil)
		return
	}

	if classified.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}

	respond.Error(w, r, classified.Status, classified.Code, classified.Message, classified.Details)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
