package auth

// Stable error codes surfaced to clients. The HTTP status travels with the
// code so handlers never guess.
const (
	CodeMissingCredentials    = "MISSING_CREDENTIALS"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeStoreNotConfigured    = "STORE_NOT_CONFIGURED"
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeLoginProcessing       = "LOGIN_PROCESSING_ERROR"
	CodeInvalidEmail          = "AUTH_INVALID_EMAIL"
	CodeResetRateLimit        = "AUTH_RESET_RATE_LIMIT"
	CodeProviderRateLimit     = "PROVIDER_RATE_LIMIT"
)

// Error is a classified failure: a stable code, the HTTP status it maps to, a
// message safe to show clients and an optional operational hint in Details.
// The underlying cause, when any, is kept for logs and never serialized.
type Error struct {
	Code    string
	Status  int
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func errMissingCredentials() *Error {
	return &Error{
		Code:    CodeMissingCredentials,
		Status:  400,
		Message: "missing credentials: nombre_usuario/username/email and contrasena/password are required",
	}
}

func errInvalidCredentials(message string) *Error {
	if message == "" {
		message = "invalid credentials"
	}
	return &Error{Code: CodeInvalidCredentials, Status: 401, Message: message}
}

func errStoreNotConfigured() *Error {
	return &Error{
		Code:    CodeStoreNotConfigured,
		Status:  500,
		Message: "credential store is not configured",
	}
}

func errProviderNotConfigured() *Error {
	return &Error{
		Code:    CodeProviderNotConfigured,
		Status:  500,
		Message: "identity provider is not configured",
	}
}

func errLoginProcessing(cause error, details any) *Error {
	return &Error{
		Code:    CodeLoginProcessing,
		Status:  500,
		Message: "failed to process login",
		Details: details,
		cause:   cause,
	}
}

func errProviderRateLimit(cause error) *Error {
	return &Error{
		Code:    CodeProviderRateLimit,
		Status:  429,
		Message: "the identity provider is rate limiting requests, try again later",
		cause:   cause,
	}
}
