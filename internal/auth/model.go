package auth

import "time"

// StoreUser is the user record the verification function returns on success.
// The wire names are the ones the frontend already consumes.
type StoreUser struct {
	ID       int64    `json:"id_usuario"`
	Username string   `json:"nombre_usuario"`
	Roles    []string `json:"roles,omitempty"`
	Branches []string `json:"sucursales,omitempty"`
}

// VerificationOutcome mirrors the JSON object produced by the stored
// verification function: {ok, message?, user?}.
type VerificationOutcome struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message"`
	User    *StoreUser `json:"user"`
}

// ProviderUser is the minimal identity the delegated provider reports after a
// successful password sign-in.
type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginResult carries the signed token plus the sanitized user object handed
// back to the client. User is a StoreUser on the local path and a
// ProviderUser on the delegated path.
type LoginResult struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// RateLimitInfo is the reset-limiter metadata included in every
// forgot-password response.
type RateLimitInfo struct {
	Max            int `json:"max"`
	Remaining      int `json:"remaining"`
	WindowSeconds  int `json:"windowSeconds"`
	ResetInSeconds int `json:"resetInSeconds"`
	BlockSeconds   int `json:"blockSeconds"`
}

// ResetDecision is the limiter verdict for one attempt.
type ResetDecision struct {
	Blocked           bool
	RetryAfterSeconds int
	RateLimit         RateLimitInfo
}

// AttemptRecord tracks reset attempts for one identity key. Records are
// created lazily on first attempt and removed only by Sweep.
type AttemptRecord struct {
	Attempts     int
	WindowStart  time.Time
	BlockedUntil time.Time
}
