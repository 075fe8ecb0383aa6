package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// LoginFunction is the stored procedure that validates a username/password
// pair inside the database and returns a JSON verdict.
const LoginFunction = "public.fn_login_usuario"

// CredentialVerifier is the narrow capability the local login path needs.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, secret string) (VerificationOutcome, error)
}

// Store verifies credentials through the database-side login function. The
// password never gets compared in Go; the function owns the hashing scheme.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) VerifyCredentials(ctx context.Context, identifier, secret string) (VerificationOutcome, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT `+LoginFunction+`($1, $2) AS result
	`, identifier, secret).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No verdict row at all: treated as a plain rejection.
			return VerificationOutcome{}, nil
		}
		return VerificationOutcome{}, fmt.Errorf("call %s: %w", LoginFunction, err)
	}

	if len(raw) == 0 {
		return VerificationOutcome{}, nil
	}

	var outcome VerificationOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return VerificationOutcome{}, fmt.Errorf("decode %s result: %w", LoginFunction, err)
	}

	return outcome, nil
}
