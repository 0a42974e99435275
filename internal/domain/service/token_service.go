package service

import (
	"github.com/google/uuid"
)

// SessionTokenService issues and validates first-party session tokens. Tokens
// are stateless; validity is purely a function of signature and expiry.
type SessionTokenService interface {
	// Issue creates a signed session token for the given user.
	Issue(userID uuid.UUID) (string, error)

	// Validate checks signature and expiry and returns the subject user ID.
	// Failure kinds are the domain token errors; unrecognized garbage maps to a
	// single generic invalid-session error rather than surfacing raw parser
	// failures.
	Validate(token string) (uuid.UUID, error)
}
