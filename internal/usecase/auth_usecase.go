// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"lookbook/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// LoginInput defines the data required for a social login. Credential is the
// provider-issued proof: an identity token for Apple, an access token for Kakao.
type LoginInput struct {
	Provider   entity.Provider `json:"provider"`
	Credential string          `json:"credential" validate:"required"`
}

// --- Output DTOs ---

// LoginOutput returns the issued session token after a successful login.
type LoginOutput struct {
	SessionToken string       `json:"sessionToken"`
	User         *entity.User `json:"user"`
}

// AuthUsecase defines the interface for login and session validation.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Login verifies the provider credential, resolves or creates the local
	// user, and issues a session token. Any stage failure aborts the whole
	// login with that stage's error; there is no partial success and no retry.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// Validate checks a session token and returns the subject user ID.
	Validate(ctx context.Context, sessionToken string) (uuid.UUID, error)
}
