// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"lookbook/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the single persistence surface the login core needs:
// lookup by id or email and first-time creation. Updates and deletes are out of
// scope; a repeat login never reconciles profile fields.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity. A concurrent first login for the same
	// email surfaces as domainerrors.ErrUserAlreadyExists through the unique
	// constraint on email; callers treat that as "someone else just created it".
	Create(ctx context.Context, user *entity.User) error
}
