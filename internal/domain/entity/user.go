// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a local account resolved from a social login. Email is the uniqueness
// key; the provider tag records where the first login came from and is not part
// of identity. Profile fields are best-effort copies of provider claims taken at
// first login and never reconciled on repeat logins.
type User struct {
	ID              uuid.UUID // The unique identifier for the user.
	Email           string    // The user's email address, unique across all providers.
	Provider        Provider  // The social provider that first created this account.
	ProfileImageURL *string   // Optional profile image URL from the provider.
	Gender          *string   // Optional gender claim from the provider.
	AgeRange        *string   // Optional age range or birth info from the provider.
	CreatedAt       time.Time // Timestamp of when this user account was created.
	UpdatedAt       time.Time // Timestamp of the last modification to this user's data.
}
