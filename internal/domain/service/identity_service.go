package service

import (
	"context"

	"lookbook/internal/domain/entity"
)

// SocialUserInfo is the provider-agnostic identity record extracted from a
// verified credential. Email is mandatory; every other field is best-effort and
// nil when the provider did not supply it.
type SocialUserInfo struct {
	Email           string  // Required. The uniqueness key for local accounts.
	ProfileImageURL *string // Optional profile image URL.
	Gender          *string // Optional gender claim.
	AgeRange        *string // Optional age range or birth info.
}

// IdentityVerifier verifies a provider credential and extracts a normalized
// identity record. Apple implements this over local signature verification of
// an identity token; Kakao implements it over a remote user-info lookup with a
// bearer access token.
type IdentityVerifier interface {
	// VerifyCredential checks the supplied credential against the provider's
	// trust material and returns the normalized user identity.
	VerifyCredential(ctx context.Context, credential string) (*SocialUserInfo, error)

	// Provider returns which provider this verifier handles.
	Provider() entity.Provider
}
