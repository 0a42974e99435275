// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"lookbook/config"
	domainerrors "lookbook/internal/domain/errors"
	"lookbook/internal/domain/service"
)

// sessionTokenService is a concrete implementation of the SessionTokenService
// interface using HS256-signed JWTs.
type sessionTokenService struct {
	signingKey []byte        // Derived once at construction, read-only afterwards.
	ttl        time.Duration // Lifetime of issued tokens.
	logger     *slog.Logger
}

// NewSessionTokenService is the constructor for sessionTokenService.
// The configured secret is base64-encoded exactly once here and the result is
// used as the signing key for the whole process lifetime.
func NewSessionTokenService(cfg *config.Config, logger *slog.Logger) (service.SessionTokenService, error) {
	if cfg.SessionToken == nil || cfg.SessionToken.Secret == "" {
		return nil, errors.New("session token secret must be provided")
	}
	if cfg.SessionToken.TTL <= 0 {
		return nil, errors.New("session token ttl must be positive")
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(cfg.SessionToken.Secret))

	return &sessionTokenService{
		signingKey: []byte(encoded),
		ttl:        cfg.SessionToken.TTL,
		logger:     logger,
	}, nil
}

// Issue creates a signed session token whose subject is the user ID.
func (s *sessionTokenService) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}

	return signed, nil
}

// Validate checks signature and expiry and returns the subject user ID.
func (s *sessionTokenService) Validate(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}

		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return uuid.Nil, s.mapValidationError(err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		s.logger.Debug("Session token carries a non-UUID subject", slog.Any("error", err))

		return uuid.Nil, domainerrors.ErrSessionTokenInvalid.WrapMessage("invalid subject claim")
	}

	return userID, nil
}

// mapValidationError converts jwt parser failures into domain error kinds.
// Expiry must stay distinguishable from tamper kinds so callers can prompt a
// re-login instead of alerting. Anything unrecognized collapses to the generic
// invalid-session error; garbage input never surfaces a raw parser failure.
func (s *sessionTokenService) mapValidationError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainerrors.ErrTokenExpired.WrapMessage("session token expired")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domainerrors.ErrMalformedToken.WrapMessage("session token malformed")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domainerrors.ErrInvalidSignature.WrapMessage("session token signature mismatch")
	default:
		s.logger.Debug("Unrecognized session token failure", slog.Any("error", err))

		return domainerrors.ErrSessionTokenInvalid.WrapMessage("session token rejected")
	}
}
