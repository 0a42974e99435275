package auth

import (
	"log/slog"
	"testing"
	"time"

	"lookbook/config"
	domainerrors "lookbook/internal/domain/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// issueWithSubject signs a token with the service's key but an arbitrary subject.
func issueWithSubject(t *testing.T, svc *sessionTokenService, subject string) string {
	t.Helper()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(svc.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.signingKey)
	assert.NoError(t, err)

	return token
}

func testConfig(secret string, ttl time.Duration) *config.Config {
	return &config.Config{
		SessionToken: &config.SessionTokenConfig{
			Secret: secret,
			TTL:    ttl,
		},
	}
}

func TestSessionTokenService_IssueAndValidate(t *testing.T) {
	svc, err := NewSessionTokenService(testConfig("test_session_secret_very_long_for_testing", time.Hour), slog.Default())
	assert.NoError(t, err)
	assert.NotNil(t, svc)

	userID := uuid.New()

	token, err := svc.Issue(userID)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	gotID, err := svc.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, userID, gotID)
}

func TestSessionTokenService_Expired(t *testing.T) {
	// Build the service directly so the token is already expired at issue time.
	svc := &sessionTokenService{
		signingKey: []byte("test_session_secret"),
		ttl:        -time.Minute,
		logger:     slog.Default(),
	}

	token, err := svc.Issue(uuid.New())
	assert.NoError(t, err)

	gotID, err := svc.Validate(token)
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
	assert.Equal(t, uuid.Nil, gotID)
}

func TestSessionTokenService_Malformed(t *testing.T) {
	svc, err := NewSessionTokenService(testConfig("test_session_secret_very_long_for_testing", time.Hour), slog.Default())
	assert.NoError(t, err)

	gotID, err := svc.Validate("clearly-not-a-jwt-token-format")
	assert.ErrorIs(t, err, domainerrors.ErrMalformedToken)
	assert.Equal(t, uuid.Nil, gotID)
}

func TestSessionTokenService_WrongSecret(t *testing.T) {
	issuer, err := NewSessionTokenService(testConfig("issuer_secret_very_long_for_testing", time.Hour), slog.Default())
	assert.NoError(t, err)

	validator, err := NewSessionTokenService(testConfig("another_secret_very_long_for_testing", time.Hour), slog.Default())
	assert.NoError(t, err)

	token, err := issuer.Issue(uuid.New())
	assert.NoError(t, err)

	gotID, err := validator.Validate(token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
	assert.Equal(t, uuid.Nil, gotID)
}

func TestSessionTokenService_NonUUIDSubject(t *testing.T) {
	svc, err := NewSessionTokenService(testConfig("test_session_secret_very_long_for_testing", time.Hour), slog.Default())
	assert.NoError(t, err)

	// A token signed with the right key but carrying a non-UUID subject must
	// come back as a generic invalid session, not a parser panic.
	impl := svc.(*sessionTokenService)
	other := &sessionTokenService{signingKey: impl.signingKey, ttl: time.Hour, logger: slog.Default()}
	token := issueWithSubject(t, other, "not-a-uuid")

	gotID, err := svc.Validate(token)
	assert.ErrorIs(t, err, domainerrors.ErrSessionTokenInvalid)
	assert.Equal(t, uuid.Nil, gotID)
}

func TestSessionTokenService_MissingConfig(t *testing.T) {
	svc, err := NewSessionTokenService(&config.Config{}, slog.Default())
	assert.Error(t, err)
	assert.Nil(t, svc)

	svc, err = NewSessionTokenService(testConfig("secret", 0), slog.Default())
	assert.Error(t, err)
	assert.Nil(t, svc)
}
