package apple

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lookbook/config"
	"lookbook/internal/domain/entity"
	domainerrors "lookbook/internal/domain/errors"
	"lookbook/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "com.example.app"
	testIssuer   = "https://appleid.apple.com"
)

func newTestVerifier(t *testing.T, url string) service.IdentityVerifier {
	t.Helper()

	cfg := &config.Config{
		Apple: &config.AppleConfig{
			ClientID:       testClientID,
			Issuer:         testIssuer,
			KeySetURL:      url,
			FetchTimeout:   2 * time.Second,
			KeySetCacheTTL: time.Minute,
		},
	}

	verifier, err := NewIdentityTokenVerifier(cfg, NewKeySetSource(cfg, slog.Default()), slog.Default())
	require.NoError(t, err)

	return verifier
}

func signIdentityToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return signed
}

func validIdentityClaims() jwt.MapClaims {
	now := time.Now()

	return jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testClientID,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "user@example.com",
	}
}

func TestIdentityTokenVerifier_Provider(t *testing.T) {
	srv := httptest.NewServer(serveKeySet(&atomic.Value{}, &atomic.Int64{}))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)
	assert.Equal(t, entity.ProviderApple, verifier.Provider())
}

func TestIdentityTokenVerifier_VerifyCredential(t *testing.T) {
	key := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	claims := validIdentityClaims()
	claims["picture"] = "https://cdn.example.com/avatar.png"
	token := signIdentityToken(t, key, "A", claims)

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "user@example.com", info.Email)
	if assert.NotNil(t, info.ProfileImageURL) {
		assert.Equal(t, "https://cdn.example.com/avatar.png", *info.ProfileImageURL)
	}
	assert.Nil(t, info.Gender)
	assert.Nil(t, info.AgeRange)
}

func TestIdentityTokenVerifier_UnknownKid(t *testing.T) {
	key := generateKey(t)
	signer := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	// Key lookup must fail before any signature check runs.
	token := signIdentityToken(t, signer, "Z", validIdentityClaims())

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrKeyNotFound)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_TamperedSignature(t *testing.T) {
	key := generateKey(t)
	impostor := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	// Signed by a different key but claiming kid A.
	token := signIdentityToken(t, impostor, "A", validIdentityClaims())

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_ExpiredWinsOverIssuerMismatch(t *testing.T) {
	key := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	claims := validIdentityClaims()
	claims["iss"] = "https://evil.example.com"
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signIdentityToken(t, key, "A", claims)

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_IssuerMismatch(t *testing.T) {
	key := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	claims := validIdentityClaims()
	claims["iss"] = "https://accounts.example.com"
	token := signIdentityToken(t, key, "A", claims)

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrIssuerMismatch)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_AudienceMismatch(t *testing.T) {
	key := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	claims := validIdentityClaims()
	claims["aud"] = "com.someone.else"
	token := signIdentityToken(t, key, "A", claims)

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrAudienceMismatch)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_MissingExpiry(t *testing.T) {
	key := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	claims := validIdentityClaims()
	delete(claims, "exp")
	token := signIdentityToken(t, key, "A", claims)

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrMissingRequiredClaim)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_MissingEmail(t *testing.T) {
	key := generateKey(t)

	var entries atomic.Value
	entries.Store([]KeySetEntry{keySetEntryFor("A", key)})
	var hits atomic.Int64

	srv := httptest.NewServer(serveKeySet(&entries, &hits))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	claims := validIdentityClaims()
	delete(claims, "email")
	token := signIdentityToken(t, key, "A", claims)

	info, err := verifier.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrMissingRequiredClaim)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_UnsupportedAlgorithm(t *testing.T) {
	srv := httptest.NewServer(serveKeySet(&atomic.Value{}, &atomic.Int64{}))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validIdentityClaims())
	token.Header["kid"] = "A"
	signed, err := token.SignedString([]byte("hmac-secret"))
	require.NoError(t, err)

	info, err := verifier.VerifyCredential(context.Background(), signed)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedAlgorithm)
	assert.Nil(t, info)
}

func TestIdentityTokenVerifier_MalformedToken(t *testing.T) {
	srv := httptest.NewServer(serveKeySet(&atomic.Value{}, &atomic.Int64{}))
	defer srv.Close()

	verifier := newTestVerifier(t, srv.URL)

	for _, credential := range []string{"", "not-a-jwt", "only.two", "a.b.c.d"} {
		info, err := verifier.VerifyCredential(context.Background(), credential)
		assert.ErrorIs(t, err, domainerrors.ErrMalformedToken, "credential %q", credential)
		assert.Nil(t, info)
	}
}

func TestNewIdentityTokenVerifier_MissingConfig(t *testing.T) {
	cfg := &config.Config{Apple: &config.AppleConfig{}}

	verifier, err := NewIdentityTokenVerifier(cfg, NewKeySetSource(cfg, slog.Default()), slog.Default())
	assert.Error(t, err)
	assert.Nil(t, verifier)
}
