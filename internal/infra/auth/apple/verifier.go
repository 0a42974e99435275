package apple

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"lookbook/config"
	"lookbook/internal/domain/entity"
	domainerrors "lookbook/internal/domain/errors"
	"lookbook/internal/domain/service"
)

// tokenHeader is the decoded first segment of an identity token.
type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// identityClaims are the payload claims of an Apple identity token.
// Only email is mandatory; picture, gender and birthdate are best-effort.
type identityClaims struct {
	Issuer    string           `json:"iss"`
	Audience  jwt.ClaimStrings `json:"aud"`
	Expiry    *jwt.NumericDate `json:"exp"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	Email     string           `json:"email"`
	Picture   string           `json:"picture"`
	Gender    string           `json:"gender"`
	Birthdate string           `json:"birthdate"`
}

// The jwt.Claims interface; validation is done by the verifier itself so the
// parser runs with claim validation disabled.
func (c *identityClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.Expiry, nil }
func (c *identityClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *identityClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *identityClaims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *identityClaims) GetSubject() (string, error)                  { return "", nil }
func (c *identityClaims) GetAudience() (jwt.ClaimStrings, error)       { return c.Audience, nil }

// IdentityTokenVerifier implements service.IdentityVerifier for Apple.
// It verifies the RS256 signature of a client-supplied identity token against
// Apple's key set, then validates issuer, audience and expiry.
type IdentityTokenVerifier struct {
	keys     *KeySetSource
	issuer   string
	clientID string
	logger   *slog.Logger
}

// NewIdentityTokenVerifier is the constructor for IdentityTokenVerifier.
func NewIdentityTokenVerifier(cfg *config.Config, keys *KeySetSource, logger *slog.Logger) (service.IdentityVerifier, error) {
	if cfg.Apple == nil || cfg.Apple.ClientID == "" || cfg.Apple.Issuer == "" || cfg.Apple.KeySetURL == "" {
		return nil, errors.New("apple issuer, client id and key set url must be provided")
	}

	return &IdentityTokenVerifier{
		keys:     keys,
		issuer:   cfg.Apple.Issuer,
		clientID: cfg.Apple.ClientID,
		logger:   logger,
	}, nil
}

// Provider returns the provider this verifier handles.
func (v *IdentityTokenVerifier) Provider() entity.Provider {
	return entity.ProviderApple
}

// VerifyCredential verifies an identity token and extracts the normalized user identity.
func (v *IdentityTokenVerifier) VerifyCredential(ctx context.Context, credential string) (*service.SocialUserInfo, error) {
	header, err := parseHeader(credential)
	if err != nil {
		return nil, err
	}

	if header.Alg != jwt.SigningMethodRS256.Alg() {
		return nil, errors.Wrapf(domainerrors.ErrUnsupportedAlgorithm, "unexpected alg %q", header.Alg)
	}

	publicKey, err := v.keys.PublicKey(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	claims := &identityClaims{}
	_, err = jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, domainerrors.ErrInvalidSignature.WrapMessage("identity token signature mismatch")
		}

		return nil, domainerrors.ErrMalformedToken.WrapMessage("identity token rejected by parser")
	}

	if err := v.validateClaims(claims, time.Now()); err != nil {
		return nil, err
	}

	return normalizeClaims(claims)
}

// validateClaims enforces expiry, issuer and audience. All three gate
// acceptance; expiry is checked first so an expired token reports TokenExpired
// even when issuer or audience also mismatch.
func (v *IdentityTokenVerifier) validateClaims(claims *identityClaims, now time.Time) error {
	if claims.Expiry == nil {
		return domainerrors.ErrMissingRequiredClaim.WrapMessage("identity token has no expiry")
	}
	if claims.Expiry.Before(now) {
		return domainerrors.ErrTokenExpired.WrapMessage("identity token expired")
	}

	if claims.Issuer != v.issuer {
		return errors.Wrapf(domainerrors.ErrIssuerMismatch, "unexpected issuer %q", claims.Issuer)
	}

	if !slices.Contains(claims.Audience, v.clientID) {
		return errors.Wrapf(domainerrors.ErrAudienceMismatch, "token not issued for %q", v.clientID)
	}

	return nil
}

// parseHeader splits the compact token and decodes its header segment.
func parseHeader(credential string) (*tokenHeader, error) {
	segments := strings.Split(credential, ".")
	if len(segments) != 3 {
		return nil, domainerrors.ErrMalformedToken.WrapMessage("identity token must have exactly 3 segments")
	}

	raw, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		return nil, domainerrors.ErrMalformedToken.WrapMessage("failed to decode identity token header")
	}

	header := &tokenHeader{}
	if err := json.Unmarshal(raw, header); err != nil {
		return nil, domainerrors.ErrMalformedToken.WrapMessage("failed to parse identity token header")
	}

	return header, nil
}

// normalizeClaims maps verified claims into the provider-agnostic identity
// record. Email is mandatory; everything else degrades to nil when absent.
func normalizeClaims(claims *identityClaims) (*service.SocialUserInfo, error) {
	if claims.Email == "" {
		return nil, domainerrors.ErrMissingRequiredClaim.WrapMessage("identity token carries no email claim")
	}

	return &service.SocialUserInfo{
		Email:           claims.Email,
		ProfileImageURL: optionalString(claims.Picture),
		Gender:          optionalString(claims.Gender),
		AgeRange:        optionalString(claims.Birthdate),
	}, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
