// Package kakao resolves Kakao access tokens through Kakao's user-info API.
package kakao

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"lookbook/config"
	"lookbook/internal/domain/entity"
	domainerrors "lookbook/internal/domain/errors"
	"lookbook/internal/domain/service"
)

const defaultFetchTimeout = 10 * time.Second

// userInfoResponse mirrors the fields of Kakao's /v2/user/me response the
// normalizer cares about.
type userInfoResponse struct {
	KakaoAccount struct {
		Email    string `json:"email"`
		Gender   string `json:"gender"`
		AgeRange string `json:"age_range"`
	} `json:"kakao_account"`
	Properties struct {
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
}

// UserInfoVerifier implements service.IdentityVerifier for Kakao. Kakao access
// tokens are opaque, so the only way to verify one is to present it to Kakao's
// user-info endpoint as a bearer token.
type UserInfoVerifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewUserInfoVerifier is the constructor for UserInfoVerifier.
func NewUserInfoVerifier(cfg *config.Config, logger *slog.Logger) (service.IdentityVerifier, error) {
	if cfg.Kakao == nil || cfg.Kakao.UserInfoURL == "" {
		return nil, errors.New("kakao user info url must be provided")
	}

	timeout := defaultFetchTimeout
	if cfg.Kakao.FetchTimeout > 0 {
		timeout = cfg.Kakao.FetchTimeout
	}

	return &UserInfoVerifier{
		endpoint: cfg.Kakao.UserInfoURL,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// Provider returns the provider this verifier handles.
func (v *UserInfoVerifier) Provider() entity.Provider {
	return entity.ProviderKakao
}

// VerifyCredential presents the access token to Kakao and normalizes the
// response. Transport failures and non-2xx responses all collapse to
// InvalidCredential; the caller cannot tell a bad token from a provider outage.
func (v *UserInfoVerifier) VerifyCredential(ctx context.Context, credential string) (*service.SocialUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, nil)
	if err != nil {
		return nil, domainerrors.ErrInvalidCredential.WrapMessage("failed to build user info request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("Kakao user info request failed", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidCredential.WrapMessage("failed to reach user info endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		v.logger.Debug("Kakao user info returned non-2xx", slog.Int("status", resp.StatusCode))

		return nil, errors.Wrapf(domainerrors.ErrInvalidCredential, "user info endpoint returned %d", resp.StatusCode)
	}

	var body userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domainerrors.ErrInvalidCredential.WrapMessage("failed to decode user info response")
	}

	return normalizeUserInfo(&body)
}

// normalizeUserInfo maps the provider response into the provider-agnostic
// identity record. Email is mandatory; everything else degrades to nil.
func normalizeUserInfo(body *userInfoResponse) (*service.SocialUserInfo, error) {
	if body.KakaoAccount.Email == "" {
		return nil, domainerrors.ErrMissingRequiredClaim.WrapMessage("user info response carries no email")
	}

	return &service.SocialUserInfo{
		Email:           body.KakaoAccount.Email,
		ProfileImageURL: optionalString(body.Properties.ProfileImage),
		Gender:          optionalString(body.KakaoAccount.Gender),
		AgeRange:        optionalString(body.KakaoAccount.AgeRange),
	}, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
