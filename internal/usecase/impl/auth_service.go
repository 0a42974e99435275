// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "lookbook/internal/delivery/context"
	"lookbook/internal/domain/entity"
	domainerrors "lookbook/internal/domain/errors"
	"lookbook/internal/domain/repository"
	"lookbook/internal/domain/service"
	"lookbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface. It is the orchestrator:
// per-provider verification, identity resolution and session token issuance are
// composed here and nowhere else.
type authService struct {
	verifiers    map[entity.Provider]service.IdentityVerifier
	userRepo     repository.UserRepository
	tokenService service.SessionTokenService
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	AppleVerifier service.IdentityVerifier `name:"apple"`
	KakaoVerifier service.IdentityVerifier `name:"kakao"`
	UserRepo      repository.UserRepository
	TokenService  service.SessionTokenService
	Logger        *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	verifiers := make(map[entity.Provider]service.IdentityVerifier)
	for _, v := range []service.IdentityVerifier{params.AppleVerifier, params.KakaoVerifier} {
		if v != nil {
			verifiers[v.Provider()] = v
		}
	}

	return &authService{
		verifiers:    verifiers,
		userRepo:     params.UserRepo,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login verifies the credential with the provider, resolves the local user and
// issues a session token.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	verifier, ok := srv.verifiers[input.Provider]
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrUnsupportedProvider, "no verifier for provider %q", input.Provider)
	}

	srv.log(ctx).Info("Starting social login", slog.String("provider", input.Provider.String()))

	info, err := verifier.VerifyCredential(ctx, input.Credential)
	if err != nil {
		srv.log(ctx).Warn("Credential verification failed",
			slog.String("provider", input.Provider.String()), slog.Any("error", err))

		return nil, err
	}

	user, err := srv.resolveOrCreate(ctx, input.Provider, info)
	if err != nil {
		srv.log(ctx).Error("Failed to resolve user",
			slog.String("provider", input.Provider.String()), slog.Any("error", err))

		return nil, err
	}

	sessionToken, err := srv.tokenService.Issue(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session token")
	}

	srv.log(ctx).Debug("Social login completed",
		slog.String("provider", input.Provider.String()), slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		SessionToken: sessionToken,
		User:         user,
	}, nil
}

// Validate checks a session token and returns the subject user ID.
func (srv *authService) Validate(ctx context.Context, sessionToken string) (uuid.UUID, error) {
	return srv.tokenService.Validate(sessionToken)
}

// resolveOrCreate finds the user by email or creates one from the verified
// identity. First write wins: a repeat login never reconciles profile fields.
// A lost race on first login surfaces from the store as ErrUserAlreadyExists
// and is resolved by re-reading the winner's row. Not finding the row after a
// successful insert is an invariant violation, not a retry path.
func (srv *authService) resolveOrCreate(ctx context.Context, provider entity.Provider, info *service.SocialUserInfo) (*entity.User, error) {
	user, err := srv.userRepo.FindByEmail(ctx, info.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to look up user by email")
	}

	newUser := &entity.User{
		Email:           info.Email,
		Provider:        provider,
		ProfileImageURL: info.ProfileImageURL,
		Gender:          info.Gender,
		AgeRange:        info.AgeRange,
	}

	createErr := srv.userRepo.Create(ctx, newUser)
	if createErr != nil {
		var appErr domainerrors.AppError
		if errors.As(createErr, &appErr) && appErr.ErrorCode() == domainerrors.ErrUserAlreadyExists.ErrorCode() {
			// A concurrent first login inserted the row between our lookup and
			// insert; the winner's row is authoritative.
			srv.log(ctx).Debug("Concurrent first login detected", slog.String("email", info.Email))

			return srv.readAfterCreate(ctx, info.Email)
		}

		return nil, createErr
	}

	return srv.readAfterCreate(ctx, info.Email)
}

// readAfterCreate re-reads the row that the insert (ours or a concurrent one)
// just established.
func (srv *authService) readAfterCreate(ctx context.Context, email string) (*entity.User, error) {
	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserCreationRaceLost.WrapMessage("user row vanished after insert")
		}

		return nil, errors.Wrap(err, "failed to re-read user after insert")
	}

	return user, nil
}
