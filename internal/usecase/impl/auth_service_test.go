package impl

import (
	"context"
	"log/slog"
	"testing"

	"lookbook/internal/domain/entity"
	domainerrors "lookbook/internal/domain/errors"
	"lookbook/internal/domain/repository"
	"lookbook/internal/domain/service"
	"lookbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// fakeVerifier returns a canned identity or error for any credential.
type fakeVerifier struct {
	provider entity.Provider
	info     *service.SocialUserInfo
	err      error
}

func (f *fakeVerifier) Provider() entity.Provider { return f.provider }

func (f *fakeVerifier) VerifyCredential(ctx context.Context, credential string) (*service.SocialUserInfo, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.info, nil
}

// fakeUserRepo is an in-memory UserRepository keyed by email, with hooks to
// force specific failures.
type fakeUserRepo struct {
	byEmail     map[string]*entity.User
	createErr   error
	createCalls int
	// When set, Create reports a duplicate and installs the winner's row,
	// simulating a concurrent first login between lookup and insert.
	conflictWinner *entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*entity.User)}
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			return user, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.createCalls++

	if r.conflictWinner != nil {
		r.byEmail[r.conflictWinner.Email] = r.conflictWinner

		return domainerrors.ErrUserAlreadyExists.WrapMessage("duplicate email")
	}
	if r.createErr != nil {
		return r.createErr
	}

	user.ID = uuid.New()
	r.byEmail[user.Email] = user

	return nil
}

// fakeTokenService issues a fixed token and validates to a fixed user ID.
type fakeTokenService struct {
	token    string
	issueErr error
	validID  uuid.UUID
	validErr error
	issuedTo []uuid.UUID
}

func (s *fakeTokenService) Issue(userID uuid.UUID) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	s.issuedTo = append(s.issuedTo, userID)

	return s.token, nil
}

func (s *fakeTokenService) Validate(token string) (uuid.UUID, error) {
	if s.validErr != nil {
		return uuid.Nil, s.validErr
	}

	return s.validID, nil
}

func newTestAuthService(repo repository.UserRepository, tokenSvc service.SessionTokenService, verifiers ...service.IdentityVerifier) usecase.AuthUsecase {
	params := AuthServiceParams{
		UserRepo:     repo,
		TokenService: tokenSvc,
		Logger:       slog.Default(),
	}
	for _, v := range verifiers {
		switch v.Provider() {
		case entity.ProviderApple:
			params.AppleVerifier = v
		case entity.ProviderKakao:
			params.KakaoVerifier = v
		}
	}

	return NewAuthService(params)
}

func appleIdentity(email string) *fakeVerifier {
	return &fakeVerifier{
		provider: entity.ProviderApple,
		info:     &service.SocialUserInfo{Email: email},
	}
}

func TestAuthService_Login_FirstLoginCreatesUser(t *testing.T) {
	repo := newFakeUserRepo()
	tokenSvc := &fakeTokenService{token: "session-token"}
	svc := newTestAuthService(repo, tokenSvc, appleIdentity("user@example.com"))

	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	assert.NoError(t, err)
	assert.Equal(t, "session-token", out.SessionToken)
	assert.Equal(t, "user@example.com", out.User.Email)
	assert.Equal(t, entity.ProviderApple, out.User.Provider)
	assert.NotEqual(t, uuid.Nil, out.User.ID)
	assert.Equal(t, 1, repo.createCalls)
	assert.Equal(t, []uuid.UUID{out.User.ID}, tokenSvc.issuedTo)
}

func TestAuthService_Login_RepeatLoginReusesUser(t *testing.T) {
	repo := newFakeUserRepo()
	tokenSvc := &fakeTokenService{token: "session-token"}
	svc := newTestAuthService(repo, tokenSvc, appleIdentity("user@example.com"))

	first, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	assert.NoError(t, err)

	second, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	assert.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, repo.createCalls)
	assert.Len(t, repo.byEmail, 1)
}

func TestAuthService_Login_UnsupportedProvider(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo, &fakeTokenService{token: "t"}, appleIdentity("user@example.com"))

	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.Provider("naver"),
		Credential: "whatever",
	})
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedProvider)
	assert.Nil(t, out)
	assert.Equal(t, 0, repo.createCalls)
}

func TestAuthService_Login_VerifierErrorAborts(t *testing.T) {
	repo := newFakeUserRepo()
	verifier := &fakeVerifier{
		provider: entity.ProviderKakao,
		err:      domainerrors.ErrInvalidCredential.WrapMessage("provider rejected the token"),
	}
	svc := newTestAuthService(repo, &fakeTokenService{token: "t"}, verifier)

	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderKakao,
		Credential: "bad-token",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredential)
	assert.Nil(t, out)
	assert.Equal(t, 0, repo.createCalls)
}

func TestAuthService_Login_ConflictReturnsWinnersRow(t *testing.T) {
	winner := &entity.User{
		ID:       uuid.New(),
		Email:    "user@example.com",
		Provider: entity.ProviderKakao,
	}
	repo := newFakeUserRepo()
	repo.conflictWinner = winner

	tokenSvc := &fakeTokenService{token: "session-token"}
	svc := newTestAuthService(repo, tokenSvc, appleIdentity("user@example.com"))

	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	assert.NoError(t, err)
	assert.Equal(t, winner.ID, out.User.ID)
	assert.Equal(t, entity.ProviderKakao, out.User.Provider)
	assert.Equal(t, []uuid.UUID{winner.ID}, tokenSvc.issuedTo)
}

func TestAuthService_Login_RowVanishedAfterConflict(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = domainerrors.ErrUserAlreadyExists.WrapMessage("duplicate email")

	svc := newTestAuthService(repo, &fakeTokenService{token: "t"}, appleIdentity("user@example.com"))

	// Create reports a duplicate but the re-read finds nothing. That breaks the
	// invariant that a conflicting row exists, so the login fails outright.
	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	assert.ErrorIs(t, err, domainerrors.ErrUserCreationRaceLost)
	assert.Nil(t, out)
}

func TestAuthService_Login_CreateFailurePropagates(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = domainerrors.NewDatabaseExecuteError(errors.New("connection reset"), "insert users")

	svc := newTestAuthService(repo, &fakeTokenService{token: "t"}, appleIdentity("user@example.com"))

	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	var dbErr *domainerrors.DatabaseExecuteError
	assert.ErrorAs(t, err, &dbErr)
	assert.Nil(t, out)
}

func TestAuthService_Login_IssueFailureAborts(t *testing.T) {
	repo := newFakeUserRepo()
	tokenSvc := &fakeTokenService{issueErr: errors.New("hmac signing failed")}
	svc := newTestAuthService(repo, tokenSvc, appleIdentity("user@example.com"))

	out, err := svc.Login(context.Background(), &usecase.LoginInput{
		Provider:   entity.ProviderApple,
		Credential: "identity-token",
	})
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestAuthService_Validate(t *testing.T) {
	userID := uuid.New()
	tokenSvc := &fakeTokenService{validID: userID}
	svc := newTestAuthService(newFakeUserRepo(), tokenSvc, appleIdentity("user@example.com"))

	gotID, err := svc.Validate(context.Background(), "session-token")
	assert.NoError(t, err)
	assert.Equal(t, userID, gotID)

	tokenSvc.validErr = domainerrors.ErrSessionTokenInvalid
	gotID, err = svc.Validate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domainerrors.ErrSessionTokenInvalid)
	assert.Equal(t, uuid.Nil, gotID)
}
