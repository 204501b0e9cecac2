package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/treefam/treefam-backend/internal/application/services"
	"github.com/treefam/treefam-backend/internal/core/domain/token"
	"github.com/treefam/treefam-backend/internal/core/domain/user"
	"github.com/treefam/treefam-backend/internal/utils"
	"github.com/treefam/treefam-backend/test/mocks"
)

// memoryUserRepo backs user service tests with an in-memory user table.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *memoryUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memoryUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

// sentEmail captures an outbound message for inspection
type sentEmail struct {
	to, name, rawToken string
}

func newTestUserService(repo *memoryUserRepo) (*services.UserService, *mocks.InMemorySecretTokenStore, *[]sentEmail) {
	store := mocks.NewInMemorySecretTokenStore()
	tokenService := services.NewSecretTokenService(store, testTokenConfig(), quietLogger())

	var sent []sentEmail
	emailService := &mocks.EmailServiceMock{
		SendVerificationEmailFn: func(ctx context.Context, to, name, rawToken string) error {
			sent = append(sent, sentEmail{to, name, rawToken})
			return nil
		},
		SendPasswordResetEmailFn: func(ctx context.Context, to, name, rawToken string) error {
			sent = append(sent, sentEmail{to, name, rawToken})
			return nil
		},
	}

	return services.NewUserService(repo, tokenService, emailService, quietLogger()), store, &sent
}

func signUpReq() *user.SignUpRequest {
	return &user.SignUpRequest{
		Email:     "ada@example.com",
		Password:  "Password1",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestSignUpIssuesVerificationToken(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	u, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)
	require.False(t, u.Enabled)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Password1")))

	require.Len(t, *sent, 1)
	require.Equal(t, u.Email, (*sent)[0].to)
	require.NotEmpty(t, (*sent)[0].rawToken)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newTestUserService(repo)

	_, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), signUpReq())
	require.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestSignUpWeakPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newTestUserService(repo)

	req := signUpReq()
	req.Password = "short1"
	_, err := svc.SignUp(context.Background(), req)
	require.ErrorIs(t, err, utils.ErrPasswordTooShort)
}

func TestSignUpRollsBackWhenEmailFails(t *testing.T) {
	repo := newMemoryUserRepo()
	store := mocks.NewInMemorySecretTokenStore()
	tokenService := services.NewSecretTokenService(store, testTokenConfig(), quietLogger())
	emailService := &mocks.EmailServiceMock{
		SendVerificationEmailFn: func(ctx context.Context, to, name, rawToken string) error {
			return fmt.Errorf("smtp unreachable")
		},
	}
	svc := services.NewUserService(repo, tokenService, emailService, quietLogger())

	_, err := svc.SignUp(context.Background(), signUpReq())
	require.Error(t, err)

	_, err = repo.GetByEmail(context.Background(), "ada@example.com")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestConfirmEmailEnablesUser(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	u, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)
	raw := (*sent)[0].rawToken

	require.NoError(t, svc.ConfirmEmail(context.Background(), raw))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.True(t, got.Enabled)

	// the secret is single-use
	err = svc.ConfirmEmail(context.Background(), raw)
	require.ErrorIs(t, err, token.ErrAlreadyUsed)
}

func TestConfirmEmailUnknownToken(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newTestUserService(repo)

	err := svc.ConfirmEmail(context.Background(), "no-such-token")
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestResendVerificationSupersedes(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	_, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)
	first := (*sent)[0].rawToken

	require.NoError(t, svc.ResendVerification(context.Background(), "ada@example.com"))
	require.Len(t, *sent, 2)
	second := (*sent)[1].rawToken
	require.NotEqual(t, first, second)

	err = svc.ConfirmEmail(context.Background(), first)
	require.ErrorIs(t, err, token.ErrAlreadyUsed)
	require.NoError(t, svc.ConfirmEmail(context.Background(), second))
}

func TestResendVerificationNoopWhenEnabled(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	_, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEmail(context.Background(), (*sent)[0].rawToken))

	require.NoError(t, svc.ResendVerification(context.Background(), "ada@example.com"))
	require.Len(t, *sent, 1)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	u, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), u.Email))
	require.Len(t, *sent, 2)
	raw := (*sent)[1].rawToken

	require.NoError(t, svc.ResetPassword(context.Background(), raw, "NewPassword2"))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("NewPassword2")))

	// second use of the same secret must fail
	err = svc.ResetPassword(context.Background(), raw, "NewPassword3")
	require.ErrorIs(t, err, token.ErrAlreadyUsed)
}

func TestPasswordResetWeakNewPasswordKeepsTokenAlive(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	u, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(context.Background(), u.Email))
	raw := (*sent)[1].rawToken

	err = svc.ResetPassword(context.Background(), raw, "short")
	require.ErrorIs(t, err, utils.ErrPasswordTooShort)

	// the failed attempt must not spend the secret
	require.NoError(t, svc.ResetPassword(context.Background(), raw, "NewPassword2"))
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	require.Empty(t, *sent)
}

func TestResetTokenRejectedForConfirmation(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, sent := newTestUserService(repo)

	u, err := svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(context.Background(), u.Email))
	resetRaw := (*sent)[1].rawToken

	err = svc.ConfirmEmail(context.Background(), resetRaw)
	require.ErrorIs(t, err, token.ErrInvalid)
}
