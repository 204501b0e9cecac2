package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/treefam/treefam-backend/internal/core/domain/auth"
	"github.com/treefam/treefam-backend/internal/core/domain/token"
	"github.com/treefam/treefam-backend/internal/core/domain/user"
	"github.com/treefam/treefam-backend/internal/core/ports"
)

// SecretTokenStoreMock is a lightweight function-field mock for SecretTokenStore
type SecretTokenStoreMock struct {
	SaveFn          func(ctx context.Context, t *token.SecretToken) error
	GetByHashFn     func(ctx context.Context, hash string) (*token.SecretToken, error)
	FindActiveFn    func(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) ([]*token.SecretToken, error)
	ConsumeFn       func(ctx context.Context, hash string) (bool, error)
	DeleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
	TransactFn      func(ctx context.Context, fn func(ports.SecretTokenStore) error) error
}

func (m *SecretTokenStoreMock) Save(ctx context.Context, t *token.SecretToken) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, t)
	}
	return nil
}
func (m *SecretTokenStoreMock) GetByHash(ctx context.Context, hash string) (*token.SecretToken, error) {
	if m.GetByHashFn != nil {
		return m.GetByHashFn(ctx, hash)
	}
	return nil, token.ErrNotFound
}
func (m *SecretTokenStoreMock) FindActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) ([]*token.SecretToken, error) {
	if m.FindActiveFn != nil {
		return m.FindActiveFn(ctx, purpose, subjectID)
	}
	return nil, nil
}
func (m *SecretTokenStoreMock) Consume(ctx context.Context, hash string) (bool, error) {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, hash)
	}
	return false, nil
}
func (m *SecretTokenStoreMock) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFn != nil {
		return m.DeleteExpiredFn(ctx, now)
	}
	return 0, nil
}
func (m *SecretTokenStoreMock) Transact(ctx context.Context, fn func(ports.SecretTokenStore) error) error {
	if m.TransactFn != nil {
		return m.TransactFn(ctx, fn)
	}
	return fn(m)
}

// InMemorySecretTokenStore is a map-backed SecretTokenStore for service tests.
type InMemorySecretTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*token.SecretToken
}

func NewInMemorySecretTokenStore() *InMemorySecretTokenStore {
	return &InMemorySecretTokenStore{tokens: make(map[string]*token.SecretToken)}
}

func (s *InMemorySecretTokenStore) Save(ctx context.Context, t *token.SecretToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[t.TokenHash]; exists {
		return token.ErrHashConflict
	}
	cp := *t
	s.tokens[t.TokenHash] = &cp
	return nil
}

func (s *InMemorySecretTokenStore) GetByHash(ctx context.Context, hash string) (*token.SecretToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, token.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemorySecretTokenStore) FindActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) ([]*token.SecretToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*token.SecretToken
	for _, t := range s.tokens {
		if t.Purpose == purpose && t.SubjectID == subjectID && !t.Consumed {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemorySecretTokenStore) Consume(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.Consumed {
		return false, nil
	}
	t.Consumed = true
	return true, nil
}

func (s *InMemorySecretTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for hash, t := range s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(s.tokens, hash)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemorySecretTokenStore) Transact(ctx context.Context, fn func(ports.SecretTokenStore) error) error {
	return fn(s)
}

// SecretTokenServiceMock is a lightweight mock for SecretTokenService
type SecretTokenServiceMock struct {
	IssueFn        func(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) (string, error)
	ValidateFn     func(ctx context.Context, rawSecret string, purpose token.Purpose) (uuid.UUID, error)
	ConsumeFn      func(ctx context.Context, rawSecret string) error
	CancelActiveFn func(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) error
}

func (m *SecretTokenServiceMock) Issue(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) (string, error) {
	if m.IssueFn != nil {
		return m.IssueFn(ctx, purpose, subjectID)
	}
	return "raw-secret", nil
}
func (m *SecretTokenServiceMock) Validate(ctx context.Context, rawSecret string, purpose token.Purpose) (uuid.UUID, error) {
	if m.ValidateFn != nil {
		return m.ValidateFn(ctx, rawSecret, purpose)
	}
	return uuid.Nil, token.ErrNotFound
}
func (m *SecretTokenServiceMock) Consume(ctx context.Context, rawSecret string) error {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, rawSecret)
	}
	return nil
}
func (m *SecretTokenServiceMock) CancelActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) error {
	if m.CancelActiveFn != nil {
		return m.CancelActiveFn(ctx, purpose, subjectID)
	}
	return nil
}

// UserRepositoryMock is a lightweight mock for UserRepository
type UserRepositoryMock struct {
	CreateFn        func(ctx context.Context, u *user.User) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmailFn    func(ctx context.Context, email string) (*user.User, error)
	UpdateFn        func(ctx context.Context, u *user.User) error
	DeleteFn        func(ctx context.Context, id uuid.UUID) error
	ExistsByEmailFn func(ctx context.Context, email string) (bool, error)
}

func (m *UserRepositoryMock) Create(ctx context.Context, u *user.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}
func (m *UserRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, user.ErrNotFound
}
func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, user.ErrNotFound
}
func (m *UserRepositoryMock) Update(ctx context.Context, u *user.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, u)
	}
	return nil
}
func (m *UserRepositoryMock) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
func (m *UserRepositoryMock) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFn != nil {
		return m.ExistsByEmailFn(ctx, email)
	}
	return false, nil
}

// UserServiceMock is a lightweight mock for UserService
type UserServiceMock struct {
	SignUpFn               func(ctx context.Context, req *user.SignUpRequest) (*user.User, error)
	GetUserFn              func(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByEmailFn       func(ctx context.Context, email string) (*user.User, error)
	ConfirmEmailFn         func(ctx context.Context, rawToken string) error
	ResendVerificationFn   func(ctx context.Context, email string) error
	RequestPasswordResetFn func(ctx context.Context, email string) error
	ResetPasswordFn        func(ctx context.Context, rawToken, newPassword string) error
}

func (m *UserServiceMock) SignUp(ctx context.Context, req *user.SignUpRequest) (*user.User, error) {
	if m.SignUpFn != nil {
		return m.SignUpFn(ctx, req)
	}
	return nil, nil
}
func (m *UserServiceMock) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, id)
	}
	return nil, user.ErrNotFound
}
func (m *UserServiceMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetUserByEmailFn != nil {
		return m.GetUserByEmailFn(ctx, email)
	}
	return nil, user.ErrNotFound
}
func (m *UserServiceMock) ConfirmEmail(ctx context.Context, rawToken string) error {
	if m.ConfirmEmailFn != nil {
		return m.ConfirmEmailFn(ctx, rawToken)
	}
	return nil
}
func (m *UserServiceMock) ResendVerification(ctx context.Context, email string) error {
	if m.ResendVerificationFn != nil {
		return m.ResendVerificationFn(ctx, email)
	}
	return nil
}
func (m *UserServiceMock) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFn != nil {
		return m.RequestPasswordResetFn(ctx, email)
	}
	return nil
}
func (m *UserServiceMock) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if m.ResetPasswordFn != nil {
		return m.ResetPasswordFn(ctx, rawToken, newPassword)
	}
	return nil
}

// AuthServiceMock is a lightweight mock for AuthService
type AuthServiceMock struct {
	LoginFn         func(ctx context.Context, req *auth.SignInRequest) (string, error)
	GenerateTokenFn func(u *user.User) (string, error)
	ValidateTokenFn func(tokenString string) (*auth.Claims, error)
}

func (m *AuthServiceMock) Login(ctx context.Context, req *auth.SignInRequest) (string, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, req)
	}
	return "", nil
}
func (m *AuthServiceMock) GenerateToken(u *user.User) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(u)
	}
	return "", nil
}
func (m *AuthServiceMock) ValidateToken(tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(tokenString)
	}
	return nil, auth.ErrCredentialMalformed
}

// EmailServiceMock records outbound messages instead of sending them
type EmailServiceMock struct {
	SendVerificationEmailFn  func(ctx context.Context, to, name, rawToken string) error
	SendPasswordResetEmailFn func(ctx context.Context, to, name, rawToken string) error
}

func (m *EmailServiceMock) SendVerificationEmail(ctx context.Context, to, name, rawToken string) error {
	if m.SendVerificationEmailFn != nil {
		return m.SendVerificationEmailFn(ctx, to, name, rawToken)
	}
	return nil
}
func (m *EmailServiceMock) SendPasswordResetEmail(ctx context.Context, to, name, rawToken string) error {
	if m.SendPasswordResetEmailFn != nil {
		return m.SendPasswordResetEmailFn(ctx, to, name, rawToken)
	}
	return nil
}

// RateLimitStoreMock always allows unless overridden
type RateLimitStoreMock struct {
	IncrementWindowFn func(ctx context.Context, key string, window time.Duration, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitStoreMock) IncrementWindow(ctx context.Context, key string, window time.Duration, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, key, window, ttl)
	}
	return 1, time.Now(), nil
}
