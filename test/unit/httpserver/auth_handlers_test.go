package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/application/services"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/response"
	"github.com/treefam/treefam-backend/test/mocks"
)

// apiFixture wires the full HTTP surface against in-memory backends.
type apiFixture struct {
	server *httpserver.Server
	sent   *[]sentEmail
}

type sentEmail struct {
	to, name, rawToken string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := quietLogger()

	tokenStore := mocks.NewInMemorySecretTokenStore()
	tokenService := services.NewSecretTokenService(tokenStore, &config.TokenConfig{
		VerifyTTL:       24 * time.Hour,
		ResetTTL:        24 * time.Hour,
		CleanupInterval: time.Hour,
	}, logger)

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

	userRepo := newMemoryUserRepo()
	authService := services.NewAuthService(userRepo, &config.JWTConfig{Secret: "api-test-secret", TokenTTL: time.Hour}, logger)
	userService := services.NewUserService(userRepo, tokenService, emailService, logger)

	server := httpserver.NewServer(
		&httpserver.ServerConfig{Host: "localhost", Port: "0"},
		&config.RateLimitConfig{RequestsPerMinute: 1000, Window: time.Minute, KeyPrefix: "test"},
		logger,
		httpserver.ServerDeps{
			UserService:    userService,
			AuthService:    authService,
			RateLimitStore: &mocks.RateLimitStoreMock{},
		},
	)

	return &apiFixture{server: server, sent: &sent}
}

func (f *apiFixture) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) signUpAda(t *testing.T) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/auth/sign-up",
		`{"email":"ada@example.com","password":"Password1","first_name":"Ada","last_name":"Lovelace"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *f.sent, 1)
}

func (f *apiFixture) confirmAda(t *testing.T) {
	t.Helper()
	raw := (*f.sent)[len(*f.sent)-1].rawToken
	rec := f.do(http.MethodGet, "/api/v1/auth/confirm?token="+url.QueryEscape(raw), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestPing(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/auth/ping", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pong", envelope(t, rec).Data)
}

func TestSignUpValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/sign-up", `{"email":"ada@example.com"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := envelope(t, rec)
	require.Equal(t, "validation failed", env.Error)
	require.Contains(t, env.Details, "password")
	require.Contains(t, env.Details, "first_name")
	require.Contains(t, env.Details, "last_name")
	require.NotContains(t, env.Details, "email")
}

func TestSignUpDuplicate(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAda(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/sign-up",
		`{"email":"ada@example.com","password":"Password1","first_name":"Ada","last_name":"Lovelace"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "user with this email already exists", envelope(t, rec).Error)
}

func TestSignInBeforeConfirmation(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAda(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/sign-in",
		`{"email":"ada@example.com","password":"Password1"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "email is not confirmed", envelope(t, rec).Error)
}

func TestSignUpConfirmSignIn(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAda(t)
	f.confirmAda(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/sign-in",
		`{"email":"ada@example.com","password":"Password1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	tokenString, ok := envelope(t, rec).Data.(string)
	require.True(t, ok)
	require.NotEmpty(t, tokenString)

	// the issued credential opens the protected surface
	rec = f.do(http.MethodGet, "/api/v1/users/me", "", tokenString)
	require.Equal(t, http.StatusOK, rec.Code)

	profile, ok := envelope(t, rec).Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ada@example.com", profile["email"])
	require.NotContains(t, profile, "password_hash")
}

func TestSignInWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAda(t)
	f.confirmAda(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/sign-in",
		`{"email":"ada@example.com","password":"Nope12345"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", envelope(t, rec).Error)
}

func TestConfirmTwice(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAda(t)

	raw := (*f.sent)[0].rawToken
	path := "/api/v1/auth/confirm?token=" + url.QueryEscape(raw)

	rec := f.do(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "token has already been used", envelope(t, rec).Error)
}

func TestConfirmUnknownToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/auth/confirm?token=bogus", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "invalid or expired token", envelope(t, rec).Error)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAda(t)
	f.confirmAda(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/forgot", `{"email":"ada@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *f.sent, 2)

	raw := (*f.sent)[1].rawToken
	rec = f.do(http.MethodPost, "/api/v1/auth/reset",
		`{"token":"`+raw+`","new_password":"Fresh1234"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// old password no longer signs in, new one does
	rec = f.do(http.MethodPost, "/api/v1/auth/sign-in",
		`{"email":"ada@example.com","password":"Password1"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/auth/sign-in",
		`{"email":"ada@example.com","password":"Fresh1234"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotUnknownEmailLooksIdentical(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/forgot", `{"email":"ghost@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, *f.sent)
}

func TestProtectedRouteWithoutCredential(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/users/me", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "authentication required", envelope(t, rec).Error)
}

func TestRateLimitExceeded(t *testing.T) {
	logger := quietLogger()
	over := &mocks.RateLimitStoreMock{
		IncrementWindowFn: func(ctx context.Context, key string, window, ttl time.Duration) (int, time.Time, error) {
			return 999, time.Now(), nil
		},
	}

	userRepo := newMemoryUserRepo()
	tokenService := services.NewSecretTokenService(mocks.NewInMemorySecretTokenStore(), &config.TokenConfig{VerifyTTL: time.Hour, ResetTTL: time.Hour}, logger)
	authService := services.NewAuthService(userRepo, &config.JWTConfig{Secret: "s", TokenTTL: time.Hour}, logger)
	userService := services.NewUserService(userRepo, tokenService, &mocks.EmailServiceMock{}, logger)

	server := httpserver.NewServer(
		&httpserver.ServerConfig{Host: "localhost", Port: "0"},
		&config.RateLimitConfig{RequestsPerMinute: 5, Window: time.Minute, KeyPrefix: "test"},
		logger,
		httpserver.ServerDeps{UserService: userService, AuthService: authService, RateLimitStore: over},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
