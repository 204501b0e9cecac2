package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/core/domain/auth"
	"github.com/treefam/treefam-backend/internal/core/domain/user"
	"github.com/treefam/treefam-backend/internal/core/ports"
)

// AuthService signs and verifies stateless bearer credentials and handles
// password sign-in.
type AuthService struct {
	userRepo  ports.UserRepository
	jwtConfig *config.JWTConfig
	logger    *logrus.Logger
}

func NewAuthService(userRepo ports.UserRepository, jwtConfig *config.JWTConfig, logger *logrus.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtConfig: jwtConfig, logger: logger}
}

var _ ports.AuthService = (*AuthService)(nil)

func (s *AuthService) Login(ctx context.Context, req *auth.SignInRequest) (string, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": req.Email}).Warn("sign-in with wrong password")
		}
		return "", fmt.Errorf("invalid credentials")
	}

	if !u.Enabled {
		return "", user.ErrDisabled
	}

	return s.GenerateToken(u)
}

// GenerateToken encodes the user's identity and an expiration into an HS256
// signed credential. Nothing is written server-side.
func (s *AuthService) GenerateToken(u *user.User) (string, error) {
	now := time.Now()

	claims := &auth.Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies signature and expiry. The three failure modes stay
// distinguishable: malformed input, bad signature, expiry.
func (s *AuthService) ValidateToken(tokenString string) (*auth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, auth.ErrCredentialExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, auth.ErrBadSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, auth.ErrCredentialMalformed
		default:
			return nil, auth.ErrCredentialMalformed
		}
	}

	claims, ok := parsed.Claims.(*auth.Claims)
	if !ok || !parsed.Valid {
		return nil, auth.ErrCredentialMalformed
	}

	return claims, nil
}
