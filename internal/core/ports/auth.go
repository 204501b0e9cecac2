package ports

import (
	"context"

	"github.com/treefam/treefam-backend/internal/core/domain/auth"
	"github.com/treefam/treefam-backend/internal/core/domain/user"
)

// AuthService creates and verifies signed bearer credentials.
type AuthService interface {
	// Login verifies the user's password and returns a signed bearer credential.
	Login(ctx context.Context, req *auth.SignInRequest) (string, error)
	// GenerateToken encodes the user's identity with an expiration and signs
	// it with the service's shared secret.
	GenerateToken(u *user.User) (string, error)
	// ValidateToken verifies signature integrity and expiry. Failures are one
	// of auth.ErrCredentialMalformed, auth.ErrBadSignature or
	// auth.ErrCredentialExpired.
	ValidateToken(tokenString string) (*auth.Claims, error)
}
