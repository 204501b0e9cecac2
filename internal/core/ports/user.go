package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/treefam/treefam-backend/internal/core/domain/user"
)

// UserRepository defines user storage operations
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserService defines account lifecycle operations. It doubles as the
// identity resolver consumed by the authentication middleware.
type UserService interface {
	SignUp(ctx context.Context, req *user.SignUpRequest) (*user.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ConfirmEmail(ctx context.Context, rawToken string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}
