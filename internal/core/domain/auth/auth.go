package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignInRequest represents the sign-in request
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Bearer credential decode failures. The three cases must stay distinguishable
// because they surface as different user-facing messages.
var (
	ErrCredentialMalformed = errors.New("credential is structurally invalid")
	ErrBadSignature        = errors.New("credential signature does not verify")
	ErrCredentialExpired   = errors.New("credential has expired")
)

// Claims is the self-contained assertion carried by a bearer credential.
// It is verified per request and never written to durable storage.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`

	jwt.RegisteredClaims
}
