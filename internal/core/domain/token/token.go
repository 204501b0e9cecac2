package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Purpose discriminates what a secret token may be spent on.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

func (p Purpose) String() string {
	return string(p)
}

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeVerify, PurposeReset:
		return true
	default:
		return false
	}
}

var (
	// ErrInvalid covers blank input and purpose mismatches.
	ErrInvalid = errors.New("invalid token")
	// ErrNotFound means no token matches the presented secret.
	ErrNotFound = errors.New("token not found")
	// ErrAlreadyUsed means the token was consumed or superseded.
	ErrAlreadyUsed = errors.New("token has already been used")
	// ErrExpired means the token's lifetime has elapsed.
	ErrExpired = errors.New("token has expired")
	// ErrHashConflict means another token with the same hash already exists.
	ErrHashConflict = errors.New("token hash already exists")
)

// SecretToken is a single-use, time-limited secret. Only the sha256 digest of
// the raw secret is ever persisted; the raw value is returned to the issuing
// caller exactly once.
type SecretToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Purpose   Purpose   `json:"purpose" db:"purpose"`
	TokenHash string    `json:"-" db:"token_hash"`
	SubjectID uuid.UUID `json:"subject_id" db:"subject_id"`
	IssuedAt  time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Consumed  bool      `json:"consumed" db:"consumed"`
}

// IsExpired reports whether the token lifetime has elapsed at the given instant.
func (t *SecretToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// HashSecret returns the hex-encoded sha256 digest of a raw secret.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
