package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/treefam/treefam-backend/internal/core/domain/token"
)

// SecretTokenStore is the durable mapping from a one-way hash to token
// metadata. Implementations must enforce hash uniqueness.
type SecretTokenStore interface {
	// Save persists a new token. Returns token.ErrHashConflict when a token
	// with the same hash already exists.
	Save(ctx context.Context, t *token.SecretToken) error
	// GetByHash returns the token matching the hash or token.ErrNotFound.
	GetByHash(ctx context.Context, hash string) (*token.SecretToken, error)
	// FindActive returns unconsumed tokens for a purpose/subject pair.
	// Expected to hold 0 or 1 entries, but callers must tolerate more.
	FindActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) ([]*token.SecretToken, error)
	// Consume flips consumed from false to true. The flip is conditional:
	// it reports false when the token was already consumed.
	Consume(ctx context.Context, hash string) (bool, error)
	// DeleteExpired bulk-removes tokens past their expiry and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// Transact runs fn against a transaction-scoped store. fn returning an
	// error rolls the transaction back.
	Transact(ctx context.Context, fn func(SecretTokenStore) error) error
}

// SecretTokenService issues, validates, consumes and invalidates single-use
// secrets. It owns the single-active-token-per-purpose invariant.
type SecretTokenService interface {
	// Issue returns the raw secret. This is the only moment the raw value
	// is observable; storage only ever sees its hash.
	Issue(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) (string, error)
	// Validate checks a raw secret without mutating state and returns the
	// subject it was issued for.
	Validate(ctx context.Context, rawSecret string, purpose token.Purpose) (uuid.UUID, error)
	// Consume marks the token spent. Consuming an already-consumed token is
	// a no-op at the data level.
	Consume(ctx context.Context, rawSecret string) error
	// CancelActive invalidates any active token of the purpose/subject pair
	// without issuing a replacement.
	CancelActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) error
}
