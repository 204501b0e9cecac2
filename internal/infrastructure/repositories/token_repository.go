package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/treefam/treefam-backend/internal/core/domain/token"
	"github.com/treefam/treefam-backend/internal/core/ports"
	"github.com/treefam/treefam-backend/internal/infrastructure/db"
)

// pqUniqueViolation is the Postgres error code for unique constraint breaches.
const pqUniqueViolation = "23505"

// SecretTokenRepository is the Postgres-backed secret token store. All
// queries run against ext so a transaction-scoped copy shares the same code.
type SecretTokenRepository struct {
	db     *db.Database
	ext    sqlx.ExtContext
	logger *logrus.Logger
}

func NewSecretTokenRepository(database *db.Database, logger *logrus.Logger) *SecretTokenRepository {
	return &SecretTokenRepository{db: database, ext: database.DB, logger: logger}
}

var _ ports.SecretTokenStore = (*SecretTokenRepository)(nil)

func (r *SecretTokenRepository) Save(ctx context.Context, t *token.SecretToken) error {
	query := `
		INSERT INTO secret_tokens (id, purpose, token_hash, subject_id, issued_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.ext.ExecContext(ctx, query,
		t.ID, t.Purpose, t.TokenHash, t.SubjectID, t.IssuedAt, t.ExpiresAt, t.Consumed)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return token.ErrHashConflict
		}
		return fmt.Errorf("failed to save secret token: %w", err)
	}

	return nil
}

func (r *SecretTokenRepository) GetByHash(ctx context.Context, hash string) (*token.SecretToken, error) {
	var t token.SecretToken
	query := `
		SELECT id, purpose, token_hash, subject_id, issued_at, expires_at, consumed
		FROM secret_tokens
		WHERE token_hash = $1`

	err := sqlx.GetContext(ctx, r.ext, &t, query, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get secret token: %w", err)
	}

	return &t, nil
}

func (r *SecretTokenRepository) FindActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) ([]*token.SecretToken, error) {
	var tokens []*token.SecretToken
	query := `
		SELECT id, purpose, token_hash, subject_id, issued_at, expires_at, consumed
		FROM secret_tokens
		WHERE purpose = $1 AND subject_id = $2 AND consumed = FALSE`

	if err := sqlx.SelectContext(ctx, r.ext, &tokens, query, purpose, subjectID); err != nil {
		return nil, fmt.Errorf("failed to find active tokens: %w", err)
	}

	return tokens, nil
}

// Consume flips consumed only when it is still false, so two racing callers
// cannot both spend the same token.
func (r *SecretTokenRepository) Consume(ctx context.Context, hash string) (bool, error) {
	query := `UPDATE secret_tokens SET consumed = TRUE WHERE token_hash = $1 AND consumed = FALSE`

	result, err := r.ext.ExecContext(ctx, query, hash)
	if err != nil {
		return false, fmt.Errorf("failed to consume secret token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read consume result: %w", err)
	}

	return affected > 0, nil
}

func (r *SecretTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM secret_tokens WHERE expires_at < $1`

	result, err := r.ext.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	removed, _ := result.RowsAffected()
	if removed > 0 && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"rows": removed}).Info("cleaned up expired secret tokens")
	}

	return removed, nil
}

// Transact runs fn against a copy of the repository bound to a single
// transaction. Issue relies on this so supersession and insertion commit
// together or not at all.
func (r *SecretTokenRepository) Transact(ctx context.Context, fn func(ports.SecretTokenStore) error) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &SecretTokenRepository{db: r.db, ext: tx, logger: r.logger}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && r.logger != nil {
			r.logger.WithError(rbErr).Error("failed to roll back token transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token transaction: %w", err)
	}
	return nil
}
