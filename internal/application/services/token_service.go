package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/core/domain/token"
	"github.com/treefam/treefam-backend/internal/core/ports"
)

// secretBytes is the entropy of a raw secret (256 bits).
const secretBytes = 32

// SecretTokenService issues and spends single-use secrets. At most one token
// per purpose/subject pair is active at any instant; issuing a replacement
// supersedes the previous one inside the same transaction.
type SecretTokenService struct {
	store  ports.SecretTokenStore
	config *config.TokenConfig
	logger *logrus.Logger
}

func NewSecretTokenService(store ports.SecretTokenStore, cfg *config.TokenConfig, logger *logrus.Logger) *SecretTokenService {
	return &SecretTokenService{store: store, config: cfg, logger: logger}
}

var _ ports.SecretTokenService = (*SecretTokenService)(nil)

func (s *SecretTokenService) ttl(purpose token.Purpose) time.Duration {
	if purpose == token.PurposeReset {
		return s.config.ResetTTL
	}
	return s.config.VerifyTTL
}

// Issue supersedes any active token of the same purpose/subject and persists
// a new one, as a single atomic unit. The returned raw secret is never stored.
func (s *SecretTokenService) Issue(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) (string, error) {
	if !purpose.IsValid() {
		return "", fmt.Errorf("%w: unknown purpose %q", token.ErrInvalid, purpose)
	}

	raw, err := generateSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}

	now := time.Now().UTC()
	t := &token.SecretToken{
		ID:        uuid.New(),
		Purpose:   purpose,
		TokenHash: token.HashSecret(raw),
		SubjectID: subjectID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl(purpose)),
		Consumed:  false,
	}

	err = s.store.Transact(ctx, func(store ports.SecretTokenStore) error {
		if err := cancelActive(ctx, store, purpose, subjectID); err != nil {
			return err
		}
		if err := store.Save(ctx, t); err != nil {
			return fmt.Errorf("failed to persist secret token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"token_id": t.ID, "purpose": purpose, "subject_id": subjectID}).Debug("secret token issued")
	}

	return raw, nil
}

// Validate checks a presented secret without mutating state and returns the
// subject it was issued for. Check order: existence, purpose, consumption,
// expiry.
func (s *SecretTokenService) Validate(ctx context.Context, rawSecret string, purpose token.Purpose) (uuid.UUID, error) {
	if strings.TrimSpace(rawSecret) == "" {
		return uuid.Nil, fmt.Errorf("%w: blank secret", token.ErrInvalid)
	}

	t, err := s.store.GetByHash(ctx, token.HashSecret(rawSecret))
	if err != nil {
		return uuid.Nil, err
	}

	if t.Purpose != purpose {
		return uuid.Nil, fmt.Errorf("%w: purpose mismatch", token.ErrInvalid)
	}
	if t.Consumed {
		return uuid.Nil, token.ErrAlreadyUsed
	}
	if t.IsExpired(time.Now().UTC()) {
		return uuid.Nil, token.ErrExpired
	}

	return t.SubjectID, nil
}

// Consume marks the presented secret spent. The underlying flip is
// conditional, so consuming an already-consumed token is a safe no-op.
func (s *SecretTokenService) Consume(ctx context.Context, rawSecret string) error {
	hash := token.HashSecret(rawSecret)

	t, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		return err
	}

	flipped, err := s.store.Consume(ctx, hash)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if !flipped && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"token_id": t.ID}).Warn("token was already consumed")
	}

	return nil
}

// CancelActive invalidates active tokens of the purpose/subject pair without
// issuing a replacement.
func (s *SecretTokenService) CancelActive(ctx context.Context, purpose token.Purpose, subjectID uuid.UUID) error {
	return cancelActive(ctx, s.store, purpose, subjectID)
}

func cancelActive(ctx context.Context, store ports.SecretTokenStore, purpose token.Purpose, subjectID uuid.UUID) error {
	active, err := store.FindActive(ctx, purpose, subjectID)
	if err != nil {
		return fmt.Errorf("failed to look up active tokens: %w", err)
	}
	for _, t := range active {
		if _, err := store.Consume(ctx, t.TokenHash); err != nil {
			return fmt.Errorf("failed to supersede token %s: %w", t.ID, err)
		}
	}
	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
