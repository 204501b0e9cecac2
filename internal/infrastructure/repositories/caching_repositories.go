package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/treefam/treefam-backend/internal/core/domain/user"
	"github.com/treefam/treefam-backend/internal/core/ports"
)

// CachingUserRepository decorates a UserRepository with a read-through cache.
// Lookups by ID and email are cached; every write invalidates both keys.
type CachingUserRepository struct {
	inner ports.UserRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingUserRepository(inner ports.UserRepository, cache ports.Cache, ttl time.Duration) ports.UserRepository {
	return &CachingUserRepository{inner: inner, cache: cache, ttl: ttl}
}

func userIDKey(id uuid.UUID) string  { return fmt.Sprintf("user:id:%s", id) }
func userEmailKey(email string) string { return fmt.Sprintf("user:email:%s", email) }

func (r *CachingUserRepository) Create(ctx context.Context, u *user.User) error {
	if err := r.inner.Create(ctx, u); err != nil {
		return err
	}
	r.invalidate(ctx, u)
	return nil
}

func (r *CachingUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if b, ok, err := r.cache.Get(ctx, userIDKey(id)); err == nil && ok {
		var u user.User
		if err := json.Unmarshal(b, &u); err == nil {
			return &u, nil
		}
	}

	u, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, userIDKey(id), u)
	return u, nil
}

func (r *CachingUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if b, ok, err := r.cache.Get(ctx, userEmailKey(email)); err == nil && ok {
		var u user.User
		if err := json.Unmarshal(b, &u); err == nil {
			return &u, nil
		}
	}

	u, err := r.inner.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.store(ctx, userEmailKey(email), u)
	return u, nil
}

func (r *CachingUserRepository) Update(ctx context.Context, u *user.User) error {
	if err := r.inner.Update(ctx, u); err != nil {
		return err
	}
	r.invalidate(ctx, u)
	return nil
}

func (r *CachingUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// best-effort: fetch first so the email key can be dropped too
	if u, err := r.inner.GetByID(ctx, id); err == nil {
		r.invalidate(ctx, u)
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, userIDKey(id))
	return nil
}

func (r *CachingUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.inner.ExistsByEmail(ctx, email)
}

func (r *CachingUserRepository) store(ctx context.Context, key string, u *user.User) {
	if b, err := json.Marshal(u); err == nil {
		_ = r.cache.Set(ctx, key, b, r.ttl)
	}
}

func (r *CachingUserRepository) invalidate(ctx context.Context, u *user.User) {
	_ = r.cache.Delete(ctx, userIDKey(u.ID))
	_ = r.cache.Delete(ctx, userEmailKey(u.Email))
}
