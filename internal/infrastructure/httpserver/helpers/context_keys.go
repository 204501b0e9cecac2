package helpers

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/treefam/treefam-backend/internal/core/domain/user"
)

type ctxKey string

const (
	keyCurrentUser ctxKey = "current_user"
	keyUserID      ctxKey = "user_id"
	keyUserEmail   ctxKey = "user_email"
)

func SetCurrentUser(c echo.Context, u *user.User) { c.Set(string(keyCurrentUser), u) }
func GetCurrentUserRaw(c echo.Context) (*user.User, bool) {
	v := c.Get(string(keyCurrentUser))
	u, ok := v.(*user.User)
	return u, ok
}

func SetUserID(c echo.Context, id uuid.UUID) { c.Set(string(keyUserID), id) }
func GetUserIDRaw(c echo.Context) (uuid.UUID, bool) {
	v := c.Get(string(keyUserID))
	id, ok := v.(uuid.UUID)
	return id, ok
}

func SetUserEmail(c echo.Context, email string) { c.Set(string(keyUserEmail), email) }
func GetUserEmailRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyUserEmail))
	s, ok := v.(string)
	return s, ok
}
