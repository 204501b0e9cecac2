package helpers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/treefam/treefam-backend/internal/core/domain/user"
)

// GetCurrentUserFromContext returns the authenticated user attached by the
// auth middleware.
func GetCurrentUserFromContext(c echo.Context) (*user.User, error) {
	u, ok := GetCurrentUserRaw(c)
	if !ok || u == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user context")
	}
	return u, nil
}

func GetUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := GetUserIDRaw(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user context")
	}
	return id, nil
}
