package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/treefam/treefam-backend/internal/core/domain/auth"
	"github.com/treefam/treefam-backend/internal/core/ports"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/helpers"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/response"
)

const bearerPrefix = "Bearer "

// AuthMiddleware intercepts every request, decodes any bearer credential it
// carries, and either attaches the resolved identity to the request context
// or terminates the request with a 401 envelope.
type AuthMiddleware struct {
	authService ports.AuthService
	userService ports.UserService
	logger      *logrus.Logger
}

func NewAuthMiddleware(authService ports.AuthService, userService ports.UserService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, userService: userService, logger: logger}
}

// Authenticate decodes the Authorization header if present. Requests without
// a bearer credential proceed anonymously; some endpoints are public. A
// credential that fails to decode halts the chain, with expiry reported
// distinctly from tampering. No failure here may surface as anything but 401.
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, bearerPrefix) {
				return next(c)
			}

			claims, err := m.authService.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("bearer credential rejected")
				}
				switch {
				case errors.Is(err, auth.ErrCredentialExpired):
					return response.Error(c, http.StatusUnauthorized, "token expired", nil)
				case errors.Is(err, auth.ErrBadSignature), errors.Is(err, auth.ErrCredentialMalformed):
					return response.Error(c, http.StatusUnauthorized, "invalid token", nil)
				default:
					return response.Error(c, http.StatusUnauthorized, "authentication failed", nil)
				}
			}

			if _, ok := helpers.GetCurrentUserRaw(c); !ok {
				u, err := m.userService.GetUser(c.Request().Context(), claims.UserID)
				if err != nil {
					if m.logger != nil {
						m.logger.WithFields(logrus.Fields{"user_id": claims.UserID}).WithError(err).Warn("failed to resolve credential subject")
					}
					return response.Error(c, http.StatusUnauthorized, "authentication failed", nil)
				}
				helpers.SetCurrentUser(c, u)
				helpers.SetUserID(c, u.ID)
				helpers.SetUserEmail(c, u.Email)
			}

			return next(c)
		}
	}
}

// RequireUser guards protected routes: the chain must already have attached
// an identity, otherwise the request is rejected.
func (m *AuthMiddleware) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := helpers.GetCurrentUserRaw(c); !ok {
				return response.Error(c, http.StatusUnauthorized, "authentication required", nil)
			}
			return next(c)
		}
	}
}
