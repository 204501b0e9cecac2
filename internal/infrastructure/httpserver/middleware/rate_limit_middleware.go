package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/core/ports"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/response"
)

// RateLimitMiddleware enforces a fixed-window request limit per client IP.
type RateLimitMiddleware struct {
	store  ports.RateLimitStore
	config *config.RateLimitConfig
	logger *logrus.Logger
}

func NewRateLimitMiddleware(store ports.RateLimitStore, cfg *config.RateLimitConfig, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{store: store, config: cfg, logger: logger}
}

func (m *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.store == nil {
				return next(c)
			}

			count, _, err := m.store.IncrementWindow(c.Request().Context(), c.RealIP(), m.config.Window, 2*m.config.Window)
			if err != nil {
				// limiter outage must not take the API down
				if m.logger != nil {
					m.logger.WithError(err).Warn("rate limit store unavailable, letting request through")
				}
				return next(c)
			}

			if count > m.config.RequestsPerMinute {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "count": count}).Warn("rate limit exceeded")
				}
				return response.Error(c, http.StatusTooManyRequests, "too many requests", nil)
			}

			return next(c)
		}
	}
}
