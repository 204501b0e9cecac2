package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Auth      *AuthMiddleware
	Logging   *LoggingMiddleware
	RateLimit *RateLimitMiddleware
	Metrics   *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	authService ports.AuthService,
	userService ports.UserService,
	rateLimitStore ports.RateLimitStore,
	rateLimitConfig *config.RateLimitConfig,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		Auth:      NewAuthMiddleware(authService, userService, logger),
		Logging:   NewLoggingMiddleware(logger),
		RateLimit: NewRateLimitMiddleware(rateLimitStore, rateLimitConfig, logger),
		Metrics:   NewMetricsMiddleware(requestsTotal, requestDuration),
	}
}
