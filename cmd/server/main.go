package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/application/services"
	"github.com/treefam/treefam-backend/internal/core/ports"
	"github.com/treefam/treefam-backend/internal/infrastructure/db"
	"github.com/treefam/treefam-backend/internal/infrastructure/email"
	"github.com/treefam/treefam-backend/internal/infrastructure/health"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver"
	"github.com/treefam/treefam-backend/internal/infrastructure/redis"
	"github.com/treefam/treefam-backend/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting TreeFam backend...")

	// Initialize database
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Repositories
	tokenStore := repositories.NewSecretTokenRepository(database, logger)
	baseUserRepo := repositories.NewUserRepository(database, logger)
	rateLimitStore := repositories.NewRateLimitRedisRepository(redisClient, cfg.RateLimit.KeyPrefix)

	redisCache := redis.NewRedisCache(redisClient, "appcache")
	userRepo := repositories.NewCachingUserRepository(baseUserRepo, redisCache, 3*time.Minute)

	// Services
	emailService, err := email.NewEmailService(&cfg.Email, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service:", err)
	}

	tokenService := services.NewSecretTokenService(tokenStore, &cfg.Token, logger)
	authService := services.NewAuthService(userRepo, &cfg.JWT, logger)
	userService := services.NewUserService(userRepo, tokenService, emailService, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		UserService:    userService,
		AuthService:    authService,
		RateLimitStore: rateLimitStore,
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, &cfg.RateLimit, logger, deps)

	// Periodically reclaim expired secret tokens
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepExpiredTokens(sweepCtx, tokenStore, cfg.Token.CleanupInterval, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopSweep()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

func sweepExpiredTokens(ctx context.Context, store ports.SecretTokenStore, interval time.Duration, logger *logrus.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				logger.WithError(err).Error("expired token sweep failed")
				continue
			}
			if removed > 0 {
				logger.WithFields(logrus.Fields{"removed": removed}).Info("expired token sweep completed")
			}
		}
	}
}
