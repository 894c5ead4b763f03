// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iyunix/go-otpguard/internal/config"
	"github.com/iyunix/go-otpguard/internal/handlers"
	"github.com/iyunix/go-otpguard/internal/middleware"
	"github.com/iyunix/go-otpguard/internal/ratelimit"
	"github.com/iyunix/go-otpguard/internal/repository/otp"
	"github.com/iyunix/go-otpguard/internal/services"
	"github.com/iyunix/go-otpguard/internal/services/otp_services"
	"github.com/iyunix/go-otpguard/internal/services/phone"
	"github.com/iyunix/go-otpguard/internal/services/resilience"
	"github.com/iyunix/go-otpguard/internal/services/sms"
)

const gatewayName = "sms-gateway"

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		dialector = sqlite.Open(cfg.DBDSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// one writer keeps SQLite transactions from failing with SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func newLimiter(cfg *config.Config, logger services.Logger) (ratelimit.Limiter, func()) {
	limitCfg := ratelimit.DefaultOTPConfig()
	limitCfg.WindowSize = cfg.HTTPRateWindow
	limitCfg.MaxAttempts = cfg.HTTPRateLimitPerWindow
	limitCfg.BanDuration = cfg.HTTPRateBanDuration

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Info("using redis rate limiter", "addr", cfg.RedisAddr)
			return ratelimit.NewRedisRateLimiter(client, limitCfg, "otpguard:http"), func() { _ = client.Close() }
		}
		logger.Warn("redis unavailable, falling back to in-memory rate limiter", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
	}
	limiter := ratelimit.NewMemoryRateLimiter(limitCfg)
	return limiter, limiter.Close
}

func newGateway(cfg *config.Config, logger services.Logger) (sms.Provider, error) {
	if cfg.SMSConfigured() {
		smsCfg := &sms.Config{
			AccessKey:  cfg.SMSAccessKey,
			LineNumber: cfg.SMSLineNumber,
			APIURL:     cfg.SMSAPIURL,
			Timeout:    cfg.SMSTimeout,
		}
		if err := smsCfg.Validate(); err != nil {
			return nil, err
		}
		return sms.NewSMSIRProvider(smsCfg), nil
	}
	logger.Warn("SMS credentials not configured; codes will be written to the log (digits masked)")
	return sms.NewLogProvider(logger), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger := services.NewLogger("otpguard", cfg.IsProduction())
	if cfg.OTPSecretEphemeral {
		logger.Warn("OTP_SECRET not set; using an ephemeral secret, issued codes will not survive a restart")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	if err := otp.Migrate(db); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	// --- Services ---
	hasher, err := otp_services.NewCodeHasher([]byte(cfg.OTPSecret))
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	breaker := resilience.NewCircuitBreaker(gatewayName, cfg.CBFailureThreshold, cfg.CBRecoveryTimeout, logger)
	executor := resilience.NewExecutor(resilience.RetryConfig{
		MaxRetries:     cfg.RetryMaxRetries,
		InitialDelay:   cfg.RetryInitialDelay,
		MaxDelay:       cfg.RetryMaxDelay,
		Multiplier:     cfg.RetryMultiplier,
		AttemptTimeout: cfg.SMSTimeout,
	}, breaker, logger)
	validator := phone.NewValidator(cfg.HomeCountryCode)

	otpConfig := otp_services.Config{
		Expiry:            cfg.OTPExpiry,
		MaxAttempts:       cfg.OTPMaxAttempts,
		RateWindow:        cfg.OTPRateWindow,
		MaxSendsPerWindow: cfg.OTPMaxSendsPerWindow,
		Retention:         cfg.OTPRetention,
	}
	if err := otpConfig.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		log.Fatalf("SMS configuration error: %v", err)
	}
	otpService := otp_services.NewService(
		otp.NewGormStore(db),
		gateway,
		executor,
		validator,
		hasher,
		otpConfig,
		logger,
	)

	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()

	// --- Router Setup ---
	otpHandler := handlers.NewOTPHandler(otpService, validator, []byte(cfg.JWTSecretKey), sqlDB.PingContext, logger)

	resolver, err := ratelimit.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Configuration error: TRUSTED_PROXIES: %v", err)
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP(resolver))
	r.Use(middleware.RecoverPanic(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	otpHandler.RegisterRoutes(r, middleware.RateLimitMiddleware(limiter, "otp", logger))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Background cleanup ---
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	cleanupDone := otpService.StartCleanup(cleanupCtx, cfg.OTPCleanupInterval)

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	stopCleanup()
	<-cleanupDone
	if err := sqlDB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	logger.Info("server stopped gracefully")
}
