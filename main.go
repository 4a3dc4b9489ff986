package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/cache"
	"tinyurl-be/internal/config"
	"tinyurl-be/internal/database"
	"tinyurl-be/internal/logging"
	"tinyurl-be/internal/mailer"
	"tinyurl-be/internal/oauth"
	"tinyurl-be/internal/repository"
	"tinyurl-be/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	slog.SetDefault(logger)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry disabled", "error", err)
		}
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	var (
		userRepo repository.UserRepository
		linkRepo repository.LinkRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		userRepo = repository.NewUserRepository(db)
		linkRepo = repository.NewLinkRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		userRepo = repository.NewMemoryUserRepository()
		linkRepo = repository.NewMemoryLinkRepository()
	}

	// Reset tokens live in Redis when available
	var resets cache.Cache
	if cfg.RedisURL != "" {
		var err error
		resets, err = cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory reset tokens", "error", err)
		} else {
			logger.Info("connected to redis")
		}
	}
	if resets == nil {
		resets = cache.NewMemoryCache()
	}
	defer resets.Close()

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		smtp, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			logger.Error("failed to configure SMTP", "error", err)
			os.Exit(1)
		}
		sender = smtp
	}
	dispatcher := mailer.NewDispatcher(sender, cfg.MailRatePerSec, cfg.MailQueueLength, logger)

	var provider oauth.Provider
	if cfg.GoogleEnabled() {
		provider = oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.Deps{
		Config: cfg,
		Logger: logger,
		Users:  userRepo,
		Links:  linkRepo,
		Resets: resets,
		Mail:   dispatcher,
		OAuth:  provider,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("mail queue not drained", "error", err)
	}
}
