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

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/loginjs/loginjs/config"
	"github.com/loginjs/loginjs/internal/email"
	"github.com/loginjs/loginjs/internal/health"
	"github.com/loginjs/loginjs/internal/infrastructure/postgres"
	ctxlog "github.com/loginjs/loginjs/internal/log"
	"github.com/loginjs/loginjs/internal/metrics"
	"github.com/loginjs/loginjs/internal/password"
	"github.com/loginjs/loginjs/internal/token"
	httptransport "github.com/loginjs/loginjs/internal/transport/http"
	"github.com/loginjs/loginjs/internal/transport/http/handler"
	"github.com/loginjs/loginjs/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		stop()
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	consumedRepo := postgres.NewConsumedTokenRepository(pool)

	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		stop()
		log.Fatalf("hasher: %v", err)
	}

	tokens, err := token.NewService(token.Secrets{
		Session:       []byte(cfg.SessionSecret),
		EmailVerify:   []byte(cfg.VerifySecret),
		PasswordReset: []byte(cfg.ResetSecret),
	})
	if err != nil {
		stop()
		log.Fatalf("tokens: %v", err)
	}

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.EmailFrom, logger)

	authUsecase := usecase.NewAuthUsecase(accountRepo, consumedRepo, hasher, tokens, sender, usecase.Config{
		MinPasswordLength:    cfg.MinPasswordLength,
		SessionLifetime:      cfg.SessionLifetime(),
		VerifyLifetime:       cfg.VerifyLifetime(),
		ResetLifetime:        cfg.ResetLifetime(),
		LinkBaseURL:          cfg.LinkBaseURL,
		RequireVerifiedEmail: cfg.RequireVerifiedEmail,
		VerifyEmail: email.Template{
			Subject: cfg.VerifyEmailSubject,
			Heading: cfg.VerifyEmailHeading,
			Message: cfg.VerifyEmailMessage,
		},
		ResetEmail: email.Template{
			Subject: cfg.ResetEmailSubject,
			Heading: cfg.ResetEmailHeading,
			Message: cfg.ResetEmailMessage,
		},
	}, logger)

	authHandler := handler.NewAuthHandler(authUsecase, cfg.MinPasswordLength, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, tokens),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
