package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ktassist/internal/ratelimit"
	"ktassist/internal/util"
	"ktassist/pkg/ai"
	"ktassist/services/kt/internal/app"
	"ktassist/services/kt/internal/config"
	"ktassist/services/kt/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("failed to parse session TTL", "err", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCore, err := app.New(ctx, app.Config{
		UploadDir:      cfg.UploadDir,
		DatabaseURL:    cfg.DatabaseURL,
		ObjectStore:    cfg.ObjectStore,
		CredentialsKey: cfg.CredentialsKey,
		Generation: ai.Config{
			Provider: cfg.GenerationProvider,
			BaseURL:  cfg.GenerationBaseURL,
			Model:    cfg.GenerationModel,
			APIKey:   cfg.GenerationAPIKey,
		},
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    sessionTTL,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("invalid trusted proxies", "err", err)
	}
	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.LoginRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "kt:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			util.Fatal("failed to init login rate limiter", "err", err)
		}
		defer limiter.Close()
	} else {
		logger.Warn("login rate limiting disabled", "redis", cfg.RedisAddr != "")
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		LoginLimiter:   limiter,
		TrustedProxies: trusted,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	// Uploads summarize each file synchronously, so writes get a long deadline.
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}
