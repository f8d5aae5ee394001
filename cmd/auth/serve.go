package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance_api/internal/auth"
	"finance_api/internal/auth/reset"
	"finance_api/internal/config"
	"finance_api/internal/http_server/router"
	"finance_api/internal/lib/hasher"
	"finance_api/internal/lib/jwt"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/metrics"
	"finance_api/internal/profile"
	"finance_api/internal/rabbitmq"
	"finance_api/internal/storage/postgres"
	redisstore "finance_api/internal/storage/redis"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := sl.New(cfg.Env, os.Stdout)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storage, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		return err
	}
	defer storage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		return err
	}
	defer msgBroker.Close()

	var resetOpts []reset.Option
	if cfg.Redis.Enabled {
		rdb, err := redisstore.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			return err
		}
		defer rdb.Close()

		resetOpts = append(resetOpts, reset.WithCooldown(rdb))
	}

	codec, err := jwt.New(cfg.Tokens.Secret, cfg.Tokens.Issuer, cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	m := metrics.New()
	passHasher := hasher.New(hasher.DefaultCost)

	authService, err := auth.New(log, storage, passHasher, codec, auth.WithObserver(m))
	if err != nil {
		return err
	}

	resetService := reset.New(log, storage, passHasher, msgBroker, reset.Config{
		TokenBytes:  cfg.Reset.TokenBytes,
		Alphabet:    cfg.Reset.Alphabet,
		TokenLength: cfg.Reset.TokenLength,
		BaseURL:     cfg.Reset.BaseURL,
		Cooldown:    cfg.Reset.Cooldown,
	}, resetOpts...)

	profileService := profile.New(log, storage, passHasher)

	if cfg.Bootstrap.Enabled {
		if _, err := authService.EnsureAdmin(ctx, cfg.Bootstrap.Email, cfg.Bootstrap.FullName, cfg.Bootstrap.Password); err != nil {
			log.Error("failed to bootstrap admin user", sl.Err(err))
			return err
		}
	}

	go m.Serve(ctx, log, cfg.Metrics.Address)
	go housekeeping(ctx, log, authService, cfg.Housekeeping)

	srv := &http.Server{
		Addr: cfg.HTTPServer.Address,
		Handler: router.New(router.Deps{
			Log:            log,
			Verifier:       codec,
			Auth:           authService,
			Reset:          resetService,
			Profile:        profileService,
			Health:         storage,
			Metrics:        m.Middleware,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			RateLimit:      true,
		}),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down HTTP server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", sl.Err(err))
		return err
	}

	log.Info("server stopped gracefully")

	return nil
}

type purger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// housekeeping purges expired refresh tokens every interval until ctx is done.
func housekeeping(ctx context.Context, log *slog.Logger, p purger, cfg config.Housekeeping) {
	if cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PurgeExpired(ctx, cfg.Retention); err != nil {
				log.Error("failed to purge refresh tokens", sl.Err(err))
			}
		}
	}
}
