package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vn.io.arda/useradmin/internal/application"
	"vn.io.arda/useradmin/internal/audit"
	"vn.io.arda/useradmin/internal/config"
	"vn.io.arda/useradmin/internal/infrastructure/keycloak"
	"vn.io.arda/useradmin/internal/infrastructure/postgres"
	"vn.io.arda/useradmin/internal/obs"
	transporthttp "vn.io.arda/useradmin/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Msg("starting useradmin")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	obs.Init()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres ping failed")
	}
	log.Info().Msg("postgres connected")

	store := postgres.New(pool)

	// ── Identity Provider (Keycloak Admin API) ────────────────────────────────
	dir := keycloak.New(
		cfg.Directory.BaseURL,
		cfg.Directory.Realm,
		cfg.Directory.AdminRealm,
		cfg.Directory.ClientID,
		cfg.Directory.ClientSecret,
	)

	// ── Audit Publisher ───────────────────────────────────────────────────────
	publisher, err := audit.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audit publisher")
	}
	defer publisher.Close()

	// ── Application Service ───────────────────────────────────────────────────
	resolver := application.NewResolver(store, dir, cfg.Bootstrap.SuperAdminEmails())
	svc := application.NewService(store, dir, resolver, publisher)

	// ── HTTP Server ───────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc)
	router := transporthttp.NewRouter(handler)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("useradmin stopped")
}
