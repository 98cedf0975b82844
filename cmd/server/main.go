package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/api"
	"github.com/botforge/storefront-admin/internal/api/handler"
	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/internal/core/service"
	"github.com/botforge/storefront-admin/internal/infrastructure/db/memory"
	mongostore "github.com/botforge/storefront-admin/internal/infrastructure/db/mongo"
	redisstore "github.com/botforge/storefront-admin/internal/infrastructure/db/redis"
	"github.com/botforge/storefront-admin/internal/infrastructure/queue"
	"github.com/botforge/storefront-admin/internal/pkg/config"
	"github.com/botforge/storefront-admin/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title Storefront Admin API
// @version 1.0
// @description Accounts, sessions, role administration and audit trail of the storefront.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "storefront-admin",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Stores ---
	identities := mongostore.NewIdentityRepository(db)
	if err := identities.EnsureIndexes(ctx); err != nil {
		return err
	}
	sessionRepo := redisstore.NewSessionRepository(rdb)

	var auditStore ports.AuditStore = redisstore.NewAuditStore(rdb)
	if cfg.Audit.Store == config.AuditStoreMemory {
		auditStore = memory.NewAuditStore()
	}

	if err := service.Seed(ctx, identities, service.SeedConfig{
		RootUsername:     cfg.Seed.RootUsername,
		RootEmail:        cfg.Seed.RootEmail,
		RootPassword:     cfg.Seed.RootPassword,
		Owners:           cfg.Seed.Owners,
		OwnerEmailDomain: cfg.Seed.OwnerEmailDomain,
	}, log); err != nil {
		return err
	}

	// --- Core ---
	dispatcher := queue.NewDispatcher(cfg.DispatcherWorkers, log)
	dispatcher.Start(ctx)

	sessions := service.NewSessionStore(identities, sessionRepo, dispatcher, service.NewTokenIssuer(cfg.JWTSecret), cfg.SessionTTL, log)
	directory := service.NewDirectory(identities, log)
	auditLog := service.NewAuditLog(auditStore, cfg.Audit.Capacity)
	gateway := service.NewGateway(identities, sessions, directory, auditLog, log)

	unsubscribe := sessions.OnChange(func(change domain.SessionChange) {
		event := log.Info().Str("client_id", change.ClientID).Str("reason", string(change.Reason))
		if change.Identity != nil {
			event = event.Str("identity_id", change.Identity.ID).Str("role", string(change.Identity.Role))
		}
		event.Msg("session changed")
	})
	defer unsubscribe()

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Sessions:  sessions,
		Gateway:   gateway,
		Directory: directory,
		Audit:     auditLog,
		HealthChecks: map[string]handler.Check{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
