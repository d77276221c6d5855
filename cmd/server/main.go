// Command server runs the users service: HTTP/JSON under /api and the NDJSON
// RPC endpoint under /rpc.
//
//	@title			Users Service API
//	@version		1.0
//	@description	Users CRUD over HTTP/JSON and an NDJSON RPC envelope.
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/backpine/users-service/internal/api"
	"github.com/backpine/users-service/internal/core/scope"
	"github.com/backpine/users-service/internal/core/service"
	"github.com/backpine/users-service/internal/infrastructure/db/mongo"
	"github.com/backpine/users-service/internal/infrastructure/db/postgres"
	"github.com/backpine/users-service/internal/infrastructure/db/redis"
	"github.com/backpine/users-service/internal/infrastructure/http/handlers"
	"github.com/backpine/users-service/internal/infrastructure/queue"
	"github.com/backpine/users-service/internal/pkg/config"
	"github.com/backpine/users-service/pkg/logger"
)

const serviceName = "users-service"

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:       cfg.LogLevel,
		Pretty:      cfg.IsDevelopment(),
		Service:     serviceName,
		Environment: cfg.Env,
	})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Postgres ---
	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL, logger.Component("migrate")); err != nil {
			return err
		}
	}
	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer closeWith("postgres", db.Close)

	// --- Background worker pool ---
	dispatcher := queue.NewDispatcher(cfg.Background.Workers, cfg.Background.TaskTimeout, logger.Component("background"))
	dispatcher.Start(ctx)

	bindings := &scope.Bindings{
		Env: scope.Env{
			Name:        cfg.Env,
			LogLevel:    cfg.LogLevel,
			DatabaseURL: cfg.Database.URL,
		},
		Database:   postgres.NewConnector(db, logger.Component("postgres")),
		Background: dispatcher,
	}
	checks := map[string]handlers.Check{"postgres": pingPostgres(db)}

	// --- Optional KV (Redis) and bucket (MongoDB) bindings ---
	if redisCfg := (redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}); redisCfg.Enabled() {
		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer closeWith("redis", rdb.Close)
		bindings.KV = redis.NewRecentUsers(rdb)
		checks["redis"] = pingRedis(rdb)
	}
	if mongoCfg := (mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}); mongoCfg.Enabled() {
		client, mdb, err := mongo.Connect(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer closeWith("mongodb", func() error { return client.Disconnect(context.Background()) })
		bindings.Bucket = mongo.NewAuditRepository(mdb)
		checks["mongodb"] = pingMongo(client)
	}

	users := service.NewUserService(postgres.RepositoryFactory, logger.Component("users"))
	e := api.NewRouter(api.Dependencies{
		Bindings: bindings,
		Users:    users,
		Logger:   logger.Component("http"),
		Checks:   checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Requests are drained; flush the work they scheduled.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("background shutdown")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

func pingPostgres(db *sqlx.DB) handlers.Check {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

func pingRedis(rdb *goredis.Client) handlers.Check {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

func pingMongo(client *mongodriver.Client) handlers.Check {
	return func(ctx context.Context) error { return client.Ping(ctx, nil) }
}

func closeWith(name string, fn func() error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	log := logger.Get()
	select {
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Str("dependency", name).Msg("close failed")
		}
	case <-ctx.Done():
		log.Warn().Str("dependency", name).Msg("close timed out")
	}
}
