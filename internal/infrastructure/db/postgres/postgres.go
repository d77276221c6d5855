package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/backpine/users-service/internal/pkg/metrics"
	"github.com/backpine/users-service/internal/core/scope"
)

const (
	driverName     = "postgres"
	defaultTimeout = 5 * time.Second
)

// Config captures the settings for the Postgres pool.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Timeout         time.Duration
}

// Connect opens the pool, applies limits and verifies connectivity with a
// ping. A default timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return db, nil
}

// Connector hands out one dedicated connection per request scope.
type Connector struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func NewConnector(db *sqlx.DB, log zerolog.Logger) *Connector {
	return &Connector{db: db, log: log}
}

// Acquire checks a connection out of the pool. The caller must Close it.
func (c *Connector) Acquire(ctx context.Context) (scope.Handle, error) {
	conn, err := c.db.Connx(ctx)
	if err != nil {
		metrics.DBHandleErrorsTotal.WithLabelValues("acquire").Inc()
		return nil, err
	}
	metrics.DBHandlesActive.Inc()
	return &handle{Conn: conn, log: c.log}, nil
}

// handle returns its connection to the pool exactly once. A failed release is
// counted and logged here; callers whose work already succeeded ignore it.
type handle struct {
	*sqlx.Conn
	log  zerolog.Logger
	once sync.Once
	err  error
}

func (h *handle) Close() error {
	h.once.Do(func() {
		h.err = h.Conn.Close()
		metrics.DBHandlesActive.Dec()
		if h.err != nil {
			metrics.DBHandleErrorsTotal.WithLabelValues("release").Inc()
			h.log.Warn().Err(h.err).Msg("release database handle")
		}
	})
	return h.err
}
