// Package postgres owns the connection pool behind the dataset catalog.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/resilience"
)

// Client is a pooled catalog connection. Queries go through the context
// variants of database/sql only.
type Client struct {
	db       *sql.DB
	database string
	logger   *slog.Logger
}

// New opens the pool and waits until the server answers a ping, retrying
// up to cfg.ConnectAttempts times so the service can start next to a
// database that is still booting.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := newClient(db, cfg.Database)
	retry := resilience.RetryConfig{
		MaxAttempts:  cfg.ConnectAttempts,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
	err = resilience.Retry(ctx, "postgres-connect", retry, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	c.logger.Info("catalog pool ready", "max_open_conns", cfg.MaxOpenConns)
	return c, nil
}

func newClient(db *sql.DB, database string) *Client {
	return &Client{
		db:       db,
		database: database,
		logger:   slog.Default().With("component", "postgres", "database", database),
	}
}

// Close releases every pooled connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping reports whether the server is reachable; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// StatsCollector exports the pool's open, idle and wait statistics.
func (c *Client) StatsCollector() prometheus.Collector {
	return collectors.NewDBStatsCollector(c.db, c.database)
}

func (c *Client) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Client) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Client) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// InTx runs fn in a transaction, committing when it returns nil and rolling
// back otherwise.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
