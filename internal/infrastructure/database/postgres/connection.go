// Package postgres manages the PostgreSQL connection pool and schema
// migrations for the extraction store.  All repository implementations share
// one pgxpool.Pool obtained from the Connection created at startup.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// connectTimeout bounds the initial dial-and-ping during startup.
const connectTimeout = 10 * time.Second

// ─────────────────────────────────────────────────────────────────────────────
// Connection
// ─────────────────────────────────────────────────────────────────────────────

// Connection wraps the pgx connection pool together with the configuration it
// was built from.  It is created once in cmd/*/main.go and injected into the
// repositories.
type Connection struct {
	pool   *pgxpool.Pool
	cfg    config.DatabaseConfig
	logger logging.Logger
}

// NewConnection establishes a pooled connection to PostgreSQL and verifies it
// with an initial ping.  The pool honours the size and lifetime limits from
// the database configuration.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (*Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid postgres configuration")
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create connection pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to reach postgres at %s:%d", cfg.Host, cfg.Port))
	}

	logger.Info("connected to postgres",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName),
		logging.Int("max_conns", cfg.MaxConns),
	)

	return &Connection{pool: pool, cfg: cfg, logger: logger}, nil
}

// Pool exposes the underlying pgx pool for repository construction.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// HealthCheck verifies the database is reachable and answering queries.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "postgres ping failed")
	}
	var one int
	if err := c.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "postgres health query failed")
	}
	return nil
}

// Stat returns current pool utilisation for metrics exposition.
func (c *Connection) Stat() *pgxpool.Stat { return c.pool.Stat() }

// Close tears down the pool.  Safe to call once during shutdown.
func (c *Connection) Close() {
	c.logger.Info("closing postgres connection pool")
	c.pool.Close()
}

// URL renders the connection string in URL form, as required by the migrator.
func (c *Connection) URL() string {
	return BuildURL(c.cfg)
}

// BuildURL renders the URL-form connection string without opening a pool,
// so the migrate command can run against a database that has no schema yet.
func BuildURL(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, sslMode(cfg))
}

// BuildDSN renders the keyword/value connection string pgx parses natively.
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode(cfg))
}

func sslMode(cfg config.DatabaseConfig) string {
	if cfg.SSLMode == "" {
		return "disable"
	}
	return cfg.SSLMode
}
