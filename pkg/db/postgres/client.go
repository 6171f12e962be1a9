package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dem-exchange/insightsx/pkg/retry"
	"github.com/dem-exchange/insightsx/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor is implemented by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client wraps a PostgreSQL connection pool and provides helper methods
type Client struct {
	Logger *zap.Logger
	Pool   *pgxpool.Pool
}

// PoolConfig defines connection pool settings for a specific component
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Component       string // For logging/debugging
}

// New connects to POSTGRES_URL (or DATABASE_URL) with retries.
func New(ctx context.Context, logger *zap.Logger, poolConfig ...*PoolConfig) (client *Client, err error) {
	// Add timeout to context for initial connection
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbURL := utils.Env("POSTGRES_URL", utils.Env("DATABASE_URL", "postgres://localhost:5432/postgres"))

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse POSTGRES_URL: %w", err)
	}

	poolConf := GetPoolConfigForComponent("query")
	if len(poolConfig) > 0 && poolConfig[0] != nil {
		poolConf = poolConfig[0]
	}

	config.MinConns = poolConf.MinConns
	config.MaxConns = poolConf.MaxConns
	config.MaxConnLifetime = poolConf.ConnMaxLifetime
	config.MaxConnIdleTime = poolConf.ConnMaxIdleTime

	client = &Client{Logger: logger}
	retryErr := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "postgres_connection", func() error {
		pool, openErr := pgxpool.NewWithConfig(connCtx, config)
		if openErr != nil {
			return fmt.Errorf("failed to create postgres connection pool: %w", openErr)
		}

		if pingErr := pool.Ping(connCtx); pingErr != nil {
			pool.Close()
			var pgErr *pgconn.PgError
			// invalid credentials or unknown database will not heal by retrying
			if errors.As(pingErr, &pgErr) && (pgErr.Code == "28P01" || pgErr.Code == "3D000") {
				return retry.Permanent(pingErr)
			}
			return fmt.Errorf("failed to ping postgres: %w", pingErr)
		}

		client.Pool = pool
		logger.Info("PostgreSQL connection pool configured",
			zap.String("database", config.ConnConfig.Database),
			zap.String("component", poolConf.Component),
			zap.Int32("min_conns", poolConf.MinConns),
			zap.Int32("max_conns", poolConf.MaxConns),
			zap.Duration("conn_max_lifetime", poolConf.ConnMaxLifetime),
			zap.Duration("conn_max_idle_time", poolConf.ConnMaxIdleTime),
		)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return client, nil
}

// Ping verifies the pool can reach the server.
func (c *Client) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Client) Close() {
	c.Pool.Close()
}

// ctxKey is the type used for context keys to avoid collisions
type ctxKey string

const connKey ctxKey = "pgx_conn"

// WithConn acquires one pooled connection, exposes it to fn through the context and
// releases it when fn returns, whatever the outcome.
func (c *Client) WithConn(ctx context.Context, fn func(ctx context.Context) error) error {
	conn, err := c.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(context.WithValue(ctx, connKey, conn))
}

// GetExecutor returns the request-scoped connection when one is bound to ctx,
// otherwise the pool.
func (c *Client) GetExecutor(ctx context.Context) Executor {
	if conn, ok := ctx.Value(connKey).(*pgxpool.Conn); ok {
		return conn
	}
	return c.Pool
}

// IsNoRows checks if the error is a "no rows" error
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// GetPoolConfigForComponent returns pool settings per component. POSTGRES_MAX_CONNS
// overrides the ceiling of the query component.
func GetPoolConfigForComponent(component string) *PoolConfig {
	var minConns, maxConns int32
	connMaxLifetime := 30 * time.Minute
	connMaxIdleTime := 5 * time.Minute

	switch component {
	case "query":
		minConns = 2
		maxConns = int32(utils.EnvInt("POSTGRES_MAX_CONNS", 20))
	default:
		minConns = 2
		maxConns = 10
	}

	return &PoolConfig{
		MinConns:        minConns,
		MaxConns:        maxConns,
		ConnMaxLifetime: connMaxLifetime,
		ConnMaxIdleTime: connMaxIdleTime,
		Component:       component,
	}
}
