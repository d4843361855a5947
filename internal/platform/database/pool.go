package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"badgeworks/pkg/platform/sentinel"
)

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retry           RetryPolicy
}

// DefaultConfig returns sensible defaults for database configuration.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		Retry:           DefaultRetryPolicy(),
	}
}

// Pool wraps a *sql.DB and hands out scoped connections under a retry policy.
type Pool struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// New opens the pool and verifies connectivity, retrying the first ping
// under cfg.Retry. It fails once the attempts are exhausted.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	p := &Pool{db: db, cfg: cfg, logger: logger}
	if _, err := Retry(ctx, cfg.Retry, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return struct{}{}, db.PingContext(pingCtx)
	}, p.logRetry("ping")); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return p, nil
}

// NewFromDB wraps an already-open handle. Used by tests and tooling.
func NewFromDB(db *sql.DB, retry RetryPolicy, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{db: db, cfg: Config{Retry: retry}, logger: logger}
}

// WithConn acquires a dedicated connection, retrying under the pool's
// policy, runs fn, and releases the connection on every path.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := Retry(ctx, p.cfg.Retry, func() (*sql.Conn, error) {
		return p.db.Conn(ctx)
	}, p.logRetry("acquire connection"))
	if err != nil {
		return fmt.Errorf("acquire connection: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer conn.Close() //nolint:errcheck // returning a conn to the pool cannot fail meaningfully
	return fn(conn)
}

func (p *Pool) logRetry(op string) func(int, error) {
	return func(attempt int, err error) {
		p.logger.Warn("database operation failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", p.cfg.Retry.normalized().MaxAttempts,
			"error", err,
		)
	}
}

// DB returns the underlying *sql.DB for query operations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health checks if the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
