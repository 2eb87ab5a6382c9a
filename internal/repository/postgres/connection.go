// Package postgres implements the repository interfaces on PostgreSQL through
// a pgx connection pool. The schema matches the sqlite store, except that tags
// and comments are native TEXT[] columns.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose
	"github.com/pressly/goose/v3"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Connection struct {
	*pgxpool.Pool
}

// NewConnection opens a pool for dsn, checks it and applies pending
// migrations.
func NewConnection(ctx context.Context, dsn string) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if err := Migrate(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Connection{
		Pool: pool,
	}, nil
}

// Migrate applies the embedded goose migrations to the database at dsn.
// goose drives database/sql, so it gets its own short-lived handle through
// pgx's stdlib adapter.
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (c *Connection) Close() error {
	if c.Pool != nil {
		c.Pool.Close()
	}
	return nil
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return apperror.Unavailable("database", fmt.Errorf("connection pool is nil"))
	}
	if err := c.Pool.Ping(ctx); err != nil {
		return apperror.Unavailable("database", err)
	}
	return nil
}
