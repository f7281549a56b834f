// Package pgstore keeps session tokens and the enforcement policy in PostgreSQL.
package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pingTimeout = 3 * time.Second

// Connect builds a pool for databaseURL and checks a connection can be acquired.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("[pgstore Connect] invalid database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("[pgstore Connect] %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	conn, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("[pgstore Connect] database unreachable: %w", err)
	}
	conn.Release()

	return pool, nil
}

type options struct {
	schema string
}

type Option func(*options)

// WithSchema places the tables in schema instead of the connection's search_path.
func WithSchema(schema string) Option {
	return func(o *options) {
		o.schema = strings.TrimSpace(schema)
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) table(name string) string {
	if o.schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{o.schema, name}.Sanitize()
}

// Migrate creates the limiter tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, opts ...Option) error {
	o := buildOptions(opts)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + o.table("session_tokens") + ` (
			user_id   TEXT PRIMARY KEY,
			token     TEXT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + o.table("enforcement_policy") + ` (
			id         SMALLINT PRIMARY KEY CHECK (id = 1),
			roles      TEXT[] NOT NULL,
			version    BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("[pgstore Migrate] %w", err)
		}
	}
	return nil
}
