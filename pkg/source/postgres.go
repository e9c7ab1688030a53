package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// DefaultPostgresSchema is introspected when no schema is given.
const DefaultPostgresSchema = "public"

// Postgres reads keys from a PostgreSQL database through a pgx pool.
type Postgres struct {
	pool  *pgxpool.Pool
	owned bool
	opts  Options
}

// NewPostgres connects to dsn and verifies the connection. The returned
// source owns the pool; call Close when done.
func NewPostgres(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse postgres dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSource, err, "connect to postgres")
	}
	if err := ping(ctx, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}
	p := NewPostgresFromPool(pool, opts...)
	p.owned = true
	return p, nil
}

// NewPostgresFromPool wraps an existing pool. Close leaves the pool open.
func NewPostgresFromPool(pool *pgxpool.Pool, opts ...Option) *Postgres {
	return &Postgres{pool: pool, opts: buildOptions(DefaultPostgresSchema, opts)}
}

// Name returns "postgres:<schema>".
func (p *Postgres) Name() string {
	return fmt.Sprintf("%s:%s", postgresDialect.name, p.opts.Schema)
}

// Load reads keys (and optionally columns) from the configured schema.
func (p *Postgres) Load(ctx context.Context) (*schema.Schema, error) {
	return load(ctx, pgxQuerier{p.pool}, postgresDialect, p.opts)
}

// Close releases the pool if the source created it.
func (p *Postgres) Close() {
	if p.owned {
		p.pool.Close()
	}
}

type pgxQuerier struct {
	pool *pgxpool.Pool
}

func (q pgxQuerier) query(ctx context.Context, sql string, args ...any) (rows, error) {
	return q.pool.Query(ctx, sql, args...)
}
