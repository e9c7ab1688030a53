package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// MySQL reads keys from a MySQL database through database/sql.
type MySQL struct {
	db    *sql.DB
	owned bool
	opts  Options
}

// NewMySQL opens dsn and verifies the connection. Without [WithSchema] the
// database named in the DSN is introspected.
func NewMySQL(ctx context.Context, dsn string, opts ...Option) (*MySQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse mysql dsn")
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "mysql connector")
	}
	db := sql.OpenDB(connector)
	if err := ping(ctx, "mysql", db.PingContext); err != nil {
		db.Close()
		return nil, err
	}

	m := NewMySQLFromDB(db, cfg.DBName, opts...)
	m.owned = true
	if m.opts.Schema == "" {
		db.Close()
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mysql dsn names no database and no schema was given")
	}
	return m, nil
}

// NewMySQLFromDB wraps an open database handle. defaultSchema is used when no
// [WithSchema] option is given. Close leaves db open.
func NewMySQLFromDB(db *sql.DB, defaultSchema string, opts ...Option) *MySQL {
	return &MySQL{db: db, opts: buildOptions(defaultSchema, opts)}
}

// Name returns "mysql:<database>".
func (m *MySQL) Name() string {
	return fmt.Sprintf("%s:%s", mysqlDialect.name, m.opts.Schema)
}

// Load reads keys (and optionally columns) from the configured database.
func (m *MySQL) Load(ctx context.Context) (*schema.Schema, error) {
	return load(ctx, sqlQuerier{m.db}, mysqlDialect, m.opts)
}

// Close closes the database handle if the source opened it.
func (m *MySQL) Close() {
	if m.owned {
		_ = m.db.Close()
	}
}

type sqlQuerier struct {
	db *sql.DB
}

func (q sqlQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }
