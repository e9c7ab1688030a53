// Package source loads key definitions from live databases.
//
// A [Source] produces a [schema.Schema] from somewhere: the CSV files of a
// dataset (see the io package), a PostgreSQL database ([Postgres]) or a MySQL
// database ([MySQL]). Database sources read primary and foreign keys from
// information_schema, so the resulting schema has the same shape as one
// loaded from key files: tables and columns appear because a key mentions
// them, and referenced columns that are not part of any key become stubs.
//
// With [WithColumns] the database sources also load every column of every
// base table, including its data type, nullability and default, before the
// keys are applied.
//
// # Usage
//
//	src, err := source.NewPostgres(ctx, dsn, source.WithSchema("public"))
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	s, err := src.Load(ctx)
package source

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Source loads a schema.
type Source interface {
	// Name identifies the source in logs and cache keys.
	Name() string
	Load(ctx context.Context) (*schema.Schema, error)
}

// Options control what a database source reads.
type Options struct {
	// Schema is the database schema (PostgreSQL) or database (MySQL) to read.
	Schema string
	// Columns loads all table columns, not only key columns.
	Columns bool
}

// Option configures a database source.
type Option func(*Options)

// WithSchema selects the schema to introspect.
func WithSchema(name string) Option {
	return func(o *Options) { o.Schema = name }
}

// WithColumns loads every column of every base table.
func WithColumns() Option {
	return func(o *Options) { o.Columns = true }
}

func buildOptions(defaultSchema string, opts []Option) Options {
	o := Options{Schema: defaultSchema}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// rows is the subset of a result set the loader needs. pgx.Rows satisfies it
// directly; database/sql rows are adapted.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type querier interface {
	query(ctx context.Context, sql string, args ...any) (rows, error)
}

type primaryKeyRow struct {
	table, column string
	order         int
}

type foreignKeyRow struct {
	table, column, refTable, refColumn string
}

type columnRow struct {
	table, column, dataType string
	nullable                bool
	def                     *string
}

// load runs the dialect's introspection queries through q and assembles the
// schema: columns (optional), then primary keys, then foreign keys.
func load(ctx context.Context, q querier, d dialect, opts Options) (*schema.Schema, error) {
	s := schema.New()

	if opts.Columns {
		cols, err := queryColumns(ctx, q, d, opts.Schema)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			col := s.EnsureTable(c.table).AddColumn(c.column, false, false)
			col.DataType = strings.ToUpper(c.dataType)
			col.Nullable = c.nullable
			if c.def != nil {
				col.Default = *c.def
			}
		}
	}

	pks, err := queryPrimaryKeys(ctx, q, d, opts.Schema)
	if err != nil {
		return nil, err
	}
	for _, pk := range pks {
		if err := s.AddPrimaryKey(pk.table, pk.column, pk.order); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSource, err, "primary key %s.%s", pk.table, pk.column)
		}
	}

	fks, err := queryForeignKeys(ctx, q, d, opts.Schema)
	if err != nil {
		return nil, err
	}
	for _, fk := range fks {
		if err := s.AddForeignKey(fk.table, fk.column, fk.refTable, fk.refColumn); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSource, err, "foreign key %s.%s", fk.table, fk.column)
		}
	}
	return s, nil
}

func queryPrimaryKeys(ctx context.Context, q querier, d dialect, schemaName string) ([]primaryKeyRow, error) {
	sql, args, err := d.primaryKeys(schemaName)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build primary key query")
	}
	var out []primaryKeyRow
	err = scanAll(ctx, q, sql, args, "primary keys", func(r rows) error {
		var row primaryKeyRow
		if err := r.Scan(&row.table, &row.column, &row.order); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func queryForeignKeys(ctx context.Context, q querier, d dialect, schemaName string) ([]foreignKeyRow, error) {
	sql, args, err := d.foreignKeys(schemaName)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build foreign key query")
	}
	var out []foreignKeyRow
	err = scanAll(ctx, q, sql, args, "foreign keys", func(r rows) error {
		var row foreignKeyRow
		if err := r.Scan(&row.table, &row.column, &row.refTable, &row.refColumn); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func queryColumns(ctx context.Context, q querier, d dialect, schemaName string) ([]columnRow, error) {
	sql, args, err := d.columns(schemaName)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build column query")
	}
	var out []columnRow
	err = scanAll(ctx, q, sql, args, "columns", func(r rows) error {
		var (
			row      columnRow
			nullable string
		)
		if err := r.Scan(&row.table, &row.column, &row.dataType, &nullable, &row.def); err != nil {
			return err
		}
		row.nullable = strings.EqualFold(nullable, "YES")
		out = append(out, row)
		return nil
	})
	return out, err
}

func scanAll(ctx context.Context, q querier, sql string, args []any, what string, fn func(rows) error) error {
	r, err := q.query(ctx, sql, args...)
	if err != nil {
		return queryError(err, "query %s", what)
	}
	defer r.Close()
	for r.Next() {
		if err := fn(r); err != nil {
			return queryError(err, "scan %s", what)
		}
	}
	if err := r.Err(); err != nil {
		return queryError(err, "read %s", what)
	}
	return nil
}

func queryError(err error, format string, args ...any) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeSource, err, format, args...)
}
