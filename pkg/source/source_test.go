package source

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/schemaplot/pkg/errors"
)

func TestDialectQueries(t *testing.T) {
	tests := []struct {
		name  string
		build func(string) (string, []any, error)
		where string
		args  []any
	}{
		{"postgres primary keys", postgresDialect.primaryKeys, "WHERE tc.constraint_type = $1 AND tc.table_schema = $2", []any{"PRIMARY KEY", "public"}},
		{"postgres foreign keys", postgresDialect.foreignKeys, "WHERE kcu.table_schema = $1", []any{"public"}},
		{"postgres columns", postgresDialect.columns, "WHERE c.table_schema = $1 AND t.table_type = $2", []any{"public", "BASE TABLE"}},
		{"mysql primary keys", mysqlDialect.primaryKeys, "WHERE CONSTRAINT_NAME = ? AND TABLE_SCHEMA = ?", []any{"PRIMARY", "public"}},
		{"mysql foreign keys", mysqlDialect.foreignKeys, "WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL", []any{"public"}},
		{"mysql columns", mysqlDialect.columns, "WHERE c.TABLE_SCHEMA = ? AND t.TABLE_TYPE = ?", []any{"public", "BASE TABLE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.build("public")
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if !strings.HasPrefix(sql, "SELECT ") || !strings.Contains(sql, "information_schema.") {
				t.Errorf("unexpected query: %s", sql)
			}
			if !strings.Contains(sql, tt.where) {
				t.Errorf("query %q does not contain %q", sql, tt.where)
			}
			if !slices.Equal(args, tt.args) {
				t.Errorf("args = %v, want %v", args, tt.args)
			}
		})
	}
}

// fakeRows serves canned rows to the loader.
type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int:
			*p = row[i].(int)
		case **string:
			if row[i] == nil {
				*p = nil
			} else {
				v := row[i].(string)
				*p = &v
			}
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     {}

// fakeQuerier answers queries by matching a fragment of the SQL text.
type fakeQuerier struct {
	results map[string][][]any
	fail    error
	queries []string
}

func (q *fakeQuerier) query(_ context.Context, sql string, _ ...any) (rows, error) {
	q.queries = append(q.queries, sql)
	if q.fail != nil {
		return nil, q.fail
	}
	for fragment, data := range q.results {
		if strings.Contains(sql, fragment) {
			return &fakeRows{data: data}, nil
		}
	}
	return &fakeRows{}, nil
}

func TestLoad(t *testing.T) {
	q := &fakeQuerier{results: map[string][][]any{
		"table_constraints": {
			{"orders", "id", 1},
			{"line_items", "order_id", 1},
			{"line_items", "line", 2},
		},
		"referential_constraints": {
			{"line_items", "order_id", "orders", "id"},
			{"orders", "customer_id", "customers", "id"},
		},
	}}

	s, err := load(context.Background(), q, postgresDialect, Options{Schema: "public"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(q.queries) != 2 {
		t.Errorf("ran %d queries, want 2 (columns skipped)", len(q.queries))
	}
	if s.TableCount() != 3 {
		t.Errorf("TableCount() = %d, want 3", s.TableCount())
	}
	if got := s.Table("line_items").PrimaryKeyParts(); !slices.Equal(got, []string{"order_id", "line"}) {
		t.Errorf("line_items key = %v", got)
	}
	if c := s.Table("customers").Column("id"); c == nil || c.IsPrimary {
		t.Errorf("customers.id should be a non-primary stub, got %+v", c)
	}
}

func TestLoadColumns(t *testing.T) {
	def := "nextval('orders_id_seq')"
	q := &fakeQuerier{results: map[string][][]any{
		"information_schema.columns": {
			{"orders", "id", "integer", "NO", def},
			{"orders", "note", "text", "YES", nil},
		},
		"table_constraints": {{"orders", "id", 1}},
	}}

	s, err := load(context.Background(), q, postgresDialect, Options{Schema: "public", Columns: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tbl := s.Table("orders")
	if tbl.ColumnCount() != 2 {
		t.Fatalf("ColumnCount() = %d, want 2", tbl.ColumnCount())
	}
	id := tbl.Column("id")
	if id.DataType != "INTEGER" || id.Nullable || id.Default != def || !id.IsPrimary {
		t.Errorf("id = %+v", id)
	}
	note := tbl.Column("note")
	if note.DataType != "TEXT" || !note.Nullable || note.Default != "NULL" {
		t.Errorf("note = %+v", note)
	}
}

func TestLoadErrors(t *testing.T) {
	q := &fakeQuerier{fail: fmt.Errorf("connection refused")}
	if _, err := load(context.Background(), q, mysqlDialect, Options{Schema: "shop"}); !errors.Is(err, errors.ErrCodeSource) {
		t.Errorf("err = %v, want SOURCE_ERROR", err)
	}

	q = &fakeQuerier{fail: fmt.Errorf("wait: %w", context.DeadlineExceeded)}
	if _, err := load(context.Background(), q, mysqlDialect, Options{Schema: "shop"}); !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT", err)
	}
}

func TestOptions(t *testing.T) {
	o := buildOptions(DefaultPostgresSchema, nil)
	if o.Schema != "public" || o.Columns {
		t.Errorf("defaults = %+v", o)
	}
	o = buildOptions(DefaultPostgresSchema, []Option{WithSchema("sales"), WithColumns()})
	if o.Schema != "sales" || !o.Columns {
		t.Errorf("options = %+v", o)
	}
}
