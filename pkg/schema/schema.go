// Package schema models database tables, their columns and key relationships.
//
// A [Schema] is built incrementally from primary-key and foreign-key records.
// Tables and columns are created the first time any record mentions them, so
// a foreign key pointing at a table or column that was never declared yields a
// stub entry instead of an error. Stub creation is the only referential
// integrity handling the package performs.
//
// Tables carry mutable geometry (X, Y, Width, Height) that the layout package
// fills in. Nothing in this package reads the geometry.
//
// # Ordering
//
// Map iteration is never relied upon: [Schema.Tables] returns tables sorted by
// name, and [Table.Columns] returns columns in insertion order.
package schema

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrEmptyTableName is returned when a record names a table with an empty string.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrEmptyColumnName is returned when a record names a column with an empty string.
	ErrEmptyColumnName = errors.New("column name must not be empty")
)

// Default column attributes written to diagram markup.
const (
	DefaultDataType = "INTEGER"
	DefaultValue    = "NULL"
)

// Reference points at a column in another (or the same) table.
type Reference struct {
	Table  string
	Column string
}

// KeyPart is one column of a composite primary key together with its
// position in the key.
type KeyPart struct {
	Column string
	Order  int
}

// Column is a single table column.
type Column struct {
	Name      string
	IsPrimary bool
	IsForeign bool

	// ForeignKeys lists the columns this column references, in the order the
	// foreign-key records were added.
	ForeignKeys []Reference

	DataType      string
	Nullable      bool
	AutoIncrement bool
	Default       string
}

func newColumn(name string, primary, foreign bool) *Column {
	return &Column{
		Name:          name,
		IsPrimary:     primary,
		IsForeign:     foreign,
		DataType:      DefaultDataType,
		Nullable:      true,
		AutoIncrement: primary,
		Default:       DefaultValue,
	}
}

// Table is a database table with its columns, primary key and diagram geometry.
type Table struct {
	Name       string
	PrimaryKey []KeyPart

	X, Y          int
	Width, Height int

	// Connections is the total connection degree (incoming + outgoing),
	// populated by the connectivity analysis.
	Connections int

	// Placed is set once the table has a final position.
	Placed bool

	columns map[string]*Column
	order   []string
}

func newTable(name string) *Table {
	return &Table{Name: name, columns: make(map[string]*Column)}
}

// AddColumn returns the named column, creating it with the given flags if it
// does not exist. Flags on an existing column are never cleared.
func (t *Table) AddColumn(name string, primary, foreign bool) *Column {
	if c, ok := t.columns[name]; ok {
		c.IsPrimary = c.IsPrimary || primary
		c.IsForeign = c.IsForeign || foreign
		return c
	}
	c := newColumn(name, primary, foreign)
	t.columns[name] = c
	t.order = append(t.order, name)
	return c
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	return t.columns[name]
}

// Columns returns the columns in insertion order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.order))
	for i, name := range t.order {
		out[i] = t.columns[name]
	}
	return out
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.order) }

// AddPrimaryKey appends a primary-key part and marks the column as primary.
func (t *Table) AddPrimaryKey(column string, order int) {
	t.AddColumn(column, true, false)
	t.PrimaryKey = append(t.PrimaryKey, KeyPart{Column: column, Order: order})
}

// PrimaryKeyParts returns primary-key column names ordered by key order.
// Parts sharing an order keep their insertion order.
func (t *Table) PrimaryKeyParts() []string {
	parts := slices.Clone(t.PrimaryKey)
	slices.SortStableFunc(parts, func(a, b KeyPart) int { return a.Order - b.Order })
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.Column
	}
	return out
}

// References returns the distinct table names referenced by this table's
// foreign keys, sorted by name.
func (t *Table) References() []string {
	var out []string
	for _, c := range t.Columns() {
		for _, fk := range c.ForeignKeys {
			if !slices.Contains(out, fk.Table) {
				out = append(out, fk.Table)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Schema is the set of tables taking part in one diagram.
type Schema struct {
	tables  map[string]*Table
	fkCount int
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{tables: make(map[string]*Table)}
}

// Table returns the named table or nil.
func (s *Schema) Table(name string) *Table {
	return s.tables[name]
}

// EnsureTable returns the named table, creating an empty one if needed.
func (s *Schema) EnsureTable(name string) *Table {
	if t, ok := s.tables[name]; ok {
		return t
	}
	t := newTable(name)
	s.tables[name] = t
	return t
}

// Tables returns all tables sorted by name (ordinal comparison).
func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Table) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// TableCount returns the number of tables.
func (s *Schema) TableCount() int { return len(s.tables) }

// ForeignKeyCount returns the number of foreign-key records added.
func (s *Schema) ForeignKeyCount() int { return s.fkCount }

// AddPrimaryKey records that column is part of table's primary key at the
// given key order. The table and column are created if needed.
func (s *Schema) AddPrimaryKey(table, column string, order int) error {
	if table == "" {
		return ErrEmptyTableName
	}
	if column == "" {
		return ErrEmptyColumnName
	}
	s.EnsureTable(table).AddPrimaryKey(column, order)
	return nil
}

// AddForeignKey records that parentTable.parentColumn references
// referencedTable.referencedColumn. Missing tables and columns on either side
// are created; the referenced column is created with default attributes.
func (s *Schema) AddForeignKey(parentTable, parentColumn, referencedTable, referencedColumn string) error {
	if parentTable == "" || referencedTable == "" {
		return ErrEmptyTableName
	}
	if parentColumn == "" || referencedColumn == "" {
		return ErrEmptyColumnName
	}
	parent := s.EnsureTable(parentTable)
	referenced := s.EnsureTable(referencedTable)

	col := parent.AddColumn(parentColumn, false, true)
	col.ForeignKeys = append(col.ForeignKeys, Reference{Table: referencedTable, Column: referencedColumn})
	col.IsForeign = true

	referenced.AddColumn(referencedColumn, false, false)
	s.fkCount++
	return nil
}

// ResetPlacement clears geometry and placement state on every table so the
// schema can be laid out again.
func (s *Schema) ResetPlacement() {
	for _, t := range s.tables {
		t.X, t.Y, t.Width, t.Height = 0, 0, 0, 0
		t.Placed = false
		t.Connections = 0
	}
}
