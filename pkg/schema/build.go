package schema

import "fmt"

// TableDef is the input description of one table: its declared columns and
// primary key.
type TableDef struct {
	Name       string       `json:"name"`
	Columns    []ColumnDef  `json:"columns,omitempty"`
	PrimaryKey []KeyPartDef `json:"primary_key,omitempty"`
}

// ColumnDef declares a column by name. The remaining fields are optional
// attributes carried through to the XML sink.
type ColumnDef struct {
	Name          string `json:"name"`
	DataType      string `json:"data_type,omitempty"`
	NotNull       bool   `json:"not_null,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
	Default       string `json:"default,omitempty"`
}

// KeyPartDef declares one primary-key column and its key order.
type KeyPartDef struct {
	Column string `json:"column"`
	Order  int    `json:"order"`
}

// ForeignKeyDef declares a single foreign-key relationship.
type ForeignKeyDef struct {
	ParentTable      string `json:"parent_table"`
	ParentColumn     string `json:"parent_column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Build assembles a schema from table and foreign-key definitions.
// Tables are processed before foreign keys so declared columns keep their
// declaration order; references to undeclared tables or columns create stubs.
func Build(tables []TableDef, fks []ForeignKeyDef) (*Schema, error) {
	s := New()
	for _, td := range tables {
		if td.Name == "" {
			return nil, ErrEmptyTableName
		}
		t := s.EnsureTable(td.Name)
		for _, cd := range td.Columns {
			if cd.Name == "" {
				return nil, fmt.Errorf("table %s: %w", td.Name, ErrEmptyColumnName)
			}
			c := t.AddColumn(cd.Name, false, false)
			if cd.DataType != "" {
				c.DataType = cd.DataType
			}
			if cd.Default != "" {
				c.Default = cd.Default
			}
			c.Nullable = !cd.NotNull
			c.AutoIncrement = c.AutoIncrement || cd.AutoIncrement
		}
		for _, kp := range td.PrimaryKey {
			if err := s.AddPrimaryKey(td.Name, kp.Column, kp.Order); err != nil {
				return nil, fmt.Errorf("table %s: %w", td.Name, err)
			}
		}
	}
	for i, fk := range fks {
		if err := s.AddForeignKey(fk.ParentTable, fk.ParentColumn, fk.ReferencedTable, fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("foreign key %d (%s.%s): %w", i, fk.ParentTable, fk.ParentColumn, err)
		}
	}
	return s, nil
}

// Defs is the inverse of [Build]: it describes every table of s, sorted by
// name with columns in declaration order, and every foreign-key reference.
func Defs(s *Schema) ([]TableDef, []ForeignKeyDef) {
	var (
		tables []TableDef
		fks    []ForeignKeyDef
	)
	for _, t := range s.Tables() {
		td := TableDef{Name: t.Name}
		for _, c := range t.Columns() {
			cd := ColumnDef{Name: c.Name, NotNull: !c.Nullable, AutoIncrement: c.AutoIncrement}
			if c.DataType != DefaultDataType {
				cd.DataType = c.DataType
			}
			if c.Default != DefaultValue {
				cd.Default = c.Default
			}
			td.Columns = append(td.Columns, cd)
			for _, ref := range c.ForeignKeys {
				fks = append(fks, ForeignKeyDef{
					ParentTable:      t.Name,
					ParentColumn:     c.Name,
					ReferencedTable:  ref.Table,
					ReferencedColumn: ref.Column,
				})
			}
		}
		for _, kp := range t.PrimaryKey {
			td.PrimaryKey = append(td.PrimaryKey, KeyPartDef{Column: kp.Column, Order: kp.Order})
		}
		tables = append(tables, td)
	}
	return tables, fks
}
