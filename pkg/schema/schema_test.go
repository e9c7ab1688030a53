package schema

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

func TestAddForeignKeyCreatesStubs(t *testing.T) {
	s := New()
	if err := s.AddForeignKey("orders", "customer_id", "customers", "id"); err != nil {
		t.Fatalf("AddForeignKey: %v", err)
	}

	if s.TableCount() != 2 {
		t.Fatalf("TableCount() = %d, want 2", s.TableCount())
	}

	stub := s.Table("customers").Column("id")
	if stub == nil {
		t.Fatal("referenced column should be created as a stub")
	}
	if stub.IsPrimary || stub.IsForeign {
		t.Errorf("stub column flags = (%v, %v), want (false, false)", stub.IsPrimary, stub.IsForeign)
	}
	if stub.DataType != DefaultDataType || !stub.Nullable || stub.Default != DefaultValue {
		t.Errorf("stub column attributes = %+v, want defaults", stub)
	}

	fk := s.Table("orders").Column("customer_id")
	if !fk.IsForeign {
		t.Error("parent column should be foreign")
	}
	want := []Reference{{Table: "customers", Column: "id"}}
	if !slices.Equal(fk.ForeignKeys, want) {
		t.Errorf("ForeignKeys = %v, want %v", fk.ForeignKeys, want)
	}
}

func TestAddPrimaryKey(t *testing.T) {
	s := New()
	_ = s.AddPrimaryKey("line_items", "line", 2)
	_ = s.AddPrimaryKey("line_items", "order_id", 1)

	tbl := s.Table("line_items")
	if got := tbl.PrimaryKeyParts(); !slices.Equal(got, []string{"order_id", "line"}) {
		t.Errorf("PrimaryKeyParts() = %v, want [order_id line]", got)
	}
	col := tbl.Column("line")
	if !col.IsPrimary || !col.AutoIncrement {
		t.Errorf("primary column = %+v, want primary with autoincrement", col)
	}
}

func TestPrimaryKeyAfterForeignKeyKeepsBothFlags(t *testing.T) {
	s := New()
	_ = s.AddForeignKey("a", "b_id", "b", "id")
	_ = s.AddPrimaryKey("a", "b_id", 1)

	col := s.Table("a").Column("b_id")
	if !col.IsPrimary || !col.IsForeign {
		t.Errorf("flags = (%v, %v), want (true, true)", col.IsPrimary, col.IsForeign)
	}
}

func TestColumnsKeepInsertionOrder(t *testing.T) {
	s := New()
	_ = s.AddPrimaryKey("t", "z", 1)
	_ = s.AddForeignKey("t", "a", "u", "id")
	_ = s.AddForeignKey("t", "m", "u", "id")

	var names []string
	for _, c := range s.Table("t").Columns() {
		names = append(names, c.Name)
	}
	if !slices.Equal(names, []string{"z", "a", "m"}) {
		t.Errorf("Columns() = %v, want [z a m]", names)
	}
}

func TestTablesSortedByName(t *testing.T) {
	s := New()
	for _, name := range []string{"b", "B", "a", "_x"} {
		s.EnsureTable(name)
	}
	var names []string
	for _, tbl := range s.Tables() {
		names = append(names, tbl.Name)
	}
	if !slices.Equal(names, []string{"B", "_x", "a", "b"}) {
		t.Errorf("Tables() = %v, want ordinal order [B _x a b]", names)
	}
}

func TestReferencesDistinct(t *testing.T) {
	s := New()
	_ = s.AddForeignKey("t", "a_id", "a", "id")
	_ = s.AddForeignKey("t", "a2_id", "a", "id")
	_ = s.AddForeignKey("t", "b_id", "b", "id")

	if got := s.Table("t").References(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("References() = %v, want [a b]", got)
	}
	if s.ForeignKeyCount() != 3 {
		t.Errorf("ForeignKeyCount() = %d, want 3", s.ForeignKeyCount())
	}
}

func TestEmptyNamesRejected(t *testing.T) {
	s := New()
	if err := s.AddPrimaryKey("", "id", 1); !errors.Is(err, ErrEmptyTableName) {
		t.Errorf("AddPrimaryKey empty table = %v, want ErrEmptyTableName", err)
	}
	if err := s.AddForeignKey("a", "", "b", "id"); !errors.Is(err, ErrEmptyColumnName) {
		t.Errorf("AddForeignKey empty column = %v, want ErrEmptyColumnName", err)
	}
}

func TestBuild(t *testing.T) {
	s, err := Build(
		[]TableDef{
			{Name: "users", Columns: []ColumnDef{{Name: "id"}, {Name: "email"}}, PrimaryKey: []KeyPartDef{{Column: "id", Order: 1}}},
		},
		[]ForeignKeyDef{
			{ParentTable: "posts", ParentColumn: "author_id", ReferencedTable: "users", ReferencedColumn: "id"},
			{ParentTable: "posts", ParentColumn: "tag_id", ReferencedTable: "tags", ReferencedColumn: "id"},
		},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.TableCount() != 3 {
		t.Errorf("TableCount() = %d, want 3", s.TableCount())
	}
	if got := s.Table("users").ColumnCount(); got != 2 {
		t.Errorf("users columns = %d, want 2", got)
	}
	if s.Table("tags").Column("id") == nil {
		t.Error("tags.id should be a stub column")
	}

	if _, err := Build([]TableDef{{Name: ""}}, nil); !errors.Is(err, ErrEmptyTableName) {
		t.Errorf("Build with empty table name = %v, want ErrEmptyTableName", err)
	}
}

func TestResetPlacement(t *testing.T) {
	s := New()
	tbl := s.EnsureTable("t")
	tbl.X, tbl.Y, tbl.Width, tbl.Height = 1, 2, 3, 4
	tbl.Placed = true
	tbl.Connections = 5

	s.ResetPlacement()
	if tbl.X != 0 || tbl.Width != 0 || tbl.Placed || tbl.Connections != 0 {
		t.Errorf("ResetPlacement left state: %+v", tbl)
	}
}

func TestDefsRoundTrip(t *testing.T) {
	s := New()
	_ = s.AddPrimaryKey("order_items", "order_id", 1)
	_ = s.AddPrimaryKey("order_items", "line", 2)
	_ = s.AddForeignKey("order_items", "order_id", "orders", "id")
	_ = s.AddPrimaryKey("orders", "id", 1)
	_ = s.AddForeignKey("orders", "customer_id", "customers", "id")
	note := s.Table("orders").AddColumn("note", false, false)
	note.DataType, note.Nullable = "TEXT", false

	tables, fks := Defs(s)
	if len(tables) != 3 || len(fks) != 2 {
		t.Fatalf("Defs = %d tables, %d fks; want 3, 2", len(tables), len(fks))
	}
	if tables[0].Name != "customers" || tables[1].PrimaryKey[1] != (KeyPartDef{Column: "line", Order: 2}) {
		t.Errorf("unexpected defs: %+v", tables)
	}

	back, err := Build(tables, fks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tables2, fks2 := Defs(back)
	if !reflect.DeepEqual(tables, tables2) || !reflect.DeepEqual(fks, fks2) {
		t.Errorf("round trip changed defs:\n%+v\n%+v", tables, tables2)
	}
	if c := back.Table("orders").Column("note"); c.DataType != "TEXT" || c.Nullable {
		t.Errorf("note attributes lost: %+v", c)
	}
}
