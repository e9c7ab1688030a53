package io

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

func TestReadKeys(t *testing.T) {
	primary := "\ufeffTableName,ColumnName,KeyOrder\n" +
		"line_items,line,2\n" +
		"line_items,order_id,1\n" +
		"orders,id,1\n"
	// columns deliberately out of order
	foreign := "ReferencedTable,ReferencedColumn,ParentTable,ParentColumn\n" +
		"orders,id,line_items,order_id\n" +
		"customers,id,orders,customer_id\n"

	s, err := ReadKeys(strings.NewReader(primary), strings.NewReader(foreign))
	if err != nil {
		t.Fatalf("ReadKeys: %v", err)
	}

	if s.TableCount() != 3 {
		t.Errorf("TableCount() = %d, want 3", s.TableCount())
	}
	if got := s.Table("line_items").PrimaryKeyParts(); !slices.Equal(got, []string{"order_id", "line"}) {
		t.Errorf("line_items key = %v, want [order_id line]", got)
	}
	col := s.Table("line_items").Column("order_id")
	if !col.IsPrimary || !col.IsForeign {
		t.Errorf("order_id flags = (%v, %v), want (true, true)", col.IsPrimary, col.IsForeign)
	}
	if s.Table("customers").Column("id") == nil {
		t.Error("customers.id should exist as a stub")
	}
	if s.ForeignKeyCount() != 2 {
		t.Errorf("ForeignKeyCount() = %d, want 2", s.ForeignKeyCount())
	}
}

func TestReadKeysErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		code    errors.Code
		message string
	}{
		{
			name:    "non-integer key order",
			input:   "TableName,ColumnName,KeyOrder\nt,id,1\nt,x,first\n",
			code:    errors.ErrCodeInvalidInput,
			message: "line 3",
		},
		{
			name:    "missing value",
			input:   "TableName,ColumnName,KeyOrder\nt,,1\n",
			code:    errors.ErrCodeInvalidInput,
			message: "line 2: missing ColumnName",
		},
		{
			name:    "short row",
			input:   "TableName,ColumnName,KeyOrder\nt,id\n",
			code:    errors.ErrCodeInvalidInput,
			message: "missing KeyOrder",
		},
		{
			name:    "missing header column",
			input:   "TableName,KeyOrder\nt,1\n",
			code:    errors.ErrCodeInvalidFormat,
			message: "ColumnName",
		},
		{
			name:  "empty file",
			input: "",
			code:  errors.ErrCodeInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReadPrimaryKeys(strings.NewReader(tt.input), schema.New())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error code = %q, want %q (%v)", errors.GetCode(err), tt.code, err)
			}
			if tt.message != "" && !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}
}

func TestForeignKeysMissingValue(t *testing.T) {
	input := "ParentTable,ParentColumn,ReferencedTable,ReferencedColumn\na,b_id,b,id\na,c_id,,id\n"
	err := ReadForeignKeys(strings.NewReader(input), schema.New())
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error %q should name line 3", err)
	}
}

func TestWriteKeysRoundTrip(t *testing.T) {
	s := schema.New()
	_ = s.AddPrimaryKey("b", "y", 2)
	_ = s.AddPrimaryKey("b", "x", 1)
	_ = s.AddForeignKey("a", "b_x", "b", "x")
	_ = s.AddForeignKey("a", "c_id", "c", "id")

	var pk, fk bytes.Buffer
	if err := WritePrimaryKeys(&pk, s); err != nil {
		t.Fatalf("WritePrimaryKeys: %v", err)
	}
	if err := WriteForeignKeys(&fk, s); err != nil {
		t.Fatalf("WriteForeignKeys: %v", err)
	}

	wantPK := "TableName,ColumnName,KeyOrder\nb,x,1\nb,y,2\n"
	if pk.String() != wantPK {
		t.Errorf("primary keys =\n%s\nwant\n%s", pk.String(), wantPK)
	}

	got, err := ReadKeys(&pk, &fk)
	if err != nil {
		t.Fatalf("ReadKeys: %v", err)
	}
	if got.ForeignKeyCount() != 2 || got.TableCount() != 3 {
		t.Errorf("round trip: %d tables, %d foreign keys", got.TableCount(), got.ForeignKeyCount())
	}
	if parts := got.Table("b").PrimaryKeyParts(); !slices.Equal(parts, []string{"x", "y"}) {
		t.Errorf("b key = %v, want [x y]", parts)
	}
}

func TestCSVSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, PrimaryKeysFile), "TableName,ColumnName,KeyOrder\nusers,id,1\n")
	writeFile(t, filepath.Join(dir, ForeignKeysFile), "ParentTable,ParentColumn,ReferencedTable,ReferencedColumn\nposts,user_id,users,id\n")

	src := CSVSource{PrimaryPath: filepath.Join(dir, PrimaryKeysFile), ForeignPath: filepath.Join(dir, ForeignKeysFile)}
	s, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.TableCount() != 2 {
		t.Errorf("TableCount() = %d, want 2", s.TableCount())
	}

	missing := CSVSource{PrimaryPath: filepath.Join(dir, "nope.csv"), ForeignPath: src.ForeignPath}
	if _, err := missing.Load(context.Background()); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file err = %v, want FILE_NOT_FOUND", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Load(ctx); err == nil {
		t.Error("Load with cancelled context should fail")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
