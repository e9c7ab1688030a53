package io

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Header names of the key files.
const (
	ColTableName  = "TableName"
	ColColumnName = "ColumnName"
	ColKeyOrder   = "KeyOrder"

	ColParentTable      = "ParentTable"
	ColParentColumn     = "ParentColumn"
	ColReferencedTable  = "ReferencedTable"
	ColReferencedColumn = "ReferencedColumn"
)

var (
	primaryHeader = []string{ColTableName, ColColumnName, ColKeyOrder}
	foreignHeader = []string{ColParentTable, ColParentColumn, ColReferencedTable, ColReferencedColumn}
)

const bom = "\ufeff"

// CSVSource loads a schema from a primary-key file and a foreign-key file.
type CSVSource struct {
	PrimaryPath string
	ForeignPath string
}

// Name identifies the source in logs.
func (c CSVSource) Name() string {
	return "csv:" + c.PrimaryPath
}

// Load reads primary keys first, then foreign keys, so declared primary-key
// columns keep their position ahead of foreign-key columns.
func (c CSVSource) Load(ctx context.Context) (*schema.Schema, error) {
	s := schema.New()
	if err := readFile(ctx, c.PrimaryPath, s, ReadPrimaryKeys); err != nil {
		return nil, err
	}
	if err := readFile(ctx, c.ForeignPath, s, ReadForeignKeys); err != nil {
		return nil, err
	}
	return s, nil
}

func readFile(ctx context.Context, path string, s *schema.Schema, read func(io.Reader, *schema.Schema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "key file %s", path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := read(f, s); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadKeys builds a schema from a primary-key and a foreign-key stream.
func ReadKeys(primary, foreign io.Reader) (*schema.Schema, error) {
	s := schema.New()
	if err := ReadPrimaryKeys(primary, s); err != nil {
		return nil, err
	}
	if err := ReadForeignKeys(foreign, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadPrimaryKeys adds the primary-key records in r to s.
func ReadPrimaryKeys(r io.Reader, s *schema.Schema) error {
	return eachRecord(r, primaryHeader, func(line int, rec map[string]string) error {
		order, err := strconv.Atoi(rec[ColKeyOrder])
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "line %d: %s %q is not an integer", line, ColKeyOrder, rec[ColKeyOrder])
		}
		return s.AddPrimaryKey(rec[ColTableName], rec[ColColumnName], order)
	})
}

// ReadForeignKeys adds the foreign-key records in r to s, creating stub
// tables and columns for references that were never declared.
func ReadForeignKeys(r io.Reader, s *schema.Schema) error {
	return eachRecord(r, foreignHeader, func(line int, rec map[string]string) error {
		return s.AddForeignKey(rec[ColParentTable], rec[ColParentColumn], rec[ColReferencedTable], rec[ColReferencedColumn])
	})
}

// eachRecord maps every data row onto the header names in want. Blank lines
// are skipped by encoding/csv; rows with empty required values are rejected.
func eachRecord(r io.Reader, want []string, fn func(line int, rec map[string]string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return errors.New(errors.ErrCodeInvalidFormat, "empty key file, expected header %s", strings.Join(want, ","))
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, name := range want {
		if _, ok := index[name]; !ok {
			return errors.New(errors.ErrCodeInvalidFormat, "header is missing column %s", name)
		}
	}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse row")
		}
		line, _ := cr.FieldPos(0)

		rec := make(map[string]string, len(want))
		for _, name := range want {
			i := index[name]
			if i >= len(fields) || strings.TrimSpace(fields[i]) == "" {
				return errors.New(errors.ErrCodeInvalidInput, "line %d: missing %s", line, name)
			}
			rec[name] = strings.TrimSpace(fields[i])
		}
		if err := fn(line, rec); err != nil {
			if errors.GetCode(err) != "" {
				return err
			}
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", line)
		}
	}
}

// WritePrimaryKeys writes the primary keys of s in key-file format, tables by
// name and parts by key order.
func WritePrimaryKeys(w io.Writer, s *schema.Schema) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(primaryHeader); err != nil {
		return err
	}
	for _, t := range s.Tables() {
		for i, col := range t.PrimaryKeyParts() {
			if err := cw.Write([]string{t.Name, col, strconv.Itoa(i + 1)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForeignKeys writes every foreign-key reference of s in key-file
// format, tables by name and columns in insertion order.
func WriteForeignKeys(w io.Writer, s *schema.Schema) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(foreignHeader); err != nil {
		return err
	}
	for _, t := range s.Tables() {
		for _, c := range t.Columns() {
			for _, ref := range c.ForeignKeys {
				if err := cw.Write([]string{t.Name, c.Name, ref.Table, ref.Column}); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
