package io

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="utf-8" ?>` + "\n"
	xmlComment     = "<!-- SQL XML created by schemaplot -->\n"

	// KeyTypePrimary is the key type written for primary keys.
	KeyTypePrimary = "PRIMARY"
)

type sqlDocument struct {
	XMLName   xml.Name   `xml:"sql"`
	Datatypes *datatypes `xml:"datatypes,omitempty"`
	Tables    []xmlTable `xml:"table"`
}

type datatypes struct {
	DB     string      `xml:"db,attr"`
	Groups []typeGroup `xml:"group"`
}

type typeGroup struct {
	Label string     `xml:"label,attr"`
	Color string     `xml:"color,attr"`
	Types []dataType `xml:"type"`
}

type dataType struct {
	Label  string `xml:"label,attr"`
	Length int    `xml:"length,attr"`
	SQL    string `xml:"sql,attr"`
	Re     string `xml:"re,attr,omitempty"`
	Quote  string `xml:"quote,attr"`
}

type xmlTable struct {
	X    int      `xml:"x,attr"`
	Y    int      `xml:"y,attr"`
	Name string   `xml:"name,attr"`
	Rows []xmlRow `xml:"row"`
	Keys []xmlKey `xml:"key"`
}

type xmlRow struct {
	Name          string        `xml:"name,attr"`
	Null          string        `xml:"null,attr"`
	AutoIncrement string        `xml:"autoincrement,attr"`
	DataType      string        `xml:"datatype"`
	Default       string        `xml:"default"`
	Relations     []xmlRelation `xml:"relation"`
}

type xmlRelation struct {
	Table string `xml:"table,attr"`
	Row   string `xml:"row,attr"`
}

type xmlKey struct {
	Type  string   `xml:"type,attr"`
	Name  string   `xml:"name,attr"`
	Parts []string `xml:"part"`
}

func mysqlDatatypes() *datatypes {
	return &datatypes{
		DB: "mysql",
		Groups: []typeGroup{
			{Label: "Numeric", Color: "rgb(238,238,170)", Types: []dataType{
				{Label: "Integer", SQL: "INTEGER"},
				{Label: "TINYINT", SQL: "TINYINT"},
				{Label: "SMALLINT", SQL: "SMALLINT"},
				{Label: "MEDIUMINT", SQL: "MEDIUMINT"},
				{Label: "INT", SQL: "INT"},
				{Label: "BIGINT", SQL: "BIGINT"},
				{Label: "Decimal", Length: 1, SQL: "DECIMAL", Re: "DEC"},
				{Label: "Single precision", SQL: "FLOAT"},
				{Label: "Double precision", SQL: "DOUBLE", Re: "DOUBLE"},
			}},
			{Label: "Character", Color: "rgb(255,200,200)", Types: []dataType{
				{Label: "Char", Length: 1, SQL: "CHAR", Quote: "'"},
				{Label: "Varchar", Length: 1, SQL: "VARCHAR", Quote: "'"},
				{Label: "Text", SQL: "MEDIUMTEXT", Re: "TEXT", Quote: "'"},
				{Label: "Binary", Length: 1, SQL: "BINARY", Quote: "'"},
				{Label: "Varbinary", Length: 1, SQL: "VARBINARY", Quote: "'"},
				{Label: "BLOB", SQL: "BLOB", Re: "BLOB", Quote: "'"},
			}},
			{Label: "Date & Time", Color: "rgb(200,255,200)", Types: []dataType{
				{Label: "Date", SQL: "DATE", Quote: "'"},
				{Label: "Time", SQL: "TIME", Quote: "'"},
				{Label: "Datetime", SQL: "DATETIME", Quote: "'"},
				{Label: "Year", SQL: "YEAR"},
				{Label: "Timestamp", SQL: "TIMESTAMP", Quote: "'"},
			}},
			{Label: "Miscellaneous", Color: "rgb(200,200,255)", Types: []dataType{
				{Label: "ENUM", SQL: "ENUM"},
				{Label: "SET", SQL: "SET"},
				{Label: "Bit", SQL: "bit"},
			}},
		},
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// WriteSQLDesigner writes s as a WWW SQL Designer document. Table positions
// are taken as they are; unplaced tables are written at their zero position.
func WriteSQLDesigner(w io.Writer, s *schema.Schema) error {
	doc := sqlDocument{Datatypes: mysqlDatatypes()}
	for _, t := range layout.Ranked(s) {
		xt := xmlTable{X: t.X, Y: t.Y, Name: t.Name}
		for _, c := range t.Columns() {
			row := xmlRow{
				Name:          c.Name,
				Null:          flag(c.Nullable),
				AutoIncrement: flag(c.AutoIncrement),
				DataType:      c.DataType,
				Default:       c.Default,
			}
			for _, ref := range c.ForeignKeys {
				row.Relations = append(row.Relations, xmlRelation{Table: ref.Table, Row: ref.Column})
			}
			xt.Rows = append(xt.Rows, row)
		}
		if parts := t.PrimaryKeyParts(); len(parts) > 0 {
			xt.Keys = append(xt.Keys, xmlKey{Type: KeyTypePrimary, Parts: parts})
		}
		doc.Tables = append(doc.Tables, xt)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	buf.WriteString(xmlComment)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode sql designer xml: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteSQLDesignerFile writes s to path, replacing any existing file.
func WriteSQLDesignerFile(path string, s *schema.Schema) error {
	var buf bytes.Buffer
	if err := WriteSQLDesigner(&buf, s); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadSQLDesigner parses a WWW SQL Designer document. Tables are marked as
// placed at their stored position; sizes are left for the caller to compute.
func ReadSQLDesigner(r io.Reader) (*schema.Schema, error) {
	var doc sqlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode sql designer xml")
	}

	s := schema.New()
	for _, xt := range doc.Tables {
		if xt.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "table without name")
		}
		t := s.EnsureTable(xt.Name)
		t.X, t.Y = xt.X, xt.Y
		t.Placed = true
		for _, row := range xt.Rows {
			if row.Name == "" {
				return nil, errors.New(errors.ErrCodeInvalidInput, "table %s: row without name", xt.Name)
			}
			c := t.AddColumn(row.Name, false, false)
			c.Nullable = row.Null == "1"
			c.AutoIncrement = row.AutoIncrement == "1"
			if row.DataType != "" {
				c.DataType = row.DataType
			}
			if row.Default != "" {
				c.Default = row.Default
			}
		}
	}

	for _, xt := range doc.Tables {
		for _, k := range xt.Keys {
			if k.Type != KeyTypePrimary {
				continue
			}
			for i, part := range k.Parts {
				if err := s.AddPrimaryKey(xt.Name, part, i+1); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "table %s key", xt.Name)
				}
			}
		}
		for _, row := range xt.Rows {
			for _, rel := range row.Relations {
				if err := s.AddForeignKey(xt.Name, row.Name, rel.Table, rel.Row); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "table %s row %s relation", xt.Name, row.Name)
				}
			}
		}
	}
	return s, nil
}

// ReadSQLDesignerFile reads a WWW SQL Designer document from path.
func ReadSQLDesignerFile(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "diagram %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadSQLDesigner(f)
}
