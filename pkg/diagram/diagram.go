// Package diagram defines the serialized form of a laid-out ER diagram.
//
// A [Diagram] is the output contract of the layout pipeline: canvas size,
// the metrics used to size boxes, and every table with its final position,
// columns and primary key. It is what the JSON sink writes, what the HTTP
// API returns and what the renderers draw.
//
// Tables are sorted by name and relations by (from, to), so marshaling the
// same layout twice yields identical bytes.
package diagram

import (
	"slices"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Diagram is a fully positioned ER diagram.
type Diagram struct {
	Canvas    layout.Canvas  `json:"canvas"`
	Metrics   layout.Metrics `json:"metrics"`
	Tables    []Table        `json:"tables"`
	Relations []Relation     `json:"relations"`
	Stats     *Stats         `json:"stats,omitempty"`
}

// Table is a positioned table box.
type Table struct {
	Name            string   `json:"name"`
	X               int      `json:"x"`
	Y               int      `json:"y"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	Connections     int      `json:"connections"`
	Columns         []Column `json:"columns"`
	PrimaryKeyParts []string `json:"primary_key_parts,omitempty"`
}

// CenterX returns the horizontal center of the box.
func (t Table) CenterX() float64 { return float64(t.X) + float64(t.Width)/2 }

// CenterY returns the vertical center of the box.
func (t Table) CenterY() float64 { return float64(t.Y) + float64(t.Height)/2 }

// Column is a table column as drawn in the diagram.
type Column struct {
	Name        string      `json:"name"`
	IsPrimary   bool        `json:"is_primary"`
	IsForeign   bool        `json:"is_foreign"`
	ForeignKeys []Reference `json:"foreign_keys,omitempty"`
}

// Reference is the target of a foreign key.
type Reference struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Relation is a table-level foreign-key edge.
type Relation struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Columns []string `json:"columns"`
}

// Stats summarizes the layout run that produced the diagram.
type Stats struct {
	Placed           int     `json:"placed"`
	Growths          int     `json:"growths"`
	Overlaps         int     `json:"overlaps"`
	ConnectionLength float64 `json:"connection_length"`
	CenterCount      int     `json:"center_count"`
}

// FromSchema builds a diagram from a laid-out schema. When res is nil the
// canvas is the bounding box of the tables plus border, and no stats are
// attached.
func FromSchema(s *schema.Schema, metrics layout.Metrics, res *layout.Result) Diagram {
	d := Diagram{Metrics: metrics}
	for _, t := range s.Tables() {
		d.Tables = append(d.Tables, tableFromSchema(t))
	}

	var conn *layout.Connectivity
	if res != nil {
		conn = res.Connectivity
		d.Canvas = res.Canvas
		d.Stats = &Stats{
			Placed:           res.Placed,
			Growths:          res.Growths,
			Overlaps:         len(res.Overlaps),
			ConnectionLength: res.ConnectionLength,
			CenterCount:      res.CenterCount,
		}
	} else {
		conn = layout.Analyze(s)
		d.Canvas = d.Bounds(layout.DefaultConfig().Border)
	}
	for _, e := range conn.Edges {
		d.Relations = append(d.Relations, Relation{From: e.From, To: e.To, Columns: slices.Clone(e.Columns)})
	}
	sortRelations(d.Relations)
	return d
}

func tableFromSchema(t *schema.Table) Table {
	out := Table{
		Name:        t.Name,
		X:           t.X,
		Y:           t.Y,
		Width:       t.Width,
		Height:      t.Height,
		Connections: t.Connections,
	}
	if parts := t.PrimaryKeyParts(); len(parts) > 0 {
		out.PrimaryKeyParts = parts
	}
	for _, c := range t.Columns() {
		col := Column{Name: c.Name, IsPrimary: c.IsPrimary, IsForeign: c.IsForeign}
		for _, fk := range c.ForeignKeys {
			col.ForeignKeys = append(col.ForeignKeys, Reference{Table: fk.Table, Column: fk.Column})
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}

func sortRelations(rs []Relation) {
	slices.SortFunc(rs, func(a, b Relation) int {
		if n := strings.Compare(a.From, b.From); n != 0 {
			return n
		}
		return strings.Compare(a.To, b.To)
	})
}

// ToSchema rebuilds a schema from the diagram. Every table keeps its
// position and is marked placed.
func ToSchema(d Diagram) (*schema.Schema, error) {
	s := schema.New()
	for _, t := range d.Tables {
		if t.Name == "" {
			return nil, schema.ErrEmptyTableName
		}
		st := s.EnsureTable(t.Name)
		for _, c := range t.Columns {
			st.AddColumn(c.Name, c.IsPrimary, c.IsForeign)
		}
		for i, part := range t.PrimaryKeyParts {
			st.AddPrimaryKey(part, i+1)
		}
	}
	for _, t := range d.Tables {
		for _, c := range t.Columns {
			for _, fk := range c.ForeignKeys {
				if err := s.AddForeignKey(t.Name, c.Name, fk.Table, fk.Column); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, t := range d.Tables {
		st := s.Table(t.Name)
		st.X, st.Y, st.Width, st.Height = t.X, t.Y, t.Width, t.Height
		st.Placed = true
	}
	layout.Analyze(s)
	return s, nil
}

// Table returns the named table.
func (d Diagram) Table(name string) (Table, bool) {
	i, ok := slices.BinarySearchFunc(d.Tables, name, func(t Table, n string) int {
		return strings.Compare(t.Name, n)
	})
	if !ok {
		return Table{}, false
	}
	return d.Tables[i], true
}

// Bounds returns the smallest canvas that holds every table with border
// space on the right and bottom. The center is that of the bounds.
func (d Diagram) Bounds(border int) layout.Canvas {
	w, h := 0, 0
	for _, t := range d.Tables {
		w = max(w, t.X+t.Width+border)
		h = max(h, t.Y+t.Height+border)
	}
	return layout.Canvas{Width: w, Height: h, CenterX: w / 2, CenterY: h / 2}
}
