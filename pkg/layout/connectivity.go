package layout

import (
	"slices"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Edge is a table-level foreign-key relationship: From references To through
// one or more columns. A table referencing itself yields an edge with
// From == To.
type Edge struct {
	From    string
	To      string
	Columns []string
}

// Connectivity holds the degree analysis of a schema.
//
// Edges are directed (source table to referenced table) but connection
// counts treat them as undirected: a table's Connections is the number of
// distinct tables it references plus the number of other tables referencing
// it.
type Connectivity struct {
	Edges []Edge

	Outgoing map[string]int
	Incoming map[string]int

	// Parent maps a single child (Connections == 1) to its only neighbor.
	// Children whose only connection is to themselves have no entry.
	Parent map[string]string

	// Children maps a parent to its single children, sorted by name.
	Children map[string][]string

	tables  map[string]*schema.Table
	edgeSet map[[2]string]bool
}

// Analyze computes connection degrees, writes them to Table.Connections and
// resolves single-child parents.
func Analyze(s *schema.Schema) *Connectivity {
	c := &Connectivity{
		Outgoing: make(map[string]int),
		Incoming: make(map[string]int),
		Parent:   make(map[string]string),
		Children: make(map[string][]string),
		tables:   make(map[string]*schema.Table),
		edgeSet:  make(map[[2]string]bool),
	}

	tables := s.Tables()
	for _, t := range tables {
		c.tables[t.Name] = t
	}

	// Outgoing edges, one per distinct referenced table.
	for _, t := range tables {
		cols := make(map[string][]string)
		for _, col := range t.Columns() {
			for _, fk := range col.ForeignKeys {
				if !slices.Contains(cols[fk.Table], col.Name) {
					cols[fk.Table] = append(cols[fk.Table], col.Name)
				}
			}
		}
		for _, ref := range t.References() {
			c.Edges = append(c.Edges, Edge{From: t.Name, To: ref, Columns: cols[ref]})
			c.edgeSet[[2]string{t.Name, ref}] = true
			c.Outgoing[t.Name]++
			if ref != t.Name {
				c.Incoming[ref]++
			}
		}
	}

	for _, t := range tables {
		t.Connections = c.Outgoing[t.Name] + c.Incoming[t.Name]
	}

	for _, t := range tables {
		if t.Connections != 1 {
			continue
		}
		parent := c.findParent(t.Name)
		if parent == "" {
			continue
		}
		c.Parent[t.Name] = parent
		c.Children[parent] = append(c.Children[parent], t.Name)
	}
	// Tables were visited in name order, so each child list is already sorted.

	return c
}

// findParent returns the only neighbor of a single child: its referenced
// table if it has one, otherwise the table referencing it.
func (c *Connectivity) findParent(name string) string {
	for _, e := range c.Edges {
		if e.From == name && e.To != name {
			return e.To
		}
	}
	for _, e := range c.Edges {
		if e.To == name && e.From != name {
			return e.From
		}
	}
	return ""
}

// EdgeCount returns the number of table-level edges.
func (c *Connectivity) EdgeCount() int { return len(c.Edges) }

// HasEdge reports whether from references to.
func (c *Connectivity) HasEdge(from, to string) bool {
	return c.edgeSet[[2]string{from, to}]
}

// EdgesBetween counts edges joining a and b in either direction.
func (c *Connectivity) EdgesBetween(a, b string) int {
	n := 0
	if c.HasEdge(a, b) {
		n++
	}
	if a != b && c.HasEdge(b, a) {
		n++
	}
	return n
}

// Connections returns the total degree of the named table.
func (c *Connectivity) Connections(name string) int {
	return c.Outgoing[name] + c.Incoming[name]
}

// Neighbors returns the distinct tables connected to name in either
// direction, sorted by name. The table itself is never included.
func (c *Connectivity) Neighbors(name string) []string {
	var out []string
	for _, e := range c.Edges {
		var other string
		switch {
		case e.From == name && e.To != name:
			other = e.To
		case e.To == name && e.From != name:
			other = e.From
		default:
			continue
		}
		if !slices.Contains(out, other) {
			out = append(out, other)
		}
	}
	slices.Sort(out)
	return out
}

// Block returns the combined size of parent and its stacked single
// children: the widest member by the summed heights.
func (c *Connectivity) Block(parent string) (width, height int) {
	p := c.tables[parent]
	if p == nil {
		return 0, 0
	}
	width, height = p.Width, p.Height
	for _, name := range c.Children[parent] {
		child := c.tables[name]
		width = max(width, child.Width)
		height += child.Height
	}
	return width, height
}

// Pairs returns each connected pair of distinct tables once, as
// lexicographically ordered name pairs sorted ascending.
func (c *Connectivity) Pairs() [][2]string {
	seen := make(map[[2]string]bool)
	var out [][2]string
	for _, e := range c.Edges {
		if e.From == e.To {
			continue
		}
		p := [2]string{e.From, e.To}
		if p[1] < p[0] {
			p[0], p[1] = p[1], p[0]
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b [2]string) int {
		if n := strings.Compare(a[0], b[0]); n != 0 {
			return n
		}
		return strings.Compare(a[1], b[1])
	})
	return out
}

// Rank orders tables by connection count descending, then name ascending.
func Rank(a, b *schema.Table) int {
	if a.Connections != b.Connections {
		return b.Connections - a.Connections
	}
	return strings.Compare(a.Name, b.Name)
}

// Ranked returns the tables of s sorted with [Rank].
func Ranked(s *schema.Schema) []*schema.Table {
	tables := s.Tables()
	slices.SortStableFunc(tables, Rank)
	return tables
}
