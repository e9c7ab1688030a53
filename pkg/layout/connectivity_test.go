package layout

import (
	"reflect"
	"slices"
	"testing"

	"github.com/matzehuels/schemaplot/pkg/schema"
)

// shopSchema has a hub (orders) with three single children, a
// self-referencing table and an orphan.
func shopSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.AddPrimaryKey("tags", "id", 1))
	must(s.AddForeignKey("orders", "customer_id", "customers", "id"))
	must(s.AddForeignKey("orders", "billing_customer_id", "customers", "id"))
	must(s.AddForeignKey("orders", "product_id", "products", "id"))
	must(s.AddForeignKey("notes", "parent_id", "notes", "id"))
	must(s.AddForeignKey("audit", "order_id", "orders", "id"))
	return s
}

func TestAnalyzeDegrees(t *testing.T) {
	s := shopSchema(t)
	c := Analyze(s)

	want := map[string]int{"audit": 1, "customers": 1, "notes": 1, "orders": 3, "products": 1, "tags": 0}
	for name, conns := range want {
		if got := s.Table(name).Connections; got != conns {
			t.Errorf("%s.Connections = %d, want %d", name, got, conns)
		}
	}

	if c.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", c.EdgeCount())
	}

	sumOut := 0
	for _, n := range c.Outgoing {
		sumOut += n
	}
	if sumOut != c.EdgeCount() {
		t.Errorf("sum of outgoing = %d, want EdgeCount %d", sumOut, c.EdgeCount())
	}

	if c.Incoming["notes"] != 0 {
		t.Errorf("self reference counted as incoming: %d", c.Incoming["notes"])
	}
	if c.Incoming["customers"] != 1 {
		t.Errorf("Incoming[customers] = %d, want 1 (two columns, one table)", c.Incoming["customers"])
	}
}

func TestAnalyzeEdgeColumns(t *testing.T) {
	c := Analyze(shopSchema(t))
	for _, e := range c.Edges {
		if e.From == "orders" && e.To == "customers" {
			if !slices.Equal(e.Columns, []string{"customer_id", "billing_customer_id"}) {
				t.Errorf("Columns = %v, want [customer_id billing_customer_id]", e.Columns)
			}
			return
		}
	}
	t.Fatal("edge orders -> customers not found")
}

func TestAnalyzeParents(t *testing.T) {
	c := Analyze(shopSchema(t))

	wantParent := map[string]string{"audit": "orders", "customers": "orders", "products": "orders"}
	if !reflect.DeepEqual(c.Parent, wantParent) {
		t.Errorf("Parent = %v, want %v", c.Parent, wantParent)
	}
	if got := c.Children["orders"]; !slices.Equal(got, []string{"audit", "customers", "products"}) {
		t.Errorf("Children[orders] = %v, want [audit customers products]", got)
	}
	if _, ok := c.Parent["notes"]; ok {
		t.Error("self-referencing table should have no parent")
	}
}

func TestAnalyzePairOfSingles(t *testing.T) {
	s := schema.New()
	_ = s.AddForeignKey("x", "y_id", "y", "id")
	c := Analyze(s)

	if c.Parent["x"] != "y" || c.Parent["y"] != "x" {
		t.Errorf("Parent = %v, want x<->y", c.Parent)
	}
}

func TestAnalyzeMutualReference(t *testing.T) {
	s := schema.New()
	_ = s.AddForeignKey("a", "b_id", "b", "id")
	_ = s.AddForeignKey("b", "a_id", "a", "id")
	c := Analyze(s)

	if s.Table("a").Connections != 2 || s.Table("b").Connections != 2 {
		t.Errorf("connections = (%d, %d), want (2, 2)", s.Table("a").Connections, s.Table("b").Connections)
	}
	if got := c.EdgesBetween("a", "b"); got != 2 {
		t.Errorf("EdgesBetween = %d, want 2", got)
	}
	if got := c.Pairs(); len(got) != 1 {
		t.Errorf("Pairs() = %v, want one pair", got)
	}
}

func TestNeighborsAndPairs(t *testing.T) {
	c := Analyze(shopSchema(t))

	if got := c.Neighbors("orders"); !slices.Equal(got, []string{"audit", "customers", "products"}) {
		t.Errorf("Neighbors(orders) = %v", got)
	}
	if got := c.Neighbors("notes"); len(got) != 0 {
		t.Errorf("Neighbors(notes) = %v, want none", got)
	}

	want := [][2]string{{"audit", "orders"}, {"customers", "orders"}, {"orders", "products"}}
	if got := c.Pairs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs() = %v, want %v", got, want)
	}
}

func TestBlock(t *testing.T) {
	s := shopSchema(t)
	ApplyDimensions(s, DefaultMetrics())
	c := Analyze(s)

	wantW, wantH := s.Table("orders").Width, s.Table("orders").Height
	for _, name := range []string{"audit", "customers", "products"} {
		child := s.Table(name)
		wantW = max(wantW, child.Width)
		wantH += child.Height
	}
	w, h := c.Block("orders")
	if w != wantW || h != wantH {
		t.Errorf("Block(orders) = %dx%d, want %dx%d", w, h, wantW, wantH)
	}

	if w, h := c.Block("tags"); w != s.Table("tags").Width || h != s.Table("tags").Height {
		t.Errorf("Block(tags) = %dx%d, want table size", w, h)
	}
}

func TestRanked(t *testing.T) {
	s := shopSchema(t)
	Analyze(s)

	var names []string
	for _, tbl := range Ranked(s) {
		names = append(names, tbl.Name)
	}
	want := []string{"orders", "audit", "customers", "notes", "products", "tags"}
	if !slices.Equal(names, want) {
		t.Errorf("Ranked() = %v, want %v", names, want)
	}
}
