package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/diagram"
)

// Options configures rendering.
type Options struct {
	// Compact draws table headers only, without column rows.
	Compact bool
	// Scale multiplies the PNG resolution. Zero means 1.
	Scale float64
}

const (
	headerColor = "#dde4f0"
	edgeColor   = "#8c8c99"
	pointsPerIn = 72.0
)

// ToDOT converts a positioned diagram to Graphviz DOT for the neato engine.
// Every node is pinned to its table center and sized to its table box.
func ToDOT(d diagram.Diagram, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph schema {\n")
	buf.WriteString("  layout=neato;\n")
	fmt.Fprintf(&buf, "  graph [inputscale=%g, notranslate=true, overlap=true, splines=true, bgcolor=\"white\", bb=\"0,0,%d,%d\"];\n",
		pointsPerIn, d.Canvas.Width, d.Canvas.Height)
	buf.WriteString("  node [shape=plaintext, fixedsize=true, fontname=\"Helvetica\", fontsize=11, margin=0];\n")
	fmt.Fprintf(&buf, "  edge [color=%q, arrowsize=0.6];\n", edgeColor)
	buf.WriteString("\n")

	for _, t := range d.Tables {
		attrs := []string{
			"pos=\"" + num(t.CenterX()) + "," + num(float64(d.Canvas.Height)-t.CenterY()) + "!\"",
			"width=" + num(float64(t.Width)/pointsPerIn),
			"height=" + num(float64(t.Height)/pointsPerIn),
			"label=<" + tableLabel(t, opts.Compact) + ">",
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", t.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, r := range d.Relations {
		fmt.Fprintf(&buf, "  %q -> %q [tooltip=%q];\n", r.From, r.To, strings.Join(r.Columns, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// tableLabel builds an HTML-like label: a header cell with the table name,
// then one row per column. Primary-key columns are underlined and foreign-key
// columns are set in italics.
func tableLabel(t diagram.Table, compact bool) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="1" CELLBORDER="0" CELLSPACING="0" CELLPADDING="2" BGCOLOR="white">`)
	fmt.Fprintf(&b, `<TR><TD BGCOLOR="%s"><B>%s</B></TD></TR>`, headerColor, html.EscapeString(t.Name))
	if !compact {
		for _, c := range t.Columns {
			text := html.EscapeString(c.Name)
			if c.IsForeign {
				text = "<I>" + text + "</I>"
			}
			if c.IsPrimary {
				text = "<U>" + text + "</U>"
			}
			fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT">%s</TD></TR>`, text)
		}
	}
	b.WriteString(`</TABLE>`)
	return b.String()
}
