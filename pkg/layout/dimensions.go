package layout

import (
	"math"

	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Dimensions returns the box size of a table for the given metrics.
//
// The width fits the longest of the table name and its column names; the
// height fits a header plus one row per column. Both are rounded up and
// clamped to the metric minimums, so a table with no columns still renders.
func Dimensions(t *schema.Table, m Metrics) (width, height int) {
	longest := len(t.Name)
	for _, c := range t.Columns() {
		longest = max(longest, len(c.Name))
	}

	width = int(math.Ceil(float64(longest)*m.CharWidth + float64(m.PaddingWidth)))
	height = m.HeaderHeight + t.ColumnCount()*m.RowHeight + m.PaddingHeight

	return max(m.MinWidth, width), max(m.MinHeight, height)
}

// ApplyDimensions sets Width and Height on every table of s.
func ApplyDimensions(s *schema.Schema, m Metrics) {
	for _, t := range s.Tables() {
		t.Width, t.Height = Dimensions(t, m)
	}
}
