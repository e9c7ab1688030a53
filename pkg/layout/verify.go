package layout

import (
	"math"

	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Rect is a table's placed rectangle.
type Rect struct {
	X, Y, Width, Height int
}

func rectOf(t *schema.Table) Rect {
	return Rect{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}
}

func (r Rect) overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Overlap records two placed tables whose rectangles intersect.
type Overlap struct {
	A, B         string
	RectA, RectB Rect
}

// VerifyNoOverlaps checks every pair of placed tables for an exact
// intersection. Touching edges do not count. The margin is not applied.
func VerifyNoOverlaps(s *schema.Schema) []Overlap {
	var placed []*schema.Table
	for _, t := range s.Tables() {
		if t.Placed {
			placed = append(placed, t)
		}
	}

	var out []Overlap
	for i, a := range placed {
		ra := rectOf(a)
		for _, b := range placed[i+1:] {
			if rb := rectOf(b); ra.overlaps(rb) {
				out = append(out, Overlap{A: a.Name, B: b.Name, RectA: ra, RectB: rb})
			}
		}
	}
	return out
}

// ConnectionLength sums the center-to-center distance of every connected
// pair of distinct tables. Pairs with an unplaced table are skipped.
func ConnectionLength(s *schema.Schema, c *Connectivity) float64 {
	total := 0.0
	for _, p := range c.Pairs() {
		a, b := s.Table(p[0]), s.Table(p[1])
		if a == nil || b == nil || !a.Placed || !b.Placed {
			continue
		}
		ax, ay := float64(a.X)+float64(a.Width)/2, float64(a.Y)+float64(a.Height)/2
		bx, by := float64(b.X)+float64(b.Width)/2, float64(b.Y)+float64(b.Height)/2
		total += math.Hypot(ax-bx, ay-by)
	}
	return total
}

// CenterCount returns how many placed tables have their center inside the
// square of half-extent reserve around the canvas center.
func CenterCount(s *schema.Schema, c Canvas, reserve int) int {
	n := 0
	for _, t := range s.Tables() {
		if !t.Placed {
			continue
		}
		cx, cy := t.X+t.Width/2, t.Y+t.Height/2
		if cx >= c.CenterX-reserve && cx <= c.CenterX+reserve &&
			cy >= c.CenterY-reserve && cy <= c.CenterY+reserve {
			n++
		}
	}
	return n
}
