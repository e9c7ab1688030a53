package layout

import (
	"math"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// anchor is the point a ring search expands around.
type anchor struct {
	x, y   float64
	center bool
}

func (s *State) centerAnchor() anchor {
	return anchor{x: float64(s.canvas.CenterX), y: float64(s.canvas.CenterY), center: true}
}

func tableAnchor(t *schema.Table) anchor {
	return anchor{
		x: float64(t.X) + float64(t.Width)/2,
		y: float64(t.Y) + float64(t.Height)/2,
	}
}

// fits reports whether a w×h block fits inside the canvas borders.
func (s *State) fits(w, h int) bool {
	b := s.cfg.Border
	return w+2*b <= s.canvas.Width && h+2*b <= s.canvas.Height
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func (s *State) clampX(x, w int) int {
	return clamp(x, s.cfg.Border, s.canvas.Width-w-s.cfg.Border)
}

func (s *State) clampY(y, h int) int {
	return clamp(y, s.cfg.Border, s.canvas.Height-h-s.cfg.Border)
}

// search finds the top-left corner of a free w×h block on expanding rings
// around a. Rings run from ring.Start to the canvas diagonal; on each ring
// angles are probed from 0° in ring.AngleStep increments. The first free
// candidate wins. When no ring has room the canvas grows.
func (s *State) search(a anchor, w, h int, ring RingParams) (int, int, error) {
	if s.fits(w, h) {
		diag := math.Hypot(float64(s.canvas.Width), float64(s.canvas.Height))
		for r := ring.Start; float64(r) <= diag; r += ring.Step {
			for deg := 0; deg < 360; deg += ring.AngleStep {
				rad := float64(deg) * math.Pi / 180
				x := s.clampX(int(math.Round(a.x+float64(r)*math.Cos(rad)-float64(w)/2)), w)
				y := s.clampY(int(math.Round(a.y+float64(r)*math.Sin(rad)-float64(h)/2)), h)
				if s.tracker.IsFree(x, y, w, h) {
					return x, y, nil
				}
				if r == 0 {
					break
				}
			}
		}
	}
	return s.growToEdge(a, w, h)
}

// growToEdge grows the canvas in the dimension under pressure and tries the
// position next to the new edge, aligned with the anchor on the other axis,
// until that position is free.
func (s *State) growToEdge(a anchor, w, h int) (int, int, error) {
	b := s.cfg.Border
	for {
		var wide bool
		switch {
		case w+2*b > s.canvas.Width:
			wide = true
		case h+2*b > s.canvas.Height:
			wide = false
		default:
			wide = a.center || a.x > float64(s.canvas.Width)/2
		}

		var err error
		if wide {
			err = s.grow(s.cfg.GrowWidth, 0)
		} else {
			err = s.grow(0, s.cfg.GrowHeight)
		}
		if err != nil {
			return 0, 0, err
		}
		if !s.fits(w, h) {
			continue
		}

		var x, y int
		if wide {
			x = s.clampX(s.canvas.Width-w-s.cfg.EdgeInset, w)
			y = s.clampY(int(math.Round(a.y-float64(h)/2)), h)
		} else {
			x = s.clampX(int(math.Round(a.x-float64(w)/2)), w)
			y = s.clampY(s.canvas.Height-h-s.cfg.EdgeInset, h)
		}
		if s.tracker.IsFree(x, y, w, h) {
			return x, y, nil
		}
	}
}

// gridSearch scans from the bottom-left corner, rightward then upward in
// GridStep increments. When the canvas is exhausted it grows the height and
// scans along the new bottom edge.
func (s *State) gridSearch(w, h int) (int, int, error) {
	b, step := s.cfg.Border, s.cfg.GridStep
	for y := s.canvas.Height - h - b; y >= b; y -= step {
		for x := b; x+w+b <= s.canvas.Width; x += step {
			if s.tracker.IsFree(x, y, w, h) {
				return x, y, nil
			}
		}
	}

	for {
		var err error
		if w+2*b > s.canvas.Width {
			err = s.grow(s.cfg.GrowWidth, 0)
		} else {
			err = s.grow(0, s.cfg.GrowHeight)
		}
		if err != nil {
			return 0, 0, err
		}
		if !s.fits(w, h) {
			continue
		}
		y := s.clampY(s.canvas.Height-h-s.cfg.EdgeInset, h)
		for x := b; x+w+b <= s.canvas.Width; x += step {
			if s.tracker.IsFree(x, y, w, h) {
				return x, y, nil
			}
		}
	}
}

// grow enlarges the canvas, failing once MaxGrowths steps have been taken.
func (s *State) grow(dw, dh int) error {
	if s.cfg.MaxGrowths > 0 && s.growths >= s.cfg.MaxGrowths {
		return errors.New(errors.ErrCodeCanvasLimit,
			"canvas growth limit of %d reached at %dx%d", s.cfg.MaxGrowths, s.canvas.Width, s.canvas.Height)
	}
	s.canvas.Width += dw
	s.canvas.Height += dh
	s.growths++
	s.obs.OnGrow(s.canvas)
	return nil
}
