package render

import (
	"bytes"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
)

// MaxPixels bounds the PNG canvas (after scaling).
const MaxPixels = 64_000_000

// RenderPNG draws a raster preview of d: relation lines between table
// centers, then each table as a box with a shaded header and one text line
// per column.
func RenderPNG(d diagram.Diagram, opts Options) ([]byte, error) {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int(float64(d.Canvas.Width) * scale)
	h := int(float64(d.Canvas.Height) * scale)
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty canvas %dx%d", d.Canvas.Width, d.Canvas.Height)
	}
	if w*h > MaxPixels {
		return nil, errors.New(errors.ErrCodeInvalidInput, "png of %dx%d pixels exceeds limit of %d", w, h, MaxPixels)
	}

	m := d.Metrics
	if m.RowHeight <= 0 || m.HeaderHeight <= 0 {
		m = layout.DefaultMetrics()
	}

	dc := gg.NewContext(w, h)
	dc.Scale(scale, scale)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetRGB(0.55, 0.55, 0.6)
	dc.SetLineWidth(1.2)
	for _, r := range d.Relations {
		from, ok1 := d.Table(r.From)
		to, ok2 := d.Table(r.To)
		if !ok1 || !ok2 || r.From == r.To {
			continue
		}
		dc.DrawLine(from.CenterX(), from.CenterY(), to.CenterX(), to.CenterY())
		dc.Stroke()
	}

	for _, t := range d.Tables {
		drawTable(dc, t, m, opts.Compact)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func drawTable(dc *gg.Context, t diagram.Table, m layout.Metrics, compact bool) {
	x, y := float64(t.X), float64(t.Y)
	w, h := float64(t.Width), float64(t.Height)
	header := float64(m.HeaderHeight)
	pad := float64(m.PaddingWidth) / 2

	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetRGB(0.867, 0.894, 0.941)
	dc.DrawRectangle(x, y, w, header)
	dc.Fill()

	dc.SetRGB(0.3, 0.3, 0.35)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(t.Name, x+pad, y+header/2, 0, 0.5)
	if compact {
		return
	}

	row := float64(m.RowHeight)
	for i, c := range t.Columns {
		cy := y + header + float64(i)*row + row/2
		switch {
		case c.IsPrimary:
			dc.SetRGB(0.6, 0.1, 0.1)
		case c.IsForeign:
			dc.SetRGB(0.1, 0.2, 0.6)
		default:
			dc.SetRGB(0.15, 0.15, 0.15)
		}
		dc.DrawStringAnchored(c.Name, x+pad, cy, 0, 0.5)
	}
}
