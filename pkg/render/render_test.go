package render

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

func testDiagram(t *testing.T) diagram.Diagram {
	t.Helper()
	s := schema.New()
	_ = s.AddPrimaryKey("authors", "id", 1)
	_ = s.AddForeignKey("books", "author_id", "authors", "id")
	_ = s.AddForeignKey("books", "publisher_id", "publishers", "id")
	_ = s.AddForeignKey("r&d", "book_id", "books", "id")
	cfg := layout.DefaultConfig()
	cfg.CanvasWidth, cfg.CanvasHeight = 800, 600
	cfg.CenterReserve = 100
	res, err := layout.Place(s, cfg)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	return diagram.FromSchema(s, cfg.Metrics, res)
}

func TestToDOT(t *testing.T) {
	d := testDiagram(t)
	dot := ToDOT(d, Options{})

	if !strings.HasPrefix(dot, "digraph schema {") || !strings.HasSuffix(dot, "}\n") {
		t.Fatalf("not a digraph:\n%s", dot)
	}
	if !strings.Contains(dot, "layout=neato;") || !strings.Contains(dot, "inputscale=72") {
		t.Error("missing neato settings")
	}

	books, _ := d.Table("books")
	pos := "pos=\"" + num(books.CenterX()) + "," + num(float64(d.Canvas.Height)-books.CenterY()) + "!\""
	if !strings.Contains(dot, pos) {
		t.Errorf("books not pinned at %s:\n%s", pos, dot)
	}
	if !strings.Contains(dot, `"books" -> "authors" [tooltip="author_id"];`) {
		t.Error("missing books -> authors relation")
	}
	if !strings.Contains(dot, "<B>r&amp;d</B>") {
		t.Error("table name not escaped in label")
	}
	if !strings.Contains(dot, "<U>id</U>") {
		t.Error("primary key column not underlined")
	}
	if !strings.Contains(dot, "<I>author_id</I>") {
		t.Error("foreign key column not in italics")
	}

	compact := ToDOT(d, Options{Compact: true})
	if strings.Contains(compact, "author_id</I>") {
		t.Error("compact output should omit column rows")
	}
}

func TestToDOTDeterministic(t *testing.T) {
	a := ToDOT(testDiagram(t), Options{})
	b := ToDOT(testDiagram(t), Options{})
	if a != b {
		t.Error("DOT output differs between runs")
	}
}

func TestRenderPNG(t *testing.T) {
	d := testDiagram(t)
	out, err := RenderPNG(d, Options{Scale: 0.5})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != d.Canvas.Width/2 || b.Dy() != d.Canvas.Height/2 {
		t.Errorf("image size = %dx%d, want %dx%d", b.Dx(), b.Dy(), d.Canvas.Width/2, d.Canvas.Height/2)
	}

	// the header of every table is shaded
	books, _ := d.Table("books")
	r, g, bl, _ := img.At((books.X+books.Width/2)/2, (books.Y+2)/2).RGBA()
	if r == 0xffff && g == 0xffff && bl == 0xffff {
		t.Error("table header pixel is plain white")
	}
}

func TestRenderPNGLimits(t *testing.T) {
	if _, err := RenderPNG(diagram.Diagram{}, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty canvas err = %v", err)
	}
	huge := diagram.Diagram{Canvas: layout.Canvas{Width: 20000, Height: 20000}}
	if _, err := RenderPNG(huge, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("huge canvas err = %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{" PNG ", FormatPNG, false},
		{"Xml", FormatXML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
	if FormatSVG.ContentType() != "image/svg+xml" || FormatPNG.Ext() != ".png" {
		t.Error("format metadata mismatch")
	}
}

func TestRender(t *testing.T) {
	d := testDiagram(t)
	ctx := context.Background()

	out, err := Render(ctx, d, FormatJSON, Options{})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	back, err := diagram.Unmarshal(out)
	if err != nil || len(back.Tables) != len(d.Tables) {
		t.Errorf("json round trip: %v, %d tables", err, len(back.Tables))
	}

	out, err = Render(ctx, d, FormatXML, Options{})
	if err != nil {
		t.Fatalf("xml: %v", err)
	}
	if !bytes.Contains(out, []byte(`name="books">`)) {
		t.Error("xml output missing books table")
	}

	if _, err := Render(ctx, d, Format("gif"), Options{}); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("unknown format err = %v", err)
	}
}

func TestRenderSVG(t *testing.T) {
	d := testDiagram(t)
	svg, err := RenderSVG(context.Background(), ToDOT(d, Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(svg), []byte("<?xml")) && !bytes.Contains(svg, []byte("<svg")) {
		t.Fatalf("output is not svg: %.80s", svg)
	}
	if !bytes.Contains(svg, []byte("publishers")) {
		t.Error("svg missing table name")
	}
}
