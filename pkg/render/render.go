package render

import (
	"bytes"
	"context"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	schemaio "github.com/matzehuels/schemaplot/pkg/io"
)

// Format names an output format.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
)

// Formats lists every supported format.
var Formats = []Format{FormatXML, FormatJSON, FormatDOT, FormatSVG, FormatPNG}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want one of xml, json, dot, svg, png)", s)
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXML:
		return "application/xml"
	case FormatJSON:
		return "application/json"
	case FormatDOT:
		return "text/vnd.graphviz"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Render produces d in format f.
func Render(ctx context.Context, d diagram.Diagram, f Format, opts Options) ([]byte, error) {
	switch f {
	case FormatJSON:
		return diagram.Marshal(d)
	case FormatXML:
		s, err := diagram.ToSchema(d)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "rebuild schema")
		}
		var buf bytes.Buffer
		if err := schemaio.WriteSQLDesigner(&buf, s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatDOT:
		return []byte(ToDOT(d, opts)), nil
	case FormatSVG:
		return RenderSVG(ctx, ToDOT(d, opts))
	case FormatPNG:
		return RenderPNG(d, opts)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "format %q", f)
}
