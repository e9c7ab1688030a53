// Package pipeline runs the load → layout → render pipeline shared by the
// CLI and the HTTP API.
//
// # Stages
//
//  1. Load: read keys from a [source.Source] (CSV files or a live database)
//  2. Layout: place every table with [layout.Place] and build a [diagram.Diagram]
//  3. Render: produce the requested output formats
//
// Every stage goes through the runner's [cache.Cache]. Layouts are keyed by a
// hash of the loaded schema and the layout configuration; artifacts by a hash
// of the diagram and the render options. Loaded schemas are cached only when
// [Options.CacheSchema] is set, since a CSV source can change on disk under
// the same name.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, ds.Source(), pipeline.Options{
//	    Formats: []string{"xml", "svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	xml := res.Artifacts[render.FormatXML]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemaplot/pkg/cache"
	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/render"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// DefaultFormats are rendered when Options.Formats is empty.
var DefaultFormats = []string{string(render.FormatXML)}

// Options configures one pipeline run. The zero value lays out with
// [layout.DefaultConfig] and renders [DefaultFormats].
type Options struct {
	Layout  layout.Config `json:"layout"`
	Formats []string      `json:"formats,omitempty"`
	Compact bool          `json:"compact,omitempty"`
	Scale   float64       `json:"scale,omitempty"`

	// Refresh bypasses cache reads. Fresh results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// CacheSchema caches the loaded keys under the source name.
	CacheSchema bool `json:"cache_schema,omitempty"`

	Logger *log.Logger `json:"-"`

	formats   []render.Format
	validated bool
}

// Result is the output of a pipeline run.
type Result struct {
	// RunID identifies the run in log lines and API responses.
	RunID string

	Source      string
	Schema      *schema.Schema
	SchemaHash  string
	Diagram     diagram.Diagram
	DiagramHash string

	// Artifacts holds the rendered outputs by format.
	Artifacts map[render.Format][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds sizes and timings of a run.
type Stats struct {
	Tables      int
	ForeignKeys int
	Placed      int
	Growths     int
	Overlaps    int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	SchemaHit bool
	LayoutHit bool
	RenderHit bool // every artifact came from the cache
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout defaults and checks the layout configuration.
func (o *Options) ValidateForLayout() error {
	if o.Layout == (layout.Config{}) {
		o.Layout = layout.DefaultConfig()
	}
	o.setLogger()
	return o.Layout.Validate()
}

// ValidateForRender defaults and parses the output formats.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = DefaultFormats
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "scale must not be negative, got %g", o.Scale)
	}
	formats := make([]render.Format, 0, len(o.Formats))
	for _, name := range o.Formats {
		f, err := render.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}
	o.formats = formats
	o.setLogger()
	return nil
}

// RenderFormats returns the parsed formats. Valid after ValidateForRender.
func (o *Options) RenderFormats() []render.Format {
	return o.formats
}

// RenderOptions returns the renderer settings.
func (o *Options) RenderOptions() render.Options {
	return render.Options{Compact: o.Compact, Scale: o.Scale}
}

// ArtifactKeyOpts returns cache key options for one format.
func (o *Options) ArtifactKeyOpts(f render.Format) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: string(f), Compact: o.Compact}
	if f == render.FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
