package layout

import (
	"fmt"

	"github.com/matzehuels/schemaplot/pkg/errors"
)

// Metrics are the text metrics used to size table boxes.
type Metrics struct {
	CharWidth     float64 `toml:"char_width" json:"char_width"`
	RowHeight     int     `toml:"row_height" json:"row_height"`
	HeaderHeight  int     `toml:"header_height" json:"header_height"`
	MinWidth      int     `toml:"min_width" json:"min_width"`
	MinHeight     int     `toml:"min_height" json:"min_height"`
	PaddingWidth  int     `toml:"padding_width" json:"padding_width"`
	PaddingHeight int     `toml:"padding_height" json:"padding_height"`
}

// DefaultMetrics returns conservative metrics for a monospace 12px font.
func DefaultMetrics() Metrics {
	return Metrics{
		CharWidth:     9.0,
		RowHeight:     18,
		HeaderHeight:  28,
		MinWidth:      140,
		MinHeight:     40,
		PaddingWidth:  24,
		PaddingHeight: 12,
	}
}

// RingParams controls one flavor of expanding-ring search.
type RingParams struct {
	Start     int `toml:"start" json:"start"`
	Step      int `toml:"step" json:"step"`
	AngleStep int `toml:"angle_step" json:"angle_step"`
}

// Config holds every tunable of a layout run.
type Config struct {
	Metrics Metrics `toml:"metrics" json:"metrics"`

	// Margin inflates every occupied area, so placed tables keep at least
	// this distance from each other.
	Margin int `toml:"margin" json:"margin"`

	CanvasWidth  int `toml:"canvas_width" json:"canvas_width"`
	CanvasHeight int `toml:"canvas_height" json:"canvas_height"`

	// Border is the minimum distance between a searched position and the
	// canvas edge.
	Border int `toml:"border" json:"border"`

	// CenterReserve is the half-extent of the square around the canvas
	// center that orphans stay out of.
	CenterReserve int `toml:"center_reserve" json:"center_reserve"`

	OrphanRowSize int `toml:"orphan_row_size" json:"orphan_row_size"`

	Center RingParams `toml:"center" json:"center"`
	Near   RingParams `toml:"near" json:"near"`

	GridStep   int `toml:"grid_step" json:"grid_step"`
	GrowWidth  int `toml:"grow_width" json:"grow_width"`
	GrowHeight int `toml:"grow_height" json:"grow_height"`
	EdgeInset  int `toml:"edge_inset" json:"edge_inset"`

	// MaxGrowths caps canvas growth steps per run. Zero disables the cap.
	MaxGrowths int `toml:"max_growths" json:"max_growths"`

	// MaxTables stops placement after that many tables. Zero places all.
	MaxTables int `toml:"max_tables" json:"max_tables"`
}

// DefaultConfig returns the standard layout configuration.
func DefaultConfig() Config {
	return Config{
		Metrics:       DefaultMetrics(),
		Margin:        10,
		CanvasWidth:   2400,
		CanvasHeight:  1800,
		Border:        10,
		CenterReserve: 300,
		OrphanRowSize: 4,
		Center:        RingParams{Start: 0, Step: 20, AngleStep: 3},
		Near:          RingParams{Start: 60, Step: 15, AngleStep: 2},
		GridStep:      50,
		GrowWidth:     400,
		GrowHeight:    300,
		EdgeInset:     20,
		MaxGrowths:    1000,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"metrics.char_width", c.Metrics.CharWidth > 0},
		{"metrics.row_height", c.Metrics.RowHeight >= 0},
		{"metrics.min_width", c.Metrics.MinWidth > 0},
		{"metrics.min_height", c.Metrics.MinHeight > 0},
		{"margin", c.Margin >= 0},
		{"canvas_width", c.CanvasWidth > 0},
		{"canvas_height", c.CanvasHeight > 0},
		{"border", c.Border >= 0},
		{"center_reserve", c.CenterReserve >= 0},
		{"orphan_row_size", c.OrphanRowSize > 0},
		{"center.start", c.Center.Start >= 0},
		{"center.step", c.Center.Step > 0},
		{"center.angle_step", c.Center.AngleStep > 0 && c.Center.AngleStep <= 360},
		{"near.start", c.Near.Start >= 0},
		{"near.step", c.Near.Step > 0},
		{"near.angle_step", c.Near.AngleStep > 0 && c.Near.AngleStep <= 360},
		{"grid_step", c.GridStep > 0},
		{"grow_width", c.GrowWidth > 0},
		{"grow_height", c.GrowHeight > 0},
		{"edge_inset", c.EdgeInset >= 0},
		{"max_growths", c.MaxGrowths >= 0},
		{"max_tables", c.MaxTables >= 0},
	}
	for _, ch := range checks {
		if !ch.ok {
			return errors.New(errors.ErrCodeInvalidConfig, "invalid layout setting %s", ch.name)
		}
	}
	return nil
}

// String renders the settings that shape a run, for log lines and cache keys.
func (c Config) String() string {
	return fmt.Sprintf("canvas=%dx%d margin=%d border=%d reserve=%d rows=%d center=%v near=%v grid=%d grow=%dx%d inset=%d cap=%d max=%d metrics=%+v",
		c.CanvasWidth, c.CanvasHeight, c.Margin, c.Border, c.CenterReserve, c.OrphanRowSize,
		c.Center, c.Near, c.GridStep, c.GrowWidth, c.GrowHeight, c.EdgeInset, c.MaxGrowths, c.MaxTables, c.Metrics)
}
