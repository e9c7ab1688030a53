package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/schemaplot/pkg/cache"
	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/observability"
	"github.com/matzehuels/schemaplot/pkg/render"
	"github.com/matzehuels/schemaplot/pkg/schema"
	"github.com/matzehuels/schemaplot/pkg/source"
)

// Runner executes pipeline stages through a cache.
//
// A Runner holds no per-run state, so one Runner can serve concurrent runs
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer
// selects [cache.DefaultKeyer] and a nil logger selects the default logger.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute loads keys from src, lays them out and renders every requested
// format.
func (r *Runner) Execute(ctx context.Context, src source.Source, opts Options) (*Result, error) {
	opts.Logger = r.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	opts.Logger = r.Logger.With("run", runID[:8])

	res := &Result{RunID: runID, Source: src.Name()}

	start := time.Now()
	s, hit, err := r.LoadWithCacheInfo(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Schema = s
	res.Stats.LoadTime = time.Since(start)
	res.Stats.Tables = s.TableCount()
	res.Stats.ForeignKeys = s.ForeignKeyCount()
	res.CacheInfo.SchemaHit = hit
	opts.Logger.Info("loaded keys",
		"source", res.Source,
		"tables", res.Stats.Tables,
		"foreign_keys", res.Stats.ForeignKeys,
		"duration", res.Stats.LoadTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	d, hit, err := r.LayoutWithCacheInfo(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Diagram = d
	res.Stats.LayoutTime = time.Since(start)
	res.CacheInfo.LayoutHit = hit
	if d.Stats != nil {
		res.Stats.Placed = d.Stats.Placed
		res.Stats.Growths = d.Stats.Growths
		res.Stats.Overlaps = d.Stats.Overlaps
	}
	if res.SchemaHash, err = SchemaHash(s); err != nil {
		return nil, fmt.Errorf("hash schema: %w", err)
	}
	opts.Logger.Info("computed layout",
		"canvas", fmt.Sprintf("%dx%d", d.Canvas.Width, d.Canvas.Height),
		"growths", res.Stats.Growths,
		"cached", hit,
		"duration", res.Stats.LayoutTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, d, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	res.Artifacts = artifacts
	res.Stats.RenderTime = time.Since(start)
	res.CacheInfo.RenderHit = hit
	if data, err := diagram.Marshal(d); err == nil {
		res.DiagramHash = cache.Hash(data)
	}
	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", res.Stats.RenderTime)

	return res, nil
}

// LoadWithCacheInfo loads keys from src and reports whether they came from
// the cache.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, src source.Source, opts Options) (*schema.Schema, bool, error) {
	r.applyLogger(&opts)
	name := src.Name()
	key := r.Keyer.SchemaKey(name)

	if opts.CacheSchema && !opts.Refresh {
		if s, ok := lookup(ctx, r, "schema", key, unmarshalSchema); ok {
			return s, true, nil
		}
	}

	observability.Pipeline().OnLoadStart(ctx, name)
	start := time.Now()
	s, err := src.Load(ctx)
	tables := 0
	if s != nil {
		tables = s.TableCount()
	}
	observability.Pipeline().OnLoadComplete(ctx, name, tables, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if opts.CacheSchema {
		if data, err := marshalSchema(s); err == nil {
			r.store(ctx, "schema", key, data, cache.TTLSchema)
		}
	}
	return s, false, nil
}

// Load is LoadWithCacheInfo without the cache hit flag.
func (r *Runner) Load(ctx context.Context, src source.Source, opts Options) (*schema.Schema, error) {
	s, _, err := r.LoadWithCacheInfo(ctx, src, opts)
	return s, err
}

// LayoutWithCacheInfo lays out s and reports whether the diagram came from
// the cache. Either way, the final table positions are written to s.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, s *schema.Schema, opts Options) (diagram.Diagram, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return diagram.Diagram{}, false, err
	}
	r.applyLogger(&opts)

	hash, err := SchemaHash(s)
	if err != nil {
		return diagram.Diagram{}, false, errors.Wrap(errors.ErrCodeInternal, err, "hash schema")
	}
	key := r.Keyer.LayoutKey(hash, opts.Layout)

	if !opts.Refresh {
		if d, ok := lookup(ctx, r, "layout", key, diagram.Unmarshal); ok {
			applyPositions(s, d)
			return d, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, s.TableCount())
	start := time.Now()
	s.ResetPlacement()
	res, err := layout.Place(s, opts.Layout, layout.WithObserver(logObserver{logger: opts.Logger}))
	if err != nil {
		hooks.OnLayoutComplete(ctx, 0, 0, time.Since(start), err)
		return diagram.Diagram{}, false, err
	}
	hooks.OnLayoutComplete(ctx, res.Placed, res.Growths, time.Since(start), nil)

	if len(res.Overlaps) > 0 {
		opts.Logger.Warn("layout has overlapping tables", "overlaps", len(res.Overlaps))
	}
	if len(res.Unplaced) > 0 {
		opts.Logger.Warn("tables left unplaced", "count", len(res.Unplaced), "max_tables", opts.Layout.MaxTables)
	}

	d := diagram.FromSchema(s, opts.Layout.Metrics, res)
	if data, err := diagram.Marshal(d); err == nil {
		r.store(ctx, "layout", key, data, cache.TTLLayout)
	}
	return d, false, nil
}

// Layout is LayoutWithCacheInfo without the cache hit flag.
func (r *Runner) Layout(ctx context.Context, s *schema.Schema, opts Options) (diagram.Diagram, error) {
	d, _, err := r.LayoutWithCacheInfo(ctx, s, opts)
	return d, err
}

// RenderWithCacheInfo renders d in every requested format and reports
// whether all of them came from the cache. Missing formats are rendered
// concurrently.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d diagram.Diagram, opts Options) (map[render.Format][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	data, err := diagram.Marshal(d)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize diagram for cache key")
	}
	hash := cache.Hash(data)

	formats := opts.RenderFormats()
	artifacts := make(map[render.Format][]byte, len(formats))
	var missing []render.Format
	for _, f := range formats {
		if _, dup := artifacts[f]; dup || slices.Contains(missing, f) {
			continue
		}
		if !opts.Refresh {
			key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(f))
			if out, ok := lookup(ctx, r, "artifact", key, identity); ok {
				artifacts[f] = out
				continue
			}
		}
		missing = append(missing, f)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, names)
	start := time.Now()

	outs := make([][]byte, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range missing {
		g.Go(func() error {
			out, err := render.Render(gctx, d, f, opts.RenderOptions())
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			outs[i] = out
			return nil
		})
	}
	err = g.Wait()
	hooks.OnRenderComplete(ctx, names, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for i, f := range missing {
		artifacts[f] = outs[i]
		r.store(ctx, "artifact", r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(f)), outs[i], cache.TTLArtifact)
	}
	return artifacts, false, nil
}

// Render is RenderWithCacheInfo without the cache hit flag.
func (r *Runner) Render(ctx context.Context, d diagram.Diagram, opts Options) (map[render.Format][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, opts)
	return artifacts, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// lookup reads and decodes a cache entry. Read and decode failures count as
// misses.
func lookup[T any](ctx context.Context, r *Runner, kind, key string, decode func([]byte) (T, error)) (T, bool) {
	var zero T
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "kind", kind, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, kind)
		return zero, false
	}
	v, err := decode(data)
	if err != nil {
		r.Logger.Debug("discarding undecodable cache entry", "kind", kind, "error", err)
		observability.Cache().OnCacheMiss(ctx, kind)
		return zero, false
	}
	observability.Cache().OnCacheHit(ctx, kind)
	return v, true
}

func (r *Runner) store(ctx context.Context, kind, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "kind", kind, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

// applyPositions copies table geometry from a cached diagram onto s.
func applyPositions(s *schema.Schema, d diagram.Diagram) {
	s.ResetPlacement()
	for _, dt := range d.Tables {
		if t := s.Table(dt.Name); t != nil {
			t.X, t.Y, t.Width, t.Height = dt.X, dt.Y, dt.Width, dt.Height
			t.Placed = true
		}
	}
	layout.Analyze(s)
}

func identity(b []byte) ([]byte, error) { return b, nil }
