package pipeline

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/schemaplot/pkg/cache"
	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/observability"
	"github.com/matzehuels/schemaplot/pkg/render"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

func shopSchema() *schema.Schema {
	s := schema.New()
	_ = s.AddPrimaryKey("customers", "id", 1)
	_ = s.AddPrimaryKey("orders", "id", 1)
	_ = s.AddForeignKey("orders", "customer_id", "customers", "id")
	_ = s.AddPrimaryKey("order_items", "order_id", 1)
	_ = s.AddPrimaryKey("order_items", "line", 2)
	_ = s.AddForeignKey("order_items", "order_id", "orders", "id")
	_ = s.AddForeignKey("order_items", "product_id", "products", "id")
	_ = s.AddPrimaryKey("audit_log", "id", 1)
	return s
}

type staticSource struct {
	mu    sync.Mutex
	loads int
	err   error
}

func (s *staticSource) Name() string { return "static:shop" }

func (s *staticSource) Load(context.Context) (*schema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return shopSchema(), nil
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Layout != layout.DefaultConfig() {
		t.Error("zero layout config should become the default config")
	}
	if got := opts.RenderFormats(); len(got) != 1 || got[0] != render.FormatXML {
		t.Errorf("RenderFormats() = %v, want [xml]", got)
	}
	if opts.Logger == nil {
		t.Error("logger should be defaulted")
	}
}

func TestOptionsInvalid(t *testing.T) {
	badLayout := layout.DefaultConfig()
	badLayout.CanvasWidth = -1

	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"unknown format", Options{Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
		{"negative scale", Options{Scale: -1}, errors.ErrCodeInvalidConfig},
		{"bad layout", Options{Layout: badLayout}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Compact: true, Scale: 2}
	if got := opts.ArtifactKeyOpts(render.FormatSVG); got.Scale != 0 || !got.Compact {
		t.Errorf("svg key opts = %+v, scale should not apply", got)
	}
	if got := opts.ArtifactKeyOpts(render.FormatPNG); got.Scale != 2 {
		t.Errorf("png key opts = %+v, want scale 2", got)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	src := &staticSource{}
	opts := Options{Formats: []string{"json", "dot", "xml"}}

	res, err := r.Execute(ctx, src, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RunID == "" || res.Source != "static:shop" {
		t.Errorf("RunID = %q, Source = %q", res.RunID, res.Source)
	}
	if res.Stats.Tables != 5 || res.Stats.ForeignKeys != 3 || res.Stats.Placed != 5 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Stats.Overlaps != 0 {
		t.Errorf("layout has %d overlaps", res.Stats.Overlaps)
	}
	if len(res.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(res.Artifacts))
	}
	if !bytes.Contains(res.Artifacts[render.FormatDOT], []byte(`"orders" -> "customers"`)) {
		t.Error("dot artifact missing orders relation")
	}
	if res.CacheInfo != (CacheInfo{}) {
		t.Errorf("first run CacheInfo = %+v, want all misses", res.CacheInfo)
	}
	for _, tbl := range res.Schema.Tables() {
		if !tbl.Placed {
			t.Errorf("table %s not placed", tbl.Name)
		}
	}

	again, err := r.Execute(ctx, src, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !again.CacheInfo.LayoutHit || !again.CacheInfo.RenderHit || again.CacheInfo.SchemaHit {
		t.Errorf("second run CacheInfo = %+v", again.CacheInfo)
	}
	if again.RunID == res.RunID {
		t.Error("run IDs should differ")
	}
	if !bytes.Equal(again.Artifacts[render.FormatJSON], res.Artifacts[render.FormatJSON]) {
		t.Error("cached json artifact differs")
	}
	if again.SchemaHash != res.SchemaHash || again.DiagramHash != res.DiagramHash {
		t.Error("hashes differ between identical runs")
	}
	orders := again.Schema.Table("orders")
	want, _ := res.Diagram.Table("orders")
	if !orders.Placed || orders.X != want.X || orders.Y != want.Y {
		t.Errorf("cached layout not applied to schema: %+v", orders)
	}
	if src.loads != 2 {
		t.Errorf("source loaded %d times, want 2", src.loads)
	}
}

func TestExecuteRefresh(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	src := &staticSource{}

	if _, err := r.Execute(ctx, src, Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, src, Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Errorf("refresh should bypass cache reads: %+v", res.CacheInfo)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	ctx := context.Background()
	opts := Options{Formats: []string{"json"}}
	a, err := NewRunner(nil, nil, nil).Execute(ctx, &staticSource{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRunner(nil, nil, nil).Execute(ctx, &staticSource{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Artifacts[render.FormatJSON], b.Artifacts[render.FormatJSON]) {
		t.Error("diagram JSON differs between uncached runs")
	}
}

func TestExecuteSourceError(t *testing.T) {
	src := &staticSource{err: errors.New(errors.ErrCodeSource, "connection refused")}
	_, err := NewRunner(nil, nil, nil).Execute(context.Background(), src, Options{})
	if !errors.Is(err, errors.ErrCodeSource) {
		t.Errorf("err = %v, want SOURCE_ERROR", err)
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, nil, nil).Execute(ctx, &staticSource{}, Options{})
	if err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestLoadCacheSchema(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	src := &staticSource{}
	opts := Options{CacheSchema: true}

	first, hit, err := r.LoadWithCacheInfo(ctx, src, opts)
	if err != nil || hit {
		t.Fatalf("first load: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.LoadWithCacheInfo(ctx, src, opts)
	if err != nil || !hit {
		t.Fatalf("second load: hit=%v err=%v", hit, err)
	}
	if src.loads != 1 {
		t.Errorf("source loaded %d times, want 1", src.loads)
	}
	h1, _ := SchemaHash(first)
	h2, _ := SchemaHash(second)
	if h1 != h2 {
		t.Error("cached schema hashes differently")
	}
}

func TestSchemaHashChangesWithColumns(t *testing.T) {
	a := shopSchema()
	b := shopSchema()
	b.Table("customers").AddColumn("email", false, false)
	ha, _ := SchemaHash(a)
	hb, _ := SchemaHash(b)
	if ha == hb {
		t.Error("extra column should change the schema hash")
	}
}

func TestLayoutCacheKeyIncludesConfig(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(cache.NewMemoryCache(), nil, nil)

	if _, hit, err := r.LayoutWithCacheInfo(ctx, shopSchema(), Options{}); err != nil || hit {
		t.Fatalf("first layout: hit=%v err=%v", hit, err)
	}
	cfg := layout.DefaultConfig()
	cfg.Margin = 30
	if _, hit, err := r.LayoutWithCacheInfo(ctx, shopSchema(), Options{Layout: cfg}); err != nil || hit {
		t.Errorf("different config should miss: hit=%v err=%v", hit, err)
	}
}

func TestLayoutIgnoresCorruptCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	r := NewRunner(c, nil, nil)

	d, err := r.Layout(ctx, shopSchema(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	// A layout entry that is not a diagram is treated as a miss.
	hash, _ := SchemaHash(shopSchema())
	_ = c.Set(ctx, r.Keyer.LayoutKey(hash, layout.DefaultConfig()), []byte("{not json"), time.Minute)
	again, hit, err := r.LayoutWithCacheInfo(ctx, shopSchema(), Options{})
	if err != nil || hit {
		t.Fatalf("corrupt entry: hit=%v err=%v", hit, err)
	}
	a, _ := diagram.Marshal(d)
	b, _ := diagram.Marshal(again)
	if !bytes.Equal(a, b) {
		t.Error("recomputed diagram differs")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) add(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnLoadStart(context.Context, string) { h.add("load") }
func (h *recordingHooks) OnLayoutComplete(_ context.Context, placed, _ int, _ time.Duration, err error) {
	if err == nil && placed == 5 {
		h.add("layout")
	}
}
func (h *recordingHooks) OnRenderStart(context.Context, []string)   { h.add("render") }
func (h *recordingHooks) OnCacheHit(_ context.Context, kind string) { h.add("hit:" + kind) }

func TestExecuteEmitsHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	defer observability.Reset()

	ctx := context.Background()
	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	for range 2 {
		if _, err := r.Execute(ctx, &staticSource{}, Options{}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"load", "layout", "render", "load", "hit:layout", "hit:artifact"}
	if len(h.events) != len(want) {
		t.Fatalf("events = %v, want %v", h.events, want)
	}
	for i := range want {
		if h.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, h.events[i], want[i])
		}
	}
}
