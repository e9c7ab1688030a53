package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	tablesPlaced  prometheus.Counter
	growths       prometheus.Counter
	cacheTotal    *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	inflight      prometheus.Gauge
	httpTotal     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)

// NewPrometheus registers the schemaplot collectors with reg and returns the
// hooks that feed them. Registering twice on the same registerer panics.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		stageTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemaplot_stage_total",
			Help: "Pipeline stage executions by stage and result",
		}, []string{"stage", "result"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schemaplot_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		tablesPlaced: f.NewCounter(prometheus.CounterOpts{
			Name: "schemaplot_tables_placed_total",
			Help: "Tables placed by the layout engine",
		}),
		growths: f.NewCounter(prometheus.CounterOpts{
			Name: "schemaplot_canvas_growths_total",
			Help: "Canvas growth steps taken by the layout engine",
		}),
		cacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemaplot_cache_requests_total",
			Help: "Cache lookups by key kind and outcome",
		}, []string{"kind", "outcome"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemaplot_cache_written_bytes_total",
			Help: "Bytes written to the cache by key kind",
		}, []string{"kind"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "schemaplot_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemaplot_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schemaplot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *Prometheus) observeStage(stage string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.stageTotal.WithLabelValues(stage, result).Inc()
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Prometheus) OnLoadStart(context.Context, string) {}

func (p *Prometheus) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	p.observeStage("load", d, err)
}

func (p *Prometheus) OnLayoutStart(context.Context, int) {}

func (p *Prometheus) OnLayoutComplete(_ context.Context, placed, growths int, d time.Duration, err error) {
	p.observeStage("layout", d, err)
	if err == nil {
		p.tablesPlaced.Add(float64(placed))
		p.growths.Add(float64(growths))
	}
}

func (p *Prometheus) OnRenderStart(context.Context, []string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	p.observeStage("render", d, err)
}

func (p *Prometheus) OnCacheHit(_ context.Context, kind string) {
	p.cacheTotal.WithLabelValues(kind, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, kind string) {
	p.cacheTotal.WithLabelValues(kind, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, kind string, size int) {
	p.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string) {
	p.inflight.Inc()
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.inflight.Dec()
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	p.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
