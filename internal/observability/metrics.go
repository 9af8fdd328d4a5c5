package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the map core.
type Metrics struct {
	Recomputes        *prometheus.CounterVec // labels: mode={bin,timestep}
	InputsSuperseded  prometheus.Counter
	VisibleCraters    prometheus.Gauge
	FilterDuration    prometheus.Histogram
	CratersLoaded     prometheus.Gauge
	RegionsLoaded     prometheus.Gauge
	RecordsRejected   prometheus.Counter
	JoinMismatches    prometheus.Counter
	LoadErrors        *prometheus.CounterVec // labels: source={metadata,geometry,stats,craters}
	DetailQueries     *prometheus.CounterVec // labels: outcome={table,live,no_data}
	LocatorCache      *prometheus.CounterVec // labels: result={hit,miss}
	FramesPublished   prometheus.Counter
	FramePublishError prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Recomputes,
		m.InputsSuperseded,
		m.VisibleCraters,
		m.FilterDuration,
		m.CratersLoaded,
		m.RegionsLoaded,
		m.RecordsRejected,
		m.JoinMismatches,
		m.LoadErrors,
		m.DetailQueries,
		m.LocatorCache,
		m.FramesPublished,
		m.FramePublishError,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "recomputes_total",
			Help:      "Filter recomputations by control mode.",
		}, []string{"mode"}),
		InputsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "inputs_superseded_total",
			Help:      "Control inputs discarded because a newer value arrived within the debounce window.",
		}),
		VisibleCraters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mare_map",
			Name:      "visible_craters",
			Help:      "Craters visible after the most recent recompute.",
		}),
		FilterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mare_map",
			Name:      "filter_duration_seconds",
			Help:      "Duration of a filter pass over the crater store.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		CratersLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mare_map",
			Name:      "craters_loaded",
			Help:      "Crater records held by the store.",
		}),
		RegionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mare_map",
			Name:      "regions_loaded",
			Help:      "Mare regions held by the index.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "records_rejected_total",
			Help:      "Crater records rejected for invalid coordinates or diameter.",
		}),
		JoinMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "join_mismatches_total",
			Help:      "Geometry files without a metadata row.",
		}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "load_errors_total",
			Help:      "Input load failures by source.",
		}, []string{"source"}),
		DetailQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "detail_queries_total",
			Help:      "Region detail queries by outcome.",
		}, []string{"outcome"}),
		LocatorCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "locator_cache_total",
			Help:      "Region locator cache lookups by result.",
		}, []string{"result"}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "frames_published_total",
			Help:      "Frames delivered to the render sink.",
		}),
		FramePublishError: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mare_map",
			Name:      "frame_publish_errors_total",
			Help:      "Frames the render sink failed to accept.",
		}),
	}
}

// CacheHit records a region locator cache hit.
func (m *Metrics) CacheHit() { m.LocatorCache.WithLabelValues("hit").Inc() }

// CacheMiss records a region locator cache miss.
func (m *Metrics) CacheMiss() { m.LocatorCache.WithLabelValues("miss").Inc() }
