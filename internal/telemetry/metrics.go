package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acqdash"

// Metrics exposes render-engine counters. A nil Metrics, or one built with
// enabled=false, accepts every call and records nothing.
type Metrics struct {
	// Render metrics
	itemsRendered *prometheus.GaugeVec
	windowSize    *prometheus.GaugeVec
	loadMore      *prometheus.CounterVec

	// Resource metrics
	imageLoads *prometheus.CounterVec

	// Subscription metrics
	visibilitySubs prometheus.Gauge
	scrollSubs     prometheus.Gauge

	// Process metrics
	rss prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics(enabled bool) *Metrics {
	if !enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		itemsRendered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "items_rendered",
				Help:      "Items built by the last render of each list",
			},
			[]string{"list"},
		),
		windowSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_size",
				Help:      "Size of the current render window of each list",
			},
			[]string{"list"},
		),
		loadMore: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "load_more_total",
				Help:      "Infinite-load requests issued",
			},
			[]string{"list"},
		),
		imageLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_loads_total",
				Help:      "Lazy image loads by result",
			},
			[]string{"result"},
		),
		visibilitySubs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "visibility_subscriptions",
				Help:      "Open visibility observations",
			},
		),
		scrollSubs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scroll_subscriptions",
				Help:      "Open scroll listeners",
			},
		),
		rss: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "process_rss_bytes",
				Help:      "Resident set size of the console process",
			},
		),
	}

	registry.MustRegister(
		m.itemsRendered,
		m.windowSize,
		m.loadMore,
		m.imageLoads,
		m.visibilitySubs,
		m.scrollSubs,
		m.rss,
	)
	return m
}

// Enabled reports whether anything is being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// ObserveRender records the result of one list render.
func (m *Metrics) ObserveRender(list string, rendered, window int) {
	if m == nil || m.itemsRendered == nil {
		return
	}
	m.itemsRendered.WithLabelValues(list).Set(float64(rendered))
	m.windowSize.WithLabelValues(list).Set(float64(window))
}

// RecordLoadMore counts an infinite-load request.
func (m *Metrics) RecordLoadMore(list string) {
	if m == nil || m.loadMore == nil {
		return
	}
	m.loadMore.WithLabelValues(list).Inc()
}

// RecordImageLoad counts a finished image load; result is "loaded" or
// "errored".
func (m *Metrics) RecordImageLoad(result string) {
	if m == nil || m.imageLoads == nil {
		return
	}
	m.imageLoads.WithLabelValues(result).Inc()
}

// SetSubscriptions publishes open observation and scroll listener counts.
func (m *Metrics) SetSubscriptions(visibility, scroll int) {
	if m == nil || m.visibilitySubs == nil {
		return
	}
	m.visibilitySubs.Set(float64(visibility))
	m.scrollSubs.Set(float64(scroll))
}

// SetRSS publishes the sampled resident set size.
func (m *Metrics) SetRSS(bytes uint64) {
	if m == nil || m.rss == nil {
		return
	}
	m.rss.Set(float64(bytes))
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
