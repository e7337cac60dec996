// Package metrics declares the engine's Prometheus instruments.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every instrument the engine updates, registered against its
// own registry so each instance stays isolated.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal    prometheus.Counter
	SourceFailures *prometheus.CounterVec
	SourceEvents   *prometheus.GaugeVec
	VisibleEvents  prometheus.Gauge
	PendingEvents  prometheus.Gauge
	CycleDuration  prometheus.Histogram
	LiveTracked    prometheus.Gauge
	LiveAvailable  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_cycles_total", Help: "completed merge cycles"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_source_failures_total", Help: "fetch failures per bookmaker"}, []string{"bookmaker"}),
		SourceEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "engine_source_events", Help: "records in the last snapshot per bookmaker"}, []string{"bookmaker"}),
		VisibleEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_visible_events", Help: "canonical events above the visibility threshold"}),
		PendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_pending_events", Help: "single-source events awaiting corroboration"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "engine_cycle_duration_seconds", Help: "wall time of a full merge cycle",
			Buckets: prometheus.DefBuckets}),
		LiveTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_live_tracked", Help: "events tracked by the live heartbeat"}),
		LiveAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_live_available", Help: "live events currently priced"}),
	}
	m.Registry.MustRegister(
		m.CyclesTotal, m.SourceFailures, m.SourceEvents,
		m.VisibleEvents, m.PendingEvents, m.CycleDuration,
		m.LiveTracked, m.LiveAvailable,
	)
	return m
}
