package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records compilation and preview activity
type Metrics struct {
	compilations    *prometheus.CounterVec
	dangling        prometheus.Counter
	compileDuration *prometheus.HistogramVec
	registeredTypes prometheus.Gauge
	previews        *prometheus.CounterVec
	activePreviews  prometheus.Gauge
}

// NewMetrics creates metrics registered with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocksmith_compilations_total",
			Help: "Total number of workspace compilations by endpoint",
		}, []string{"endpoint"}),
		dangling: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocksmith_dangling_references_total",
			Help: "Blocks skipped because their type is not registered",
		}),
		compileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blocksmith_compile_duration_seconds",
			Help:    "Workspace compilation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"endpoint"}),
		registeredTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blocksmith_registered_types",
			Help: "Number of block types in the served library",
		}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocksmith_previews_total",
			Help: "Block definition previews by outcome",
		}, []string{"status"}),
		activePreviews: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blocksmith_preview_sessions_active",
			Help: "Number of open preview sessions",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.compilations)
		registerer.MustRegister(m.dangling)
		registerer.MustRegister(m.compileDuration)
		registerer.MustRegister(m.registeredTypes)
		registerer.MustRegister(m.previews)
		registerer.MustRegister(m.activePreviews)
	}

	return m
}

// ObserveCompile records one compilation and its dangling references
func (m *Metrics) ObserveCompile(endpoint string, started time.Time, dangling int) {
	m.compilations.WithLabelValues(endpoint).Inc()
	m.compileDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	if dangling > 0 {
		m.dangling.Add(float64(dangling))
	}
}

// SetRegisteredTypes records the size of the served library
func (m *Metrics) SetRegisteredTypes(n int) {
	m.registeredTypes.Set(float64(n))
}

// ObservePreview counts a preview outcome
func (m *Metrics) ObservePreview(status string) {
	m.previews.WithLabelValues(status).Inc()
}

func (m *Metrics) sessionOpened() {
	m.activePreviews.Inc()
}

func (m *Metrics) sessionClosed() {
	m.activePreviews.Dec()
}
