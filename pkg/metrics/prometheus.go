package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default latency buckets in milliseconds; gateway calls are network round trips.
var defaultLatencyBuckets = []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Manager manages all Prometheus metrics of a sync run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         *prometheus.Registry

	// Delivery
	rowsAppended   *prometheus.CounterVec
	appendFailures *prometheus.CounterVec
	appendsSkipped *prometheus.CounterVec

	// Cursors and sources
	destinationCursor *prometheus.GaugeVec
	sourceRecords     *prometheus.GaugeVec
	sourceFailures    *prometheus.CounterVec
	malformedRecords  *prometheus.CounterVec

	// Timings
	gatewayLatency *prometheus.HistogramVec
	runDuration    prometheus.Gauge
	lastRunUnix    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "missionsync",
		subsystem:        "sync",
		histogramBuckets: defaultLatencyBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) opts(name, help string) (string, string, string, string, prometheus.Labels) {
	return m.namespace, m.subsystem, name, help, prometheus.Labels(m.customLabels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		ns, ss, n, h, cl := m.opts(name, help)
		return auto.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: cl}, labels)
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		ns, ss, n, h, cl := m.opts(name, help)
		return auto.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: cl}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		ns, ss, n, h, cl := m.opts(name, help)
		return auto.NewGauge(prometheus.GaugeOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: cl})
	}

	m.rowsAppended = counterVec("rows_appended_total", "Rows appended to each destination table", "destination")
	m.appendFailures = counterVec("append_failures_total", "Appends that failed at the gateway", "destination")
	m.appendsSkipped = counterVec("appends_skipped_total", "Appends skipped because there was nothing new or no trustworthy cursor", "destination")

	m.destinationCursor = gaugeVec("destination_cursor", "Row count observed on each destination before appending", "destination")
	m.sourceRecords = gaugeVec("source_records", "Records or subjects read from each local source", "source")
	m.sourceFailures = counterVec("source_failures_total", "Local sources that could not be read", "source")
	m.malformedRecords = counterVec("malformed_records_total", "Records skipped by a partition because a field was missing", "partition")

	ns, ss, _, _, cl := m.opts("", "")
	m.gatewayLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   ns,
		Subsystem:   ss,
		Name:        "gateway_latency_milliseconds",
		Help:        "Latency of gateway calls in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: cl,
	}, []string{"op"})
	m.runDuration = gauge("run_duration_seconds", "Duration of the last sync run")
	m.lastRunUnix = gauge("last_run_timestamp_seconds", "Unix time the last sync run finished")
}

// Registry returns the registry the manager's metrics live in.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// RecordRowsAppended adds n rows to the destination counter.
func (m *Manager) RecordRowsAppended(destination string, n int) {
	if m.enabled {
		m.rowsAppended.WithLabelValues(destination).Add(float64(n))
	}
}

// RecordAppendFailure counts a failed append.
func (m *Manager) RecordAppendFailure(destination string) {
	if m.enabled {
		m.appendFailures.WithLabelValues(destination).Inc()
	}
}

// RecordAppendSkipped counts a skipped append.
func (m *Manager) RecordAppendSkipped(destination string) {
	if m.enabled {
		m.appendsSkipped.WithLabelValues(destination).Inc()
	}
}

// UpdateDestinationCursor sets the observed row count of a destination.
func (m *Manager) UpdateDestinationCursor(destination string, rows int) {
	if m.enabled {
		m.destinationCursor.WithLabelValues(destination).Set(float64(rows))
	}
}

// UpdateSourceRecords sets the number of records read from a source.
func (m *Manager) UpdateSourceRecords(source string, n int) {
	if m.enabled {
		m.sourceRecords.WithLabelValues(source).Set(float64(n))
	}
}

// RecordSourceFailure counts an unreadable source.
func (m *Manager) RecordSourceFailure(source string) {
	if m.enabled {
		m.sourceFailures.WithLabelValues(source).Inc()
	}
}

// RecordMalformedRecords counts records a partition could not classify.
func (m *Manager) RecordMalformedRecords(partition string, n int) {
	if m.enabled && n > 0 {
		m.malformedRecords.WithLabelValues(partition).Add(float64(n))
	}
}

// RecordGatewayLatency observes the latency of one gateway call.
func (m *Manager) RecordGatewayLatency(op string, latencyMs float64) {
	if m.enabled {
		m.gatewayLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// RecordRun sets the duration and finish time of a run.
func (m *Manager) RecordRun(durationSeconds float64, finishedUnix int64) {
	if m.enabled {
		m.runDuration.Set(durationSeconds)
		m.lastRunUnix.Set(float64(finishedUnix))
	}
}

// WriteTextfile writes the registry in text exposition format to path, for the
// node exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// WriteTextfile exports the global registry to path.
func WriteTextfile(path string) error { return globalManager.WriteTextfile(path) }

// Default returns the global manager.
func Default() *Manager { return globalManager }
