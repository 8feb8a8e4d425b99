package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Block metrics
	blockHeight     prometheus.Gauge
	blocksCommitted prometheus.Counter
	blockDuration   prometheus.Histogram
	blockTxs        prometheus.Gauge

	// Transaction metrics
	txsExecuted prometheus.Counter
	txsSkipped  *prometheus.CounterVec
	txsReceived prometheus.Counter
	txsRejected *prometheus.CounterVec

	// Pending pool metrics
	mempoolSize  prometheus.Gauge
	mempoolBytes prometheus.Gauge

	// Probe metrics
	probes        prometheus.Counter
	probeDuration prometheus.Histogram

	// API metrics
	apiRequests *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		blockHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_height",
				Help:      "Current committed block height",
			},
		),
		blocksCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_committed_total",
				Help:      "Total number of blocks committed by this node",
			},
		),
		blockDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "block_duration_seconds",
				Help:      "Time spent executing and committing a block",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		blockTxs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_txs",
				Help:      "Number of transactions in the latest block",
			},
		),

		txsExecuted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_executed_total",
				Help:      "Total number of transactions executed in committed blocks",
			},
		),
		txsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_skipped_total",
				Help:      "Total number of pending transactions left out of a block",
			},
			[]string{"reason"},
		),
		txsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_received_total",
				Help:      "Total number of transactions submitted to the pending pool",
			},
		),
		txsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_rejected_total",
				Help:      "Total number of transactions rejected at admission",
			},
			[]string{"reason"},
		),

		mempoolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mempool_size",
				Help:      "Number of transactions in the pending pool",
			},
		),
		mempoolBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mempool_size_bytes",
				Help:      "Total size of transactions in the pending pool",
			},
		),

		probes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of speculative probes",
			},
		),
		probeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Time spent executing a probe",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),

		apiRequests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Latency of API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "code"},
		),
	}

	m.registry.MustRegister(
		m.blockHeight,
		m.blocksCommitted,
		m.blockDuration,
		m.blockTxs,
		m.txsExecuted,
		m.txsSkipped,
		m.txsReceived,
		m.txsRejected,
		m.mempoolSize,
		m.mempoolBytes,
		m.probes,
		m.probeDuration,
		m.apiRequests,
	)

	return m
}

// Block metrics implementation

func (m *PrometheusMetrics) SetBlockHeight(height int64) {
	m.blockHeight.Set(float64(height))
}

func (m *PrometheusMetrics) IncBlocksCommitted() {
	m.blocksCommitted.Inc()
}

func (m *PrometheusMetrics) ObserveBlockDuration(d time.Duration) {
	m.blockDuration.Observe(d.Seconds())
}

func (m *PrometheusMetrics) SetBlockTxs(count int) {
	m.blockTxs.Set(float64(count))
}

// Transaction metrics implementation

func (m *PrometheusMetrics) AddTxsExecuted(count int) {
	m.txsExecuted.Add(float64(count))
}

func (m *PrometheusMetrics) IncTxsSkipped(reason string) {
	m.txsSkipped.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) IncTxsReceived() {
	m.txsReceived.Inc()
}

func (m *PrometheusMetrics) IncTxsRejected(reason string) {
	m.txsRejected.WithLabelValues(reason).Inc()
}

// Pending pool metrics implementation

func (m *PrometheusMetrics) SetMempoolSize(size int) {
	m.mempoolSize.Set(float64(size))
}

func (m *PrometheusMetrics) SetMempoolBytes(bytes int64) {
	m.mempoolBytes.Set(float64(bytes))
}

// Probe metrics implementation

func (m *PrometheusMetrics) IncProbes() {
	m.probes.Inc()
}

func (m *PrometheusMetrics) ObserveProbeDuration(d time.Duration) {
	m.probeDuration.Observe(d.Seconds())
}

func (m *PrometheusMetrics) ObserveAPIRequest(route string, status int, d time.Duration) {
	m.apiRequests.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
