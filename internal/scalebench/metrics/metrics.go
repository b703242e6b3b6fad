package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricPrefix = "scalebench_"

const (
	DropReasonMissingRowKey = "missing_row_key"
	DropReasonUnknownRow    = "unknown_row"
)

// Metrics records the progress of a benchmark run.
// All methods are safe for concurrent use.
type Metrics struct {
	probeDuration  *prometheus.HistogramVec
	probeFailures  *prometheus.CounterVec
	tasksInFlight  prometheus.Gauge
	resultsDropped *prometheus.CounterVec
	iterations     prometheus.Counter
	flushes        prometheus.Counter
	rowsFlushed    prometheus.Counter
	flushDuration  prometheus.Histogram
}

// New creates the benchmark metrics and registers them with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPrefix + "probe_duration_seconds",
				Help:    "Wall-clock time taken by a probe invocation",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
			},
			[]string{"metric"},
		),
		probeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "probe_failures_total",
				Help: "Number of probe invocations that returned an error or panicked",
			},
			[]string{"metric"},
		),
		tasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "tasks_in_flight",
				Help: "Number of probe invocations currently executing",
			},
		),
		resultsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "results_dropped_total",
				Help: "Number of probe results discarded without being written to the result table",
			},
			[]string{"reason"},
		),
		iterations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPrefix + "iterations_total",
				Help: "Number of iterations scheduled",
			},
		),
		flushes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPrefix + "flushes_total",
				Help: "Number of successful checkpoint flushes",
			},
		),
		rowsFlushed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPrefix + "rows_flushed_total",
				Help: "Number of result rows written to the output",
			},
		),
		flushDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricPrefix + "flush_duration_seconds",
				Help:    "Time taken to drain the worker pool and persist the result table",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
			},
		),
	}
}

// NewNop returns metrics registered with a throwaway registry, for use in tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) TaskStarted(_ string) {
	m.tasksInFlight.Inc()
}

func (m *Metrics) TaskFinished(metric string, duration time.Duration, failed bool) {
	m.tasksInFlight.Dec()
	m.probeDuration.WithLabelValues(metric).Observe(duration.Seconds())
	if failed {
		m.probeFailures.WithLabelValues(metric).Inc()
	}
}

func (m *Metrics) RecordDroppedResult(reason string) {
	m.resultsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordIteration() {
	m.iterations.Inc()
}

func (m *Metrics) RecordFlush(rows int, duration time.Duration) {
	m.flushes.Inc()
	m.rowsFlushed.Add(float64(rows))
	m.flushDuration.Observe(duration.Seconds())
}
