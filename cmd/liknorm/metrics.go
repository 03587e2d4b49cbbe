package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "liknorm"

// Row outcomes used as the result label.
const (
	resultOK       = "ok"
	resultMismatch = "mismatch"
	resultError    = "error"
)

// checkMetrics counts reference rows by outcome and times their integration.
// It is safe for concurrent use by the check workers.
type checkMetrics struct {
	rows     *prometheus.CounterVec   // labels: family, result
	duration *prometheus.HistogramVec // labels: family
}

func newCheckMetrics(reg prometheus.Registerer) *checkMetrics {
	m := &checkMetrics{
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "check",
				Name:      "rows_total",
				Help:      "Reference rows checked, by family and result",
			},
			[]string{"family", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "check",
				Name:      "integrate_seconds",
				Help:      "Time spent integrating one reference row",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"family"},
		),
	}
	reg.MustRegister(m.rows, m.duration)
	return m
}

func (m *checkMetrics) observe(family, result string, elapsed time.Duration) {
	m.rows.WithLabelValues(family, result).Inc()
	if result != resultError {
		m.duration.WithLabelValues(family).Observe(elapsed.Seconds())
	}
}
