// Package metrics exposes Prometheus instrumentation for the watcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts fetch completions by resource kind.
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airwatch",
		Subsystem: "fetch",
		Name:      "completions_total",
		Help:      "Completed fetches by resource kind.",
	}, []string{"kind"})

	// ErrorsTotal counts emitted error events by category.
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airwatch",
		Subsystem: "fetch",
		Name:      "errors_total",
		Help:      "Error events by category.",
	}, []string{"category"})

	// MeasurementPoints counts data points received from the source.
	MeasurementPoints = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "airwatch",
		Subsystem: "fetch",
		Name:      "measurement_points_total",
		Help:      "Measurement data points received.",
	})
)
