// Package metrics provides Prometheus metrics collection for the target encoder.
// It defines the fit, transform and error metrics of an encoding run and can
// dump them in the text exposition format for the node_exporter textfile
// collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "target_encoder"

// Metrics holds all Prometheus metrics for the target encoder.
type Metrics struct {
	// Fit metrics
	FitsTotal   *prometheus.CounterVec // Completed fits by strategy
	FitDuration prometheus.Histogram   // Duration of successful fits
	Categories  prometheus.Gauge       // Categories learned by the latest fit

	// Transform metrics
	TransformedRows prometheus.Counter // Rows encoded by transform
	UnseenTotal     prometheus.Counter // Rows whose category was not learned

	// System metrics
	ErrorsTotal *prometheus.CounterVec // Failed operations by error kind

	gatherer prometheus.Gatherer
}

// NewWithRegistry creates and registers all metrics on registerer. When
// registerer also implements prometheus.Gatherer it is used by
// WriteTextfile, otherwise the default gatherer is.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	gatherer := prometheus.DefaultGatherer
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		FitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fits_total",
			Help:      "Total number of successful fits",
		}, []string{"strategy"}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Duration of successful fits in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		Categories: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "categories",
			Help:      "Number of distinct categories learned by the latest fit",
		}),
		TransformedRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transformed_rows_total",
			Help:      "Total number of rows encoded",
		}),
		UnseenTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unseen_categories_total",
			Help:      "Total number of encoded rows whose category was not seen during fit",
		}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed encoder operations",
		}, []string{"kind"}),
		gatherer: gatherer,
	}
}

// WriteTextfile writes the gathered metrics to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
