package metrics

import (
	"time"

	"target-encoder/internal/encoding"
)

var _ encoding.MetricsTracker = (*MetricsWrapper)(nil)

// MetricsWrapper adapts Metrics to the tracker interface the encoder reports to
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) EncoderFitInc(strategy string) {
	w.m.FitsTotal.WithLabelValues(strategy).Inc()
}

func (w *MetricsWrapper) EncoderFitDuration(d time.Duration) {
	w.m.FitDuration.Observe(d.Seconds())
}

func (w *MetricsWrapper) EncoderErrorsInc(kind string) {
	w.m.ErrorsTotal.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) EncoderCategories(n int) {
	w.m.Categories.Set(float64(n))
}

func (w *MetricsWrapper) EncoderTransformedRows(n int) {
	w.m.TransformedRows.Add(float64(n))
}

func (w *MetricsWrapper) EncoderUnseenInc(n int) {
	if n > 0 {
		w.m.UnseenTotal.Add(float64(n))
	}
}
