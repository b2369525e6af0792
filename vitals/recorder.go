package vitals

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports metrics as prometheus histograms.
type Recorder struct {
	values *prometheus.HistogramVec
}

// Buckets span CLS (unitless, below 1) and millisecond timings.
var Buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 10, 50, 100, 200, 300, 500, 800, 1000, 1800, 2500, 3000, 4000, 6000, 10000}

// NewRecorder registers the histogram with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	values := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "folio",
		Name:      "web_vitals_value",
		Help:      "Core Web Vitals reported by browsers, in milliseconds (CLS unitless).",
		Buckets:   Buckets,
	}, []string{"name", "rating"})
	if err := reg.Register(values); err != nil {
		return nil, err
	}
	return &Recorder{values: values}, nil
}

// Record observes m. Names without published thresholds share the "other"
// label to bound cardinality.
func (r *Recorder) Record(_ context.Context, m Metric) error {
	name := m.Name
	if !KnownName(name) {
		name = "other"
	}
	r.values.WithLabelValues(name, m.Rating).Observe(m.Value)
	return nil
}
