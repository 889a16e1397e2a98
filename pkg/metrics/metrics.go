// Package metrics counts record adapter operations with Prometheus
// collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crmsync"

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failed   *prometheus.CounterVec
}

// NewRecorder registers the adapter collectors on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "operations_total",
			Help:      "Record adapter operations by entity, operation and outcome.",
		}, []string{"entity", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "operation_seconds",
			Help:      "Latency of record store calls made by the adapters.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "op"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "failed_items_total",
			Help:      "Bulk items the record store refused.",
		}, []string{"entity", "op"}),
	}
	for _, c := range []prometheus.Collector{r.ops, r.duration, r.failed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one finished operation.
func (r *Recorder) Observe(entity, op, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ops.WithLabelValues(entity, op, outcome).Inc()
	r.duration.WithLabelValues(entity, op).Observe(elapsed.Seconds())
}

// FailedItems adds n refused bulk items.
func (r *Recorder) FailedItems(entity, op string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.failed.WithLabelValues(entity, op).Add(float64(n))
}
