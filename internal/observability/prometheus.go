package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation counters, duration
// histograms and the live-object gauge through a Prometheus registerer.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	live       prometheus.Gauge
}

var _ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)

// NewPrometheusMetricsRecorder registers the domaincore collectors with
// reg (prometheus.DefaultRegisterer when nil) and returns the recorder.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "domaincore",
			Name:      "operations_total",
			Help:      "Runtime and directory operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "domaincore",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "domaincore",
			Name:      "live_objects",
			Help:      "Number of live runtime instances.",
		}),
	}
	for _, c := range []prometheus.Collector{rec.operations, rec.durations, rec.live} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records an operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddLive adjusts the live-instance gauge.
func (r *PrometheusMetricsRecorder) AddLive(delta int) {
	r.live.Add(float64(delta))
}
