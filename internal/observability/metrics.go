// Package observability provides the metrics recording abstraction used
// by the runtime and directory, with expvar and Prometheus backends.
package observability

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRecorder aggregates operation outcomes and the live-instance
// count. A nil recorder is valid; use Record/Live helpers to guard.
type MetricsRecorder interface {
	// Observe records one operation outcome with its duration.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	// AddLive adjusts the number of live runtime instances.
	AddLive(delta int)
}

// Record is a nil-safe Observe.
func Record(ctx context.Context, rec MetricsRecorder, operation string, success bool, duration time.Duration) {
	if rec != nil {
		rec.Observe(ctx, operation, success, duration)
	}
}

// Live is a nil-safe AddLive.
func Live(rec MetricsRecorder, delta int) {
	if rec != nil {
		rec.AddLive(delta)
	}
}

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timing and result counters via
// expvar, for deployments that prefer process-local metrics without
// external dependencies. Totals are kept in milliseconds per operation
// with success/error counters.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
	live      int64
}

var _ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	Live        int64                       `json:"live_objects"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and
// publishes it under the supplied name. When name is empty, a unique
// identifier is generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("domaincore_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}
	results := make(map[string]map[string]int64, len(r.results))
	for op, statusCounts := range r.results {
		cpy := make(map[string]int64, len(statusCounts))
		for status, count := range statusCounts {
			cpy[status] = count
		}
		results[op] = cpy
	}
	return ExpvarMetricsSnapshot{
		DurationsMS: durations,
		Results:     results,
		Live:        r.live,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe records an operation outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	status := "error"
	if success {
		status = "success"
	}

	r.mu.Lock()
	r.durations[operation] += ms
	if _, ok := r.results[operation]; !ok {
		r.results[operation] = make(map[string]int64, 2)
	}
	r.results[operation][status]++
	r.mu.Unlock()
}

// AddLive adjusts the live-instance count.
func (r *ExpvarMetricsRecorder) AddLive(delta int) {
	r.mu.Lock()
	r.live += int64(delta)
	r.mu.Unlock()
}
