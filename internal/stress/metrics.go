package stress

import (
	"time"

	fiberatomic "github.com/carterww/fiber-atomic"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover single uncontended operations up to heavily contended retry
// loops and scheduler preemption.
var LatencyBuckets = []uint64{
	10,        // 10ns
	50,        // 50ns
	100,       // 100ns
	500,       // 500ns
	1_000,     // 1us
	10_000,    // 10us
	100_000,   // 100us
	1_000_000, // 1ms
}

const numLatencyBuckets = 8

// Metrics tracks stress run statistics. The counters are updated through
// fiberatomic itself. 64-bit fields come first so they stay 8-byte aligned on
// 32-bit platforms.
type Metrics struct {
	// Operation counters
	Ops        uint64 // Atomic operations performed by workers
	Retries    uint64 // Failed compare-exchange attempts
	Violations uint64 // Invariant violations detected

	// Run counters
	Runs       uint64 // Completed scenario runs
	FailedRuns uint64 // Runs that violated their invariant or errored

	// Sampled latency
	TotalLatencyNs uint64 // Cumulative sampled latency in nanoseconds
	LatencySamples uint64 // Number of latency samples
	MaxLatencyNs   uint64 // Largest sampled latency

	// Latency histogram buckets (cumulative counts)
	// Each bucket[i] contains the count of samples with latency <= LatencyBuckets[i]
	LatencyBuckets [numLatencyBuckets]uint64

	StartTime int64 // Metrics start timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	fiberatomic.Store(&m.StartTime, time.Now().UnixNano(), fiberatomic.Relaxed)
	return m
}

// RecordOps adds n completed operations
func (m *Metrics) RecordOps(n uint64) {
	fiberatomic.FetchAdd(&m.Ops, n, fiberatomic.Relaxed)
}

// RecordRetries adds n failed compare-exchange attempts
func (m *Metrics) RecordRetries(n uint64) {
	fiberatomic.FetchAdd(&m.Retries, n, fiberatomic.Relaxed)
}

// RecordViolations adds n invariant violations
func (m *Metrics) RecordViolations(n uint64) {
	fiberatomic.FetchAdd(&m.Violations, n, fiberatomic.Relaxed)
}

// RecordRun records the outcome of a scenario run
func (m *Metrics) RecordRun(ok bool) {
	fiberatomic.IncFetch(&m.Runs, fiberatomic.Relaxed)
	if !ok {
		fiberatomic.IncFetch(&m.FailedRuns, fiberatomic.Relaxed)
	}
}

// RecordLatency records one sampled operation latency and updates the histogram
func (m *Metrics) RecordLatency(latencyNs uint64) {
	fiberatomic.FetchAdd(&m.TotalLatencyNs, latencyNs, fiberatomic.Relaxed)
	fiberatomic.FetchInc(&m.LatencySamples, fiberatomic.Relaxed)

	// Update max latency
	current := fiberatomic.Load(&m.MaxLatencyNs, fiberatomic.Relaxed)
	for latencyNs > current {
		if fiberatomic.CompareExchange(&m.MaxLatencyNs, &current, latencyNs, true, fiberatomic.Relaxed, fiberatomic.Relaxed) {
			break
		}
	}

	// Update histogram buckets (cumulative)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			fiberatomic.FetchInc(&m.LatencyBuckets[i], fiberatomic.Relaxed)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics
type MetricsSnapshot struct {
	Ops        uint64
	Retries    uint64
	Violations uint64
	Runs       uint64
	FailedRuns uint64

	// Latency
	LatencySamples uint64
	AvgLatencyNs   uint64
	MaxLatencyNs   uint64
	TotalLatencyNs uint64

	// Latency percentiles (in nanoseconds)
	LatencyP50Ns  uint64 // 50th percentile (median)
	LatencyP99Ns  uint64 // 99th percentile
	LatencyP999Ns uint64 // 99.9th percentile

	// Histogram bucket counts (cumulative)
	LatencyHistogram [numLatencyBuckets]uint64

	// Computed statistics
	UptimeNs     uint64
	OpsPerSecond float64
	RetryRate    float64 // Retries per operation
}

// Snapshot creates a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Ops:            fiberatomic.Load(&m.Ops, fiberatomic.Acquire),
		Retries:        fiberatomic.Load(&m.Retries, fiberatomic.Acquire),
		Violations:     fiberatomic.Load(&m.Violations, fiberatomic.Acquire),
		Runs:           fiberatomic.Load(&m.Runs, fiberatomic.Acquire),
		FailedRuns:     fiberatomic.Load(&m.FailedRuns, fiberatomic.Acquire),
		LatencySamples: fiberatomic.Load(&m.LatencySamples, fiberatomic.Acquire),
		MaxLatencyNs:   fiberatomic.Load(&m.MaxLatencyNs, fiberatomic.Acquire),
		TotalLatencyNs: fiberatomic.Load(&m.TotalLatencyNs, fiberatomic.Acquire),
	}

	if snap.LatencySamples > 0 {
		snap.AvgLatencyNs = snap.TotalLatencyNs / snap.LatencySamples
	}

	startTime := fiberatomic.Load(&m.StartTime, fiberatomic.Acquire)
	snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	if snap.UptimeNs > 0 {
		snap.OpsPerSecond = float64(snap.Ops) / (float64(snap.UptimeNs) / 1e9)
	}

	if snap.Ops > 0 {
		snap.RetryRate = float64(snap.Retries) / float64(snap.Ops)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = fiberatomic.Load(&m.LatencyBuckets[i], fiberatomic.Acquire)
	}

	if snap.LatencySamples > 0 {
		snap.LatencyP50Ns = percentile(snap.LatencyHistogram, snap.LatencySamples, 0.50)
		snap.LatencyP99Ns = percentile(snap.LatencyHistogram, snap.LatencySamples, 0.99)
		snap.LatencyP999Ns = percentile(snap.LatencyHistogram, snap.LatencySamples, 0.999)
	}

	return snap
}

// percentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func percentile(hist [numLatencyBuckets]uint64, total uint64, p float64) uint64 {
	if total == 0 {
		return 0
	}

	targetCount := uint64(float64(total) * p)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := hist[i]
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = hist[i-1]
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	// Latency exceeds all buckets
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters
func (m *Metrics) Reset() {
	for _, p := range []*uint64{
		&m.Ops, &m.Retries, &m.Violations, &m.Runs, &m.FailedRuns,
		&m.TotalLatencyNs, &m.LatencySamples, &m.MaxLatencyNs,
	} {
		fiberatomic.Store(p, 0, fiberatomic.Relaxed)
	}
	for i := 0; i < numLatencyBuckets; i++ {
		fiberatomic.Store(&m.LatencyBuckets[i], 0, fiberatomic.Relaxed)
	}
	fiberatomic.Store(&m.StartTime, time.Now().UnixNano(), fiberatomic.Release)
}

// Observer interface allows pluggable metrics collection
type Observer interface {
	// ObserveOps is called once per worker with its operation count
	ObserveOps(n uint64)

	// ObserveRetries is called once per worker with its retry count
	ObserveRetries(n uint64)

	// ObserveViolations is called with the violations found by a run
	ObserveViolations(n uint64)

	// ObserveLatency is called for each sampled operation
	ObserveLatency(latencyNs uint64)

	// ObserveRun is called when a run completes
	ObserveRun(ok bool)
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveOps(uint64)        {}
func (NoOpObserver) ObserveRetries(uint64)    {}
func (NoOpObserver) ObserveViolations(uint64) {}
func (NoOpObserver) ObserveLatency(uint64)    {}
func (NoOpObserver) ObserveRun(bool)          {}

// MetricsObserver implements Observer using the built-in Metrics
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveOps(n uint64) {
	o.metrics.RecordOps(n)
}

func (o *MetricsObserver) ObserveRetries(n uint64) {
	o.metrics.RecordRetries(n)
}

func (o *MetricsObserver) ObserveViolations(n uint64) {
	o.metrics.RecordViolations(n)
}

func (o *MetricsObserver) ObserveLatency(latencyNs uint64) {
	o.metrics.RecordLatency(latencyNs)
}

func (o *MetricsObserver) ObserveRun(ok bool) {
	o.metrics.RecordRun(ok)
}

// Compile-time interface check
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
