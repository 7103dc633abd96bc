package stress

import (
	"sync"
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	// Test initial state
	snap := m.Snapshot()
	if snap.Ops != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.Ops)
	}

	m.RecordOps(1000)
	m.RecordOps(500)
	m.RecordRetries(300)
	m.RecordViolations(2)
	m.RecordRun(true)
	m.RecordRun(false)

	snap = m.Snapshot()

	if snap.Ops != 1500 {
		t.Errorf("Expected 1500 ops, got %d", snap.Ops)
	}
	if snap.Retries != 300 {
		t.Errorf("Expected 300 retries, got %d", snap.Retries)
	}
	if snap.Violations != 2 {
		t.Errorf("Expected 2 violations, got %d", snap.Violations)
	}
	if snap.Runs != 2 {
		t.Errorf("Expected 2 runs, got %d", snap.Runs)
	}
	if snap.FailedRuns != 1 {
		t.Errorf("Expected 1 failed run, got %d", snap.FailedRuns)
	}

	// 300 retries over 1500 ops
	if snap.RetryRate < 0.19 || snap.RetryRate > 0.21 {
		t.Errorf("Expected retry rate ~0.2, got %.3f", snap.RetryRate)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordLatency(100)
	m.RecordLatency(300)
	m.RecordLatency(200)

	snap := m.Snapshot()

	if snap.LatencySamples != 3 {
		t.Errorf("Expected 3 latency samples, got %d", snap.LatencySamples)
	}
	if snap.AvgLatencyNs != 200 {
		t.Errorf("Expected avg latency 200 ns, got %d ns", snap.AvgLatencyNs)
	}
	if snap.MaxLatencyNs != 300 {
		t.Errorf("Expected max latency 300 ns, got %d ns", snap.MaxLatencyNs)
	}
}

func TestMetricsMaxLatencyConcurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				m.RecordLatency(uint64(w*1000 + i))
			}
		}(w)
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.MaxLatencyNs != 7999 {
		t.Errorf("Expected max latency 7999 ns, got %d ns", snap.MaxLatencyNs)
	}
	if snap.LatencySamples != 8000 {
		t.Errorf("Expected 8000 samples, got %d", snap.LatencySamples)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	// Sleep briefly to generate uptime
	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordOps(10)
	m.RecordRetries(3)
	m.RecordLatency(1_000)
	m.RecordRun(false)

	snap := m.Snapshot()
	if snap.Ops == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.Ops != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.Ops)
	}
	if snap.FailedRuns != 0 {
		t.Errorf("Expected 0 failed runs after reset, got %d", snap.FailedRuns)
	}
	if snap.MaxLatencyNs != 0 {
		t.Errorf("Expected 0 max latency after reset, got %d", snap.MaxLatencyNs)
	}
	for i, c := range snap.LatencyHistogram {
		if c != 0 {
			t.Errorf("Expected empty bucket %d after reset, got %d", i, c)
		}
	}
}

func TestObserver(t *testing.T) {
	// Test NoOpObserver doesn't panic
	observer := &NoOpObserver{}
	observer.ObserveOps(10)
	observer.ObserveRetries(1)
	observer.ObserveViolations(1)
	observer.ObserveLatency(100)
	observer.ObserveRun(true)

	// Test MetricsObserver forwards to metrics
	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveOps(10)
	metricsObserver.ObserveRetries(4)
	metricsObserver.ObserveViolations(1)
	metricsObserver.ObserveLatency(100)
	metricsObserver.ObserveRun(false)

	snap := m.Snapshot()
	if snap.Ops != 10 {
		t.Errorf("Expected 10 ops from observer, got %d", snap.Ops)
	}
	if snap.Retries != 4 {
		t.Errorf("Expected 4 retries from observer, got %d", snap.Retries)
	}
	if snap.Violations != 1 {
		t.Errorf("Expected 1 violation from observer, got %d", snap.Violations)
	}
	if snap.LatencySamples != 1 {
		t.Errorf("Expected 1 latency sample from observer, got %d", snap.LatencySamples)
	}
	if snap.Runs != 1 || snap.FailedRuns != 1 {
		t.Errorf("Expected 1 failed run from observer, got %d/%d", snap.FailedRuns, snap.Runs)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	// 50 samples at 40ns, 49 at 400ns and one slow outlier at 50us
	for i := 0; i < 50; i++ {
		m.RecordLatency(40)
	}
	for i := 0; i < 49; i++ {
		m.RecordLatency(400)
	}
	m.RecordLatency(50_000)

	snap := m.Snapshot()

	if snap.LatencySamples != 100 {
		t.Errorf("Expected 100 samples, got %d", snap.LatencySamples)
	}

	// Cumulative: 50 samples <= 50ns, 99 <= 500ns, all <= 100us
	want := [numLatencyBuckets]uint64{0, 50, 50, 99, 99, 99, 100, 100}
	if snap.LatencyHistogram != want {
		t.Errorf("Expected histogram %v, got %v", want, snap.LatencyHistogram)
	}

	if snap.LatencyP50Ns != 50 {
		t.Errorf("Expected P50 of 50 ns, got %d ns", snap.LatencyP50Ns)
	}
	if snap.LatencyP99Ns != 500 {
		t.Errorf("Expected P99 of 500 ns, got %d ns", snap.LatencyP99Ns)
	}
	if snap.MaxLatencyNs != 50_000 {
		t.Errorf("Expected max latency 50000 ns, got %d ns", snap.MaxLatencyNs)
	}
}

func TestPercentileBeyondBuckets(t *testing.T) {
	var hist [numLatencyBuckets]uint64
	if got := percentile(hist, 10, 0.5); got != LatencyBuckets[numLatencyBuckets-1] {
		t.Errorf("Expected samples above every bucket to report the top bucket, got %d", got)
	}
	if got := percentile(hist, 0, 0.5); got != 0 {
		t.Errorf("Expected 0 for no samples, got %d", got)
	}
}
