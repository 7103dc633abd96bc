package stress

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fiberatomic_stress"

// Collector exports a Metrics snapshot to prometheus on every scrape
type Collector struct {
	metrics *Metrics

	ops        *prometheus.Desc
	retries    *prometheus.Desc
	violations *prometheus.Desc
	runs       *prometheus.Desc
	failedRuns *prometheus.Desc
	maxLatency *prometheus.Desc
	latency    *prometheus.Desc
}

// NewCollector creates a collector for m
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		metrics: m,
		ops: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "ops_total"),
			"Atomic operations performed by stress workers.", nil, nil),
		retries: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "retries_total"),
			"Failed compare-exchange attempts.", nil, nil),
		violations: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "violations_total"),
			"Invariant violations detected.", nil, nil),
		runs: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "runs_total"),
			"Completed scenario runs.", nil, nil),
		failedRuns: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "failed_runs_total"),
			"Scenario runs that failed.", nil, nil),
		maxLatency: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "max_latency_seconds"),
			"Largest sampled operation latency.", nil, nil),
		latency: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "op_latency_seconds"),
			"Sampled atomic operation latency.", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ops
	ch <- c.retries
	ch <- c.violations
	ch <- c.runs
	ch <- c.failedRuns
	ch <- c.maxLatency
	ch <- c.latency
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.ops, prometheus.CounterValue, float64(snap.Ops))
	ch <- prometheus.MustNewConstMetric(c.retries, prometheus.CounterValue, float64(snap.Retries))
	ch <- prometheus.MustNewConstMetric(c.violations, prometheus.CounterValue, float64(snap.Violations))
	ch <- prometheus.MustNewConstMetric(c.runs, prometheus.CounterValue, float64(snap.Runs))
	ch <- prometheus.MustNewConstMetric(c.failedRuns, prometheus.CounterValue, float64(snap.FailedRuns))
	ch <- prometheus.MustNewConstMetric(c.maxLatency, prometheus.GaugeValue, float64(snap.MaxLatencyNs)/1e9)

	buckets := make(map[float64]uint64, numLatencyBuckets)
	for i, upper := range LatencyBuckets {
		buckets[float64(upper)/1e9] = snap.LatencyHistogram[i]
	}
	ch <- prometheus.MustNewConstHistogram(c.latency,
		snap.LatencySamples, float64(snap.TotalLatencyNs)/1e9, buckets)
}

var _ prometheus.Collector = (*Collector)(nil)
