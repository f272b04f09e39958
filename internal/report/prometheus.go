package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wesleyorama2/latprobe/internal/latency"
)

// metrics defines the metric collectors of a finished run
type metrics struct {
	probes    *prometheus.CounterVec
	latency   *prometheus.GaugeVec
	histogram *prometheus.HistogramVec
	runStart  prometheus.Gauge
	runTime   prometheus.Gauge
}

// newMetrics initializes the metric collectors
func newMetrics() metrics {
	return metrics{
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "latprobe_probes_total",
				Help: "Number of probes per target and outcome.",
			},
			[]string{"target", "outcome"},
		),
		latency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "latprobe_latency_seconds",
				Help: "Latency statistics of successful probes per target in seconds.",
			},
			[]string{"target", "stat"},
		),
		histogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "latprobe_probe_duration_seconds",
				Help:    "Histogram of successful probe latencies in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"target"},
		),
		runStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "latprobe_run_start_timestamp_seconds",
			Help: "Unix time the run started.",
		}),
		runTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "latprobe_run_duration_seconds",
			Help: "Wall clock duration of the run in seconds.",
		}),
	}
}

// collectors returns all metric collectors
func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.probes,
		m.latency,
		m.histogram,
		m.runStart,
		m.runTime,
	}
}

// NewRegistry returns a registry holding the metrics of res.
func NewRegistry(res *latency.Results) (*prometheus.Registry, error) {
	m := newMetrics()

	registry := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	m.runStart.Set(float64(res.StartedAt.UnixNano()) / 1e9)
	m.runTime.Set(res.Duration().Seconds())

	for _, ts := range res.Ordered() {
		target := ts.Target()
		for _, s := range ts.Samples() {
			m.probes.WithLabelValues(target, s.Outcome.Kind.String()).Inc()
			if s.Outcome.IsSuccess() {
				m.histogram.WithLabelValues(target).Observe(s.Latency.Seconds())
			}
		}

		l := ts.Summary().Latency
		if l == nil {
			continue
		}
		for stat, value := range map[string]float64{
			"min":    l.Min.Seconds(),
			"avg":    l.Mean.Seconds(),
			"max":    l.Max.Seconds(),
			"stddev": l.StdDev.Seconds(),
			"p50":    l.P50.Seconds(),
			"p90":    l.P90.Seconds(),
			"p95":    l.P95.Seconds(),
			"p99":    l.P99.Seconds(),
		} {
			m.latency.WithLabelValues(target, stat).Set(value)
		}
	}

	return registry, nil
}

// WritePrometheusFile writes the metrics of res to path in the text
// exposition format read by the node exporter textfile collector.
func WritePrometheusFile(path string, res *latency.Results) error {
	registry, err := NewRegistry(res)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", path, err)
	}
	return nil
}
