// Package metric defines the Prometheus instrumentation for the capture
// pipeline.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains all pipeline-level metrics.
type Metrics struct {
	FramesCaptured  prometheus.Counter
	BlocksPublished prometheus.Counter
	BlocksWritten   prometheus.Counter
	BytesWritten    prometheus.Counter
	Overruns        prometheus.Counter
	WriteRetries    prometheus.Counter
	WriteFailures   prometheus.Counter
	RingBacklog     prometheus.Gauge
	RingFree        prometheus.Gauge
	PipelineState   prometheus.Gauge
	WriteDuration   prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all pipeline metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FramesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "capture",
			Name:      "frames_total",
			Help:      "Total number of frames accepted by the producer",
		}),
		BlocksPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "ring",
			Name:      "blocks_published_total",
			Help:      "Total number of blocks published into the ring buffer",
		}),
		BlocksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "storage",
			Name:      "blocks_written_total",
			Help:      "Total number of blocks durably written to storage",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "storage",
			Name:      "bytes_written_total",
			Help:      "Total number of bytes durably written to storage",
		}),
		Overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "ring",
			Name:      "overruns_total",
			Help:      "Total number of ring buffer overruns (publish attempts with zero free slots)",
		}),
		WriteRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "storage",
			Name:      "write_retries_total",
			Help:      "Total number of retried block writes",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buslog",
			Subsystem: "storage",
			Name:      "write_failures_total",
			Help:      "Total number of block writes that exhausted their retry budget",
		}),
		RingBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buslog",
			Subsystem: "ring",
			Name:      "backlog_blocks",
			Help:      "Number of published blocks waiting to be written",
		}),
		RingFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buslog",
			Subsystem: "ring",
			Name:      "free_blocks",
			Help:      "Number of free ring slots available to the producer",
		}),
		PipelineState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buslog",
			Subsystem: "pipeline",
			Name:      "state",
			Help:      "Pipeline lifecycle state (0=stopped, 1=starting, 2=running, 3=stopping, 4=crashed)",
		}),
		WriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "buslog",
			Subsystem: "storage",
			Name:      "write_duration_seconds",
			Help:      "Block write duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
}

// Register registers all pipeline metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FramesCaptured,
		m.BlocksPublished,
		m.BlocksWritten,
		m.BytesWritten,
		m.Overruns,
		m.WriteRetries,
		m.WriteFailures,
		m.RingBacklog,
		m.RingFree,
		m.PipelineState,
		m.WriteDuration,
	}
}

// NewRegistry creates a dedicated Prometheus registry with the pipeline
// metrics and the Go runtime collectors registered.
func NewRegistry() (*prometheus.Registry, *Metrics, error) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		return nil, nil, err
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, m, nil
}
