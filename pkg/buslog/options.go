package buslog

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canlabs/buslog/internal/ports"
	"github.com/canlabs/buslog/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// Field represents a structured log field.
type Field = log.Field

// FrameSource produces CAN frames for the pipeline. Implement this to
// capture from real hardware; the built-in sources generate synthetic
// load or replay a capture file.
type FrameSource = ports.FrameSource

// BlockSink receives completed blocks from the pipeline. The built-in
// sink writes a capture file on the storage volume.
type BlockSink = ports.BlockSink

// Option configures optional behavior of a Buslog instance.
type Option func(*options)

// options holds the optional configuration for a Buslog instance.
type options struct {
	logger       ports.Logger
	source       ports.FrameSource
	sink         ports.BlockSink
	eventHandler EventHandler
	registerer   prometheus.Registerer
	plugins      []Plugin
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSource sets the frame source. If not provided, a synthetic source
// generating frames at a 1 ms cadence is used.
func WithSource(source FrameSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithSink sets the block sink. If not provided, a capture file sink
// writing under Config.OutputDir is created per run.
func WithSink(sink BlockSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithEventHandler sets a handler for pipeline events.
// Events are called synchronously from pipeline goroutines.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetrics registers the pipeline metrics with the given Prometheus
// registerer. If not provided, metrics are still collected but not
// registered anywhere.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithPlugin registers a plugin to be initialized when the instance
// starts. Plugins are initialized in registration order and shut down
// in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
