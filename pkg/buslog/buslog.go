package buslog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/canlabs/buslog/internal/adapters/capture"
	"github.com/canlabs/buslog/internal/adapters/fs"
	"github.com/canlabs/buslog/internal/app"
	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/metric"
	"github.com/canlabs/buslog/internal/ports"
	"github.com/canlabs/buslog/pkg/log"
)

// Buslog is a CAN bus capture pipeline that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin
// capturing.
type Buslog struct {
	config  Config
	opts    options
	logger  ports.Logger
	metrics *metric.Metrics
	emitter eventEmitterWrapper

	lifecycle *app.Lifecycle
	plugins   []Plugin

	mu       sync.RWMutex
	pipeline *app.Pipeline
	cancel   context.CancelFunc
}

// New creates a new Buslog instance with the given configuration.
// The instance is created in StateStopped; call Start() to begin
// capturing. Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Buslog, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger
	if o.logger != nil {
		logger = o.logger
	} else {
		logger = log.NewNoopLogger()
	}

	metrics := metric.NewMetrics()
	if o.registerer != nil {
		if err := metrics.Register(o.registerer); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	b := &Buslog{
		config:  cfg,
		opts:    o,
		logger:  logger,
		metrics: metrics,
		plugins: o.plugins,
	}
	b.emitter = eventEmitterWrapper{handler: o.eventHandler, metrics: metrics}
	b.lifecycle = app.NewLifecycle(logger, &b.emitter)
	return b, nil
}

// Start begins capturing in the background.
// Returns immediately after starting the pipeline goroutines.
// Returns an error if already running or if startup fails.
// The provided context bounds the lifetime of the capture run.
func (b *Buslog) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.lifecycle.SetCancel(cancel)

	source, sink, capturePath, err := b.buildEndpoints()
	if err != nil {
		cancel()
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "startup failed")
		return err
	}
	closeEndpoints := func() {
		if cerr := sink.Close(); cerr != nil {
			b.logger.Warn("sink close failed", ports.Err(cerr))
		}
		if cerr := source.Close(); cerr != nil {
			b.logger.Warn("source close failed", ports.Err(cerr))
		}
	}

	pipeline, err := app.NewPipeline(app.PipelineConfig{
		RingBlocks:    b.config.RingBlocks,
		BlockFrames:   b.config.BlockFrames,
		StatsInterval: b.config.StatsInterval,
		Consumer: app.ConsumerConfig{
			WriteAttempts:  b.config.WriteAttempts,
			BackoffInitial: b.config.WriteBackoffInitial,
			BackoffMax:     b.config.WriteBackoffMax,
		},
	}, source, sink, b.logger, b.metrics, &b.emitter)
	if err != nil {
		closeEndpoints()
		cancel()
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "startup failed")
		return err
	}
	b.pipeline = pipeline

	pluginCfg := PluginConfig{
		OutputDir:        b.config.OutputDir,
		RunID:            b.config.RunID,
		CapturePath:      capturePath,
		Logger:           b.logger,
		SetStatsInterval: pipeline.SetStatsInterval,
	}
	for _, p := range b.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			b.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			closeEndpoints()
			cancel()
			_ = b.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		b.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	// Transition while still holding the mutex so a concurrent Stop()
	// cannot interleave between Starting and Running.
	if err := b.lifecycle.TransitionTo(app.StateRunning, "pipeline starting"); err != nil {
		closeEndpoints()
		cancel()
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "startup failed")
		return err
	}

	b.lifecycle.AddWorker()
	go func() {
		defer b.lifecycle.WorkerDone()

		err := pipeline.Run(runCtx)

		if cerr := source.Close(); cerr != nil {
			b.logger.Warn("source close failed", ports.Err(cerr))
		}

		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			b.logger.Error("pipeline error", ports.Err(err))
			_ = b.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		case err == nil && runCtx.Err() == nil:
			// The source ran dry on its own, e.g. a replay reached EOF
			// or a frame budget was hit.
			_ = b.lifecycle.TransitionTo(app.StateStopping, "source exhausted")
			_ = b.lifecycle.TransitionTo(app.StateStopped, "pipeline completed")
		}
	}()

	return nil
}

// buildEndpoints resolves the frame source and block sink for one run,
// creating the default capture file sink and synthetic source where no
// custom ones were provided.
func (b *Buslog) buildEndpoints() (ports.FrameSource, ports.BlockSink, string, error) {
	source := b.opts.source
	if source == nil {
		source = capture.NewSynthetic(capture.SyntheticConfig{})
	}

	if b.opts.sink != nil {
		return source, b.opts.sink, "", nil
	}
	if b.config.OutputDir == "" {
		return nil, nil, "", fmt.Errorf("%w: output directory is required", domain.ErrInvalidConfig)
	}
	sink, err := fs.NewSink(fs.SinkConfig{
		Dir:             b.config.OutputDir,
		FilePrefix:      b.config.FilePrefix,
		RunID:           b.config.RunID,
		SyncEveryBlocks: b.config.SyncEveryBlocks,
	}, b.logger)
	if err != nil {
		return nil, nil, "", err
	}
	return source, sink, sink.Path(), nil
}

// Stop gracefully shuts down the pipeline.
// Drains published blocks to storage and syncs the capture file.
// Waits up to 30 seconds before forcing shutdown.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (b *Buslog) Stop() error {
	b.mu.Lock()

	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	err := b.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	shutdownCtx := context.Background()
	for i := len(b.plugins) - 1; i >= 0; i-- {
		p := b.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			b.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			b.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Buslog) Status() State {
	return convertState(b.lifecycle.State())
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	FramesCaptured  uint64
	BlocksPublished uint64
	BlocksWritten   uint64
	RingBacklog     int
	RingFree        int
}

// Stats returns a snapshot of the pipeline counters. Zero values are
// returned before the first Start.
func (b *Buslog) Stats() Stats {
	b.mu.RLock()
	p := b.pipeline
	b.mu.RUnlock()
	if p == nil {
		return Stats{}
	}
	return Stats{
		FramesCaptured:  p.Producer().Frames(),
		BlocksPublished: p.Producer().Blocks(),
		BlocksWritten:   p.Consumer().Written(),
		RingBacklog:     p.Ring().FilledLen(),
		RingFree:        p.Ring().FreeLen(),
	}
}

// eventEmitterWrapper adapts EventHandler to the internal emitter
// interfaces and mirrors state transitions into the metrics gauge.
type eventEmitterWrapper struct {
	handler EventHandler
	metrics *metric.Metrics
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.metrics != nil {
		e.metrics.PipelineState.Set(float64(current))
	}
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBlockWritten(bytes int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnBlockWritten(BlockWrittenEvent{Bytes: bytes, Duration: duration})
}

func (e *eventEmitterWrapper) OnOverrun(pendingBlocks int) {
	if e.handler == nil {
		return
	}
	e.handler.OnOverrun(OverrunEvent{PendingBlocks: pendingBlocks})
}

func (e *eventEmitterWrapper) OnWriteError(err error, attempt int, retryable bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnWriteError(WriteErrorEvent{Error: err, Attempt: attempt, Retryable: retryable})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
