package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/metric"
	"github.com/canlabs/buslog/internal/ports"
	"github.com/canlabs/buslog/internal/ring"
)

// PipelineConfig contains configuration for the capture pipeline.
type PipelineConfig struct {
	// RingBlocks is the ring buffer capacity M in blocks.
	RingBlocks int

	// BlockFrames is the number of frames N per block.
	BlockFrames int

	// StatsInterval is how often backlog statistics are logged.
	// Zero disables the stats reporter.
	StatsInterval time.Duration

	// Consumer holds the consumer-side tunables.
	Consumer ConsumerConfig
}

// PipelineEventEmitter aggregates the producer and consumer event hooks.
type PipelineEventEmitter interface {
	OverrunEmitter
	WriteEventEmitter
}

// Pipeline wires the capture source, producer, ring buffer, consumer and
// storage sink together and runs them as two schedulable contexts: the
// pump goroutine (capture source -> producer) and the consumer goroutine
// (ring -> sink). The ring buffer and its two counters are the only
// coupling between the two.
type Pipeline struct {
	config   PipelineConfig
	ring     *ring.Buffer
	producer *Producer
	consumer *Consumer
	source   ports.FrameSource
	sink     ports.BlockSink
	logger   ports.Logger
	metrics  *metric.Metrics

	statsInterval atomic.Int64
}

// NewPipeline creates a pipeline over the given source and sink.
// metrics and emitter may be nil.
func NewPipeline(config PipelineConfig, source ports.FrameSource, sink ports.BlockSink, logger ports.Logger, metrics *metric.Metrics, emitter PipelineEventEmitter) (*Pipeline, error) {
	rb, err := ring.New(config.RingBlocks, config.BlockFrames)
	if err != nil {
		return nil, err
	}

	var oe OverrunEmitter
	var we WriteEventEmitter
	if emitter != nil {
		oe = emitter
		we = emitter
	}

	p := &Pipeline{
		config:   config,
		ring:     rb,
		producer: NewProducer(rb, config.BlockFrames, logger, metrics, oe),
		consumer: NewConsumer(config.Consumer, rb, sink, logger, metrics, we),
		source:   source,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
	}
	p.statsInterval.Store(int64(config.StatsInterval))
	return p, nil
}

// Ring exposes the ring buffer for diagnostics and tests.
func (p *Pipeline) Ring() *ring.Buffer {
	return p.ring
}

// Producer exposes the producer for diagnostics and tests.
func (p *Pipeline) Producer() *Producer {
	return p.producer
}

// Consumer exposes the consumer for diagnostics and tests.
func (p *Pipeline) Consumer() *Consumer {
	return p.consumer
}

// SetStatsInterval changes the stats reporting cadence at runtime.
// An interval of zero pauses reporting. Safe from any goroutine.
func (p *Pipeline) SetStatsInterval(d time.Duration) {
	p.statsInterval.Store(int64(d))
}

// Run executes the pipeline until the capture source is exhausted, ctx
// is canceled, or a fault halts it. On return the sink has been synced
// and closed.
//
// Faults follow the baseline posture: an overrun halts the producer and
// then the whole run; a storage write that exhausts its retry budget is
// fatal. Either fault is returned as the run error. Clean shutdown
// (source exhausted or ctx canceled) drains published blocks and
// returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- p.consumer.Run(runCtx)
	}()

	stopStats := p.startStatsReporter(runCtx)
	defer stopStats()

	pumpErr := p.pump(runCtx)

	// Stop the consumer's blocking wait; it drains published blocks
	// before returning.
	cancel()
	cerr := <-consumerErr

	serr := p.closeSink()

	switch {
	case pumpErr != nil:
		return pumpErr
	case cerr != nil:
		return cerr
	default:
		return serr
	}
}

// pump feeds frames from the capture source into the producer until the
// source is exhausted, the context is canceled, or the producer faults.
func (p *Pipeline) pump(ctx context.Context) error {
	for {
		frame, err := p.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ports.ErrSourceExhausted):
				p.logger.Info("capture source exhausted",
					ports.Uint64("frames", p.producer.Frames()),
					ports.Uint64("blocks", p.producer.Blocks()),
				)
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			default:
				return err
			}
		}

		if err := p.producer.OnFrame(frame); err != nil {
			if errors.Is(err, domain.ErrOverrun) {
				// The producer has already logged and latched the fault.
				return domain.ErrOverrun
			}
			return err
		}
	}
}

// startStatsReporter launches the periodic backlog reporter.
// Returns a stop function.
func (p *Pipeline) startStatsReporter(ctx context.Context) func() {
	if p.config.StatsInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(p.currentStatsInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if time.Duration(p.statsInterval.Load()) <= 0 {
					// Paused via SetStatsInterval(0). Keep ticking at
					// the configured cadence so a later positive
					// interval resumes reporting.
					ticker.Reset(p.currentStatsInterval())
					continue
				}
				p.logger.Info("pipeline stats",
					ports.Uint64("frames_captured", p.producer.Frames()),
					ports.Uint64("blocks_published", p.producer.Blocks()),
					ports.Uint64("blocks_written", p.consumer.Written()),
					ports.Int("ring_backlog", p.ring.FilledLen()),
					ports.Int("ring_free", p.ring.FreeLen()),
				)
				ticker.Reset(p.currentStatsInterval())
			}
		}
	}()
	return func() { <-done }
}

func (p *Pipeline) currentStatsInterval() time.Duration {
	if d := time.Duration(p.statsInterval.Load()); d > 0 {
		return d
	}
	return p.config.StatsInterval
}

// closeSink syncs and closes the storage sink once the run is over.
func (p *Pipeline) closeSink() error {
	if err := p.sink.Sync(); err != nil {
		p.logger.Error("sink sync failed", ports.Err(err))
		return err
	}
	if err := p.sink.Close(); err != nil {
		p.logger.Error("sink close failed", ports.Err(err))
		return err
	}
	return nil
}
