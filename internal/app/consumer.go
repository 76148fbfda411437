package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/canlabs/buslog/internal/metric"
	"github.com/canlabs/buslog/internal/ports"
	"github.com/canlabs/buslog/internal/ring"
)

// DefaultWriteAttempts is the bounded retry budget for one block write.
// After this many failed attempts the storage fault is fatal to the
// pipeline: the taken slot is deliberately not released, since its data
// was never made durable.
const DefaultWriteAttempts = 3

// WriteEventEmitter is notified about consumer-side storage activity.
type WriteEventEmitter interface {
	OnBlockWritten(bytes int, duration time.Duration)
	OnWriteError(err error, attempt int, retryable bool)
}

// ConsumerConfig contains tunables for the consumer loop.
type ConsumerConfig struct {
	// WriteAttempts bounds retries per block; 0 means DefaultWriteAttempts.
	WriteAttempts int

	// BackoffInitial and BackoffMax shape the retry backoff; zero values
	// use the package defaults.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Consumer drains published blocks from the ring buffer and writes each
// one to the storage sink. Its only suspension point is the blocking wait
// on the ring's filled counter; everything else is bounded work.
type Consumer struct {
	config  ConsumerConfig
	ring    *ring.Buffer
	sink    ports.BlockSink
	logger  ports.Logger
	metrics *metric.Metrics
	emitter WriteEventEmitter

	written uint64
}

// NewConsumer creates a consumer draining rb into sink.
// metrics and emitter may be nil.
func NewConsumer(config ConsumerConfig, rb *ring.Buffer, sink ports.BlockSink, logger ports.Logger, metrics *metric.Metrics, emitter WriteEventEmitter) *Consumer {
	if config.WriteAttempts <= 0 {
		config.WriteAttempts = DefaultWriteAttempts
	}
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = DefaultBackoffInitial
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = DefaultBackoffMax
	}
	return &Consumer{
		config:  config,
		ring:    rb,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		emitter: emitter,
	}
}

// Written returns the number of blocks durably written so far.
// Safe from any goroutine.
func (c *Consumer) Written() uint64 {
	return atomic.LoadUint64(&c.written)
}

// Run executes the consumer loop until ctx is canceled or a storage
// fault exhausts its retry budget. On cancellation it drains any
// already-published blocks before returning, so a clean shutdown loses
// no published data. Returns nil on clean shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		h, err := c.ring.WaitAndTake(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return c.drain()
			}
			return err
		}
		if err := c.consume(ctx, h); err != nil {
			return err
		}
	}
}

// drain writes out the blocks that were already published when shutdown
// was requested. Writes run under a fresh context so cancellation cannot
// abort a durable write mid-block.
func (c *Consumer) drain() error {
	ctx := context.Background()
	for {
		h, ok, err := c.ring.TryTake()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := c.consume(ctx, h); err != nil {
			return err
		}
	}
}

// consume durably writes one taken block and releases its slot.
// The slot is not released on a fatal write failure.
func (c *Consumer) consume(ctx context.Context, h ring.SlotHandle) error {
	if err := c.write(ctx, h); err != nil {
		return err
	}
	if err := c.ring.Release(h); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RingBacklog.Set(float64(c.ring.FilledLen()))
		c.metrics.RingFree.Set(float64(c.ring.FreeLen()))
	}
	return nil
}

// write performs one block write with the bounded retry policy.
func (c *Consumer) write(ctx context.Context, h ring.SlotHandle) error {
	size := h.Block().EncodedSize()
	bo := newBackoff(c.config.BackoffInitial, c.config.BackoffMax)

	var err error
	for attempt := 1; attempt <= c.config.WriteAttempts; attempt++ {
		start := time.Now()
		err = c.sink.WriteBlock(ctx, h.Block())
		duration := time.Since(start)

		if err == nil {
			atomic.AddUint64(&c.written, 1)
			if c.metrics != nil {
				c.metrics.BlocksWritten.Inc()
				c.metrics.BytesWritten.Add(float64(size))
				c.metrics.WriteDuration.Observe(duration.Seconds())
			}
			if c.emitter != nil {
				c.emitter.OnBlockWritten(size, duration)
			}
			return nil
		}

		retryable := attempt < c.config.WriteAttempts
		c.logger.Error("block write failed",
			ports.Err(err),
			ports.Int("attempt", attempt),
			ports.Int("attempts_max", c.config.WriteAttempts),
			ports.Int("slot", h.Index()),
		)
		if c.emitter != nil {
			c.emitter.OnWriteError(err, attempt, retryable)
		}
		if !retryable {
			break
		}
		if c.metrics != nil {
			c.metrics.WriteRetries.Inc()
		}
		if serr := bo.Sleep(ctx); serr != nil {
			break
		}
	}

	if c.metrics != nil {
		c.metrics.WriteFailures.Inc()
	}
	return fmt.Errorf("storage write failed after %d attempts: %w", c.config.WriteAttempts, err)
}
