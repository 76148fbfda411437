package app

import (
	"sync"
	"sync/atomic"

	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/metric"
	"github.com/canlabs/buslog/internal/ports"
	"github.com/canlabs/buslog/internal/ring"
)

// ProducerState is the producer's accumulation state machine.
type ProducerState int

const (
	// ProducerAccumulating means the staging block is being filled.
	ProducerAccumulating ProducerState = iota

	// ProducerFaulted is the sticky terminal state entered on overrun.
	// A faulted producer accepts no further frames.
	ProducerFaulted
)

// OverrunEmitter is notified once when the producer faults on overrun.
type OverrunEmitter interface {
	OnOverrun(pendingBlocks int)
}

// Producer appends incoming frames into a staging block and, on staging
// completion, publishes the block into the ring buffer.
//
// OnFrame never blocks and performs no I/O: a full ring is detected with
// a non-blocking claim and turned into a fault instead of a stall, so the
// producer stays inside its capture-cadence budget even when storage is
// slow. All methods except State and Faulted must be called from the
// single producer goroutine.
type Producer struct {
	ring    *ring.Buffer
	staging *domain.Block
	logger  ports.Logger
	metrics *metric.Metrics
	emitter OverrunEmitter

	state atomic.Int32

	faultOnce sync.Once
	faulted   chan struct{}

	frames uint64
	blocks uint64
}

// NewProducer creates a producer publishing into rb.
// metrics and emitter may be nil.
func NewProducer(rb *ring.Buffer, blockFrames int, logger ports.Logger, metrics *metric.Metrics, emitter OverrunEmitter) *Producer {
	return &Producer{
		ring:    rb,
		staging: domain.NewBlock(blockFrames),
		logger:  logger,
		metrics: metrics,
		emitter: emitter,
		faulted: make(chan struct{}),
	}
}

// State returns the producer's current state. Safe from any goroutine.
func (p *Producer) State() ProducerState {
	return ProducerState(p.state.Load())
}

// Faulted returns a channel that is closed once the producer has entered
// its terminal overrun state, so orchestration can await the halt.
func (p *Producer) Faulted() <-chan struct{} {
	return p.faulted
}

// Frames returns the number of frames accepted so far.
func (p *Producer) Frames() uint64 {
	return atomic.LoadUint64(&p.frames)
}

// Blocks returns the number of blocks published so far.
func (p *Producer) Blocks() uint64 {
	return atomic.LoadUint64(&p.blocks)
}

// OnFrame appends one captured frame into the staging block. When the
// frame completes the block, the block is published into the ring.
//
// Returns domain.ErrOverrun if the ring had no free slot for a completed
// block, or on any call after that: the overrun fault is sticky and the
// producer halts rather than silently dropping bus traffic.
func (p *Producer) OnFrame(f domain.Frame) error {
	if p.State() == ProducerFaulted {
		return domain.ErrOverrun
	}

	if err := p.staging.Append(f); err != nil {
		return err
	}
	atomic.AddUint64(&p.frames, 1)
	if p.metrics != nil {
		p.metrics.FramesCaptured.Inc()
	}

	if !p.staging.Full() {
		return nil
	}
	return p.publishStaging()
}

// publishStaging moves the completed staging block into a ring slot.
func (p *Producer) publishStaging() error {
	h, err := p.ring.TryClaim()
	if err != nil {
		p.fault()
		return domain.ErrOverrun
	}

	h.Block().CopyFrom(p.staging)
	if err := p.ring.Publish(h); err != nil {
		// Unreachable under the single-producer contract; surface it
		// rather than losing the block silently.
		return err
	}
	p.staging.Reset()

	atomic.AddUint64(&p.blocks, 1)
	if p.metrics != nil {
		p.metrics.BlocksPublished.Inc()
		p.metrics.RingBacklog.Set(float64(p.ring.FilledLen()))
		p.metrics.RingFree.Set(float64(p.ring.FreeLen()))
	}
	return nil
}

// fault enters the sticky terminal overrun state.
func (p *Producer) fault() {
	p.faultOnce.Do(func() {
		p.state.Store(int32(ProducerFaulted))
		pending := p.ring.FilledLen()
		p.logger.Error("ring buffer overrun, producer halted",
			ports.Int("pending_blocks", pending),
			ports.Uint64("frames_accepted", p.Frames()),
			ports.Uint64("blocks_published", p.Blocks()),
		)
		if p.metrics != nil {
			p.metrics.Overruns.Inc()
		}
		if p.emitter != nil {
			p.emitter.OnOverrun(pending)
		}
		close(p.faulted)
	})
}
