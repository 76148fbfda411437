// Package ring implements the fixed-capacity single-producer
// single-consumer block ring buffer at the heart of the capture pipeline.
package ring

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/canlabs/buslog/internal/domain"
)

// Per-slot lifecycle states. A slot cycles free -> claimed -> published ->
// writing -> free forever. The state word is what rejects out-of-order
// handle use (double publish, double release, release of an unclaimed slot).
const (
	slotFree uint32 = iota
	slotClaimed
	slotPublished
	slotWriting
)

// Buffer is a fixed-capacity single-producer single-consumer ring of
// pre-allocated blocks.
//
// The producer and consumer are decoupled by two counting primitives,
// realized as buffered channels: free (slots available to the producer)
// and filled (slots holding published, not-yet-written data). Each side
// only ever signals the channel the other side waits on, and only ever
// consumes the channel it tests or waits on itself. Because of that, the
// write index is touched only by the producer and the read index only by
// the consumer, so neither index needs a lock.
//
// The invariant len(filled) + len(free) == capacity holds whenever no
// claim or take is mid-flight.
//
// Buffer is safe for exactly one producer goroutine and exactly one
// consumer goroutine. It is not safe to generalize to multiple producers
// or consumers without adding mutual exclusion around the index advances.
type Buffer struct {
	slots  []*domain.Block
	states []atomic.Uint32

	writeIdx int // mutated only by TryClaim (producer side)
	readIdx  int // mutated only by WaitAndTake/TryTake (consumer side)

	free   chan struct{}
	filled chan struct{}
}

// SlotHandle refers to one claimed or taken ring slot.
// A handle obtained from TryClaim must be passed to Publish exactly once;
// a handle obtained from WaitAndTake or TryTake must be passed to Release
// exactly once, after the block's contents have been durably written.
type SlotHandle struct {
	buf   *Buffer
	index int
}

// Block returns the pre-allocated block backing the slot.
func (h SlotHandle) Block() *domain.Block {
	return h.buf.slots[h.index]
}

// Index returns the slot's position in the ring, for diagnostics.
func (h SlotHandle) Index() int {
	return h.index
}

// New creates a ring of capacity pre-allocated blocks of blockFrames
// frames each. All slots start free. Blocks are never reallocated after
// this point; they cycle between staging, published and free for the
// lifetime of the buffer.
func New(capacity, blockFrames int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: ring capacity %d, need at least 1", domain.ErrInvalidConfig, capacity)
	}
	if blockFrames < 1 {
		return nil, fmt.Errorf("%w: block frames %d, need at least 1", domain.ErrInvalidConfig, blockFrames)
	}

	b := &Buffer{
		slots:  make([]*domain.Block, capacity),
		states: make([]atomic.Uint32, capacity),
		free:   make(chan struct{}, capacity),
		filled: make(chan struct{}, capacity),
	}
	for i := range b.slots {
		b.slots[i] = domain.NewBlock(blockFrames)
		b.free <- struct{}{}
	}
	return b, nil
}

// Capacity returns the fixed number of slots in the ring.
func (b *Buffer) Capacity() int {
	return len(b.slots)
}

// FilledLen returns the number of published, not-yet-taken slots.
func (b *Buffer) FilledLen() int {
	return len(b.filled)
}

// FreeLen returns the number of slots available to the producer.
func (b *Buffer) FreeLen() int {
	return len(b.free)
}

// TryClaim attempts a non-blocking claim of one free slot.
// On success it consumes one free token, returns a handle to the slot at
// the write index and advances the write index. It never blocks: if no
// slot is free it returns domain.ErrNoSpace immediately, leaving fault
// policy to the caller.
//
// Producer side only.
func (b *Buffer) TryClaim() (SlotHandle, error) {
	select {
	case <-b.free:
	default:
		return SlotHandle{}, domain.ErrNoSpace
	}

	idx := b.writeIdx
	if !b.states[idx].CompareAndSwap(slotFree, slotClaimed) {
		// A free token existed but the slot at the write index is not
		// free: the single-producer contract was violated upstream.
		b.free <- struct{}{}
		return SlotHandle{}, fmt.Errorf("%w: slot %d not free on claim", domain.ErrSlotState, idx)
	}
	b.writeIdx = (b.writeIdx + 1) % len(b.slots)
	return SlotHandle{buf: b, index: idx}, nil
}

// Publish marks the handle's block as fully written by the producer and
// signals availability to the consumer. Must be called exactly once per
// successful TryClaim.
//
// Producer side only.
func (b *Buffer) Publish(h SlotHandle) error {
	if h.buf != b {
		return fmt.Errorf("%w: handle from a different ring", domain.ErrSlotState)
	}
	if !b.states[h.index].CompareAndSwap(slotClaimed, slotPublished) {
		return fmt.Errorf("%w: slot %d not claimed on publish", domain.ErrSlotState, h.index)
	}
	b.filled <- struct{}{}
	return nil
}

// WaitAndTake blocks until a published slot is available, then returns a
// handle to the slot at the read index and advances the read index. This
// is the only operation in the pipeline that suspends the consumer; it
// wakes exactly once per publish with no busy polling. Cancel ctx for a
// responsive shutdown.
//
// Consumer side only.
func (b *Buffer) WaitAndTake(ctx context.Context) (SlotHandle, error) {
	select {
	case <-b.filled:
	case <-ctx.Done():
		return SlotHandle{}, ctx.Err()
	}
	return b.take()
}

// TryTake is the non-blocking variant of WaitAndTake, used to drain
// already-published blocks during shutdown. Returns false if no published
// slot is available.
//
// Consumer side only.
func (b *Buffer) TryTake() (SlotHandle, bool, error) {
	select {
	case <-b.filled:
	default:
		return SlotHandle{}, false, nil
	}
	h, err := b.take()
	return h, err == nil, err
}

func (b *Buffer) take() (SlotHandle, error) {
	idx := b.readIdx
	if !b.states[idx].CompareAndSwap(slotPublished, slotWriting) {
		b.filled <- struct{}{}
		return SlotHandle{}, fmt.Errorf("%w: slot %d not published on take", domain.ErrSlotState, idx)
	}
	b.readIdx = (b.readIdx + 1) % len(b.slots)
	return SlotHandle{buf: b, index: idx}, nil
}

// Release returns the handle's slot to the free pool and signals
// availability to the producer. Must be called exactly once per
// WaitAndTake or successful TryTake, after the block's contents have
// been durably written.
//
// Consumer side only.
func (b *Buffer) Release(h SlotHandle) error {
	if h.buf != b {
		return fmt.Errorf("%w: handle from a different ring", domain.ErrSlotState)
	}
	if !b.states[h.index].CompareAndSwap(slotWriting, slotFree) {
		return fmt.Errorf("%w: slot %d not taken on release", domain.ErrSlotState, h.index)
	}
	h.Block().Reset()
	b.free <- struct{}{}
	return nil
}
