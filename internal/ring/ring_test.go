package ring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canlabs/buslog/internal/domain"
)

func fillBlock(t *testing.T, b *domain.Block, firstID uint32) {
	t.Helper()
	for i := 0; !b.Full(); i++ {
		require.NoError(t, b.Append(domain.Frame{ID: firstID + uint32(i)}))
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 2)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New(4, 0)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestBuffer_StartsAllFree(t *testing.T) {
	b, err := New(4, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, b.Capacity())
	assert.Equal(t, 4, b.FreeLen())
	assert.Equal(t, 0, b.FilledLen())
}

func TestBuffer_ClaimPublishTakeRelease(t *testing.T) {
	b, err := New(4, 2)
	require.NoError(t, err)

	h, err := b.TryClaim()
	require.NoError(t, err)
	fillBlock(t, h.Block(), 100)
	require.NoError(t, b.Publish(h))

	assert.Equal(t, 1, b.FilledLen())
	assert.Equal(t, 3, b.FreeLen())

	got, err := b.WaitAndTake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, h.Index(), got.Index())
	assert.Equal(t, uint32(100), got.Block().Frame(0).ID)

	require.NoError(t, b.Release(got))
	assert.Equal(t, 4, b.FreeLen())
	assert.Equal(t, 0, b.FilledLen())
}

func TestBuffer_ConservationAfterEachTransaction(t *testing.T) {
	b, err := New(4, 2)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		h, err := b.TryClaim()
		require.NoError(t, err)
		fillBlock(t, h.Block(), uint32(i))
		require.NoError(t, b.Publish(h))

		got, err := b.WaitAndTake(context.Background())
		require.NoError(t, err)
		require.NoError(t, b.Release(got))

		assert.Equal(t, b.Capacity(), b.FilledLen()+b.FreeLen(),
			"filled+free must equal capacity after transaction %d", i)
	}
}

func TestBuffer_BackpressureAtCapacity(t *testing.T) {
	b, err := New(4, 2)
	require.NoError(t, err)

	// Fill all M slots with no consumption.
	for i := 0; i < 4; i++ {
		h, err := b.TryClaim()
		require.NoError(t, err, "claim %d", i)
		fillBlock(t, h.Block(), uint32(i*10))
		require.NoError(t, b.Publish(h))
	}

	// The ring must never wrap past an unconsumed slot.
	_, err = b.TryClaim()
	require.ErrorIs(t, err, domain.ErrNoSpace)

	// Draining one block makes exactly one slot claimable again.
	got, err := b.WaitAndTake(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Release(got))

	h, err := b.TryClaim()
	require.NoError(t, err)
	fillBlock(t, h.Block(), 40)
	require.NoError(t, b.Publish(h))

	_, err = b.TryClaim()
	require.ErrorIs(t, err, domain.ErrNoSpace)
}

func TestBuffer_FIFOOrder(t *testing.T) {
	b, err := New(4, 2)
	require.NoError(t, err)

	// Two full wraps of the ring.
	next := uint32(0)
	for round := 0; round < 2; round++ {
		for i := 0; i < 4; i++ {
			h, err := b.TryClaim()
			require.NoError(t, err)
			fillBlock(t, h.Block(), next)
			next += uint32(h.Block().Cap())
			require.NoError(t, b.Publish(h))
		}

		for i := 0; i < 4; i++ {
			got, err := b.WaitAndTake(context.Background())
			require.NoError(t, err)
			want := uint32(round*8 + i*2)
			assert.Equal(t, want, got.Block().Frame(0).ID, "blocks must drain in publish order")
			assert.Equal(t, want+1, got.Block().Frame(1).ID, "frames must retain capture order")
			require.NoError(t, b.Release(got))
		}
	}
}

func TestBuffer_DoublePublishRejected(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)

	h, err := b.TryClaim()
	require.NoError(t, err)
	fillBlock(t, h.Block(), 0)
	require.NoError(t, b.Publish(h))

	err = b.Publish(h)
	require.ErrorIs(t, err, domain.ErrSlotState)
	assert.Equal(t, 1, b.FilledLen(), "failed publish must not add a filled token")
}

func TestBuffer_DoubleReleaseRejected(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)

	h, err := b.TryClaim()
	require.NoError(t, err)
	fillBlock(t, h.Block(), 0)
	require.NoError(t, b.Publish(h))

	got, err := b.WaitAndTake(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Release(got))

	err = b.Release(got)
	require.ErrorIs(t, err, domain.ErrSlotState)
	assert.Equal(t, 2, b.FreeLen(), "failed release must not add a free token")
}

func TestBuffer_ReleaseOfUnpublishedRejected(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)

	h, err := b.TryClaim()
	require.NoError(t, err)

	err = b.Release(h)
	require.ErrorIs(t, err, domain.ErrSlotState)
}

func TestBuffer_WaitAndTakeHonorsContext(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = b.WaitAndTake(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuffer_TryTakeDrain(t *testing.T) {
	b, err := New(3, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		h, err := b.TryClaim()
		require.NoError(t, err)
		fillBlock(t, h.Block(), uint32(i*2))
		require.NoError(t, b.Publish(h))
	}

	var drained int
	for {
		h, ok, err := b.TryTake()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NoError(t, b.Release(h))
		drained++
	}
	assert.Equal(t, 2, drained)
	assert.Equal(t, 3, b.FreeLen())
}

// TestBuffer_ConcurrentSPSC runs one producer goroutine against one
// consumer goroutine across many wraps and verifies that every block
// arrives intact and in order.
func TestBuffer_ConcurrentSPSC(t *testing.T) {
	const blocks = 1000

	b, err := New(4, 2)
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		next := uint32(0)
		for i := 0; i < blocks; i++ {
			var h SlotHandle
			for {
				var err error
				h, err = b.TryClaim()
				if err == nil {
					break
				}
				if !errors.Is(err, domain.ErrNoSpace) {
					errs <- err
					return
				}
				time.Sleep(time.Microsecond)
			}
			for !h.Block().Full() {
				if err := h.Block().Append(domain.Frame{ID: next}); err != nil {
					errs <- err
					return
				}
				next++
			}
			if err := b.Publish(h); err != nil {
				errs <- err
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	want := uint32(0)
	for i := 0; i < blocks; i++ {
		h, err := b.WaitAndTake(ctx)
		require.NoError(t, err)
		for j := 0; j < h.Block().Len(); j++ {
			require.Equal(t, want, h.Block().Frame(j).ID)
			want++
		}
		require.NoError(t, b.Release(h))
	}

	require.NoError(t, <-errs)
	assert.Equal(t, b.Capacity(), b.FilledLen()+b.FreeLen())
}
