package ports

import (
	"context"
	"errors"

	"github.com/canlabs/buslog/internal/domain"
)

// ErrSourceExhausted is returned by Next when the source has no further
// frames and never will (end of a replay file, generator frame budget
// reached). The pipeline treats it as a clean end of capture.
var ErrSourceExhausted = errors.New("buslog: frame source exhausted")

// FrameSource delivers captured CAN frames to the producer, one per call,
// in capture order. The real capture source is a hardware interrupt; the
// adapters in this repository stand in for it with a periodic synthetic
// generator and a capture-file replay.
type FrameSource interface {
	// Next blocks until the next frame is available and returns it.
	// Returns ErrSourceExhausted when no more frames will arrive, or the
	// context error if ctx is canceled while waiting.
	Next(ctx context.Context) (domain.Frame, error)

	// Close releases any resources held by the source.
	Close() error
}
