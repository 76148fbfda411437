// Package capture implements the frame source adapters standing in for
// the hardware capture interrupt: a synthetic traffic generator and a
// capture-file replay.
package capture

import (
	"context"
	"math/rand"
	"time"

	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/ports"
)

// Arbitration IDs of the simulated devices, matching the CTRE base IDs
// seen on an FRC robot bus.
var syntheticIDs = []uint32{
	0x02041400 | 0x01, // Talon SRX 1, status 1
	0x02041440 | 0x01, // Talon SRX 1, status 2
	0x02041400 | 0x02, // Talon SRX 2, status 1
	0x01041400 | 0x03, // Victor SPX 3, status 1
	0x08041400 | 0x00, // PDP, status 1
	0x08041440 | 0x00, // PDP, status 2
	0x08041480 | 0x00, // PDP, status 3
}

// SyntheticConfig configures the synthetic frame generator.
type SyntheticConfig struct {
	// Period is the fixed sampling period between frames.
	Period time.Duration

	// FrameBudget stops the source after this many frames; 0 means
	// unlimited.
	FrameBudget uint64

	// Seed seeds the payload generator for reproducible runs; 0 uses
	// the current time.
	Seed int64
}

// Synthetic generates CAN frames on a fixed cadence, the synthetic-load
// stand-in for the hardware capture source.
type Synthetic struct {
	config SyntheticConfig
	rng    *rand.Rand
	start  time.Time
	count  uint64
}

// NewSynthetic creates a synthetic source.
func NewSynthetic(config SyntheticConfig) *Synthetic {
	if config.Period <= 0 {
		config.Period = time.Millisecond
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthetic{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		start:  time.Now(),
	}
}

// Next waits one sampling period and returns the next generated frame.
func (s *Synthetic) Next(ctx context.Context) (domain.Frame, error) {
	if s.config.FrameBudget > 0 && s.count >= s.config.FrameBudget {
		return domain.Frame{}, ports.ErrSourceExhausted
	}

	t := time.NewTimer(s.config.Period)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return domain.Frame{}, ctx.Err()
	case <-t.C:
	}

	f := domain.Frame{
		ID:        syntheticIDs[s.count%uint64(len(syntheticIDs))],
		Timestamp: uint16(time.Since(s.start).Microseconds()),
		Extended:  true,
		Length:    domain.MaxPayload,
	}
	s.rng.Read(f.Payload[:])
	s.count++
	return f, nil
}

// Close releases the source; the generator holds no resources.
func (s *Synthetic) Close() error {
	return nil
}
