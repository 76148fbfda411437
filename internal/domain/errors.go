package domain

import "errors"

// Domain errors represent error conditions in the buslog domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrNoSpace is returned by the ring buffer when a non-blocking claim
	// finds zero free slots.
	ErrNoSpace = errors.New("buslog: no free slot")

	// ErrOverrun is returned by the producer once a completed block could
	// not be published because the ring buffer was full. The producer is
	// fail-stop: after an overrun it accepts no further frames.
	ErrOverrun = errors.New("buslog: ring buffer overrun")

	// ErrSlotState is returned when a slot handle is used out of order:
	// publishing a slot twice, releasing an unclaimed slot, and so on.
	ErrSlotState = errors.New("buslog: slot handle used out of order")

	// ErrBlockFull is returned when appending a frame to a full block.
	ErrBlockFull = errors.New("buslog: block is full")

	// ErrBlockNotFull is returned when encoding a block that has not been
	// completely filled; storage writes are always full blocks.
	ErrBlockNotFull = errors.New("buslog: block is not full")

	// ErrInvalidFrame is returned when a frame fails validation or decoding.
	ErrInvalidFrame = errors.New("buslog: invalid frame")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("buslog: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("buslog: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("buslog: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("buslog: invalid configuration")
)
