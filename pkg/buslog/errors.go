package buslog

import (
	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/ports"
)

// Sentinel errors re-exported for callers. Match with errors.Is.
var (
	// ErrSourceExhausted is returned by a FrameSource when no further
	// frames will arrive.
	ErrSourceExhausted = ports.ErrSourceExhausted

	// ErrOverrun is the fault the pipeline crashes with when a
	// completed block finds no free ring slot.
	ErrOverrun = domain.ErrOverrun

	// ErrAlreadyRunning is returned by Start on a running instance.
	ErrAlreadyRunning = domain.ErrAlreadyRunning

	// ErrNotRunning is returned by Stop on a stopped instance.
	ErrNotRunning = domain.ErrNotRunning

	// ErrShutdownTimeout is returned by Stop when graceful shutdown
	// exceeds its deadline.
	ErrShutdownTimeout = domain.ErrShutdownTimeout

	// ErrInvalidConfig wraps all configuration validation errors.
	ErrInvalidConfig = domain.ErrInvalidConfig
)
