package buslog

import "time"

// State represents the lifecycle state of a Buslog instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BlockWrittenEvent is emitted after a block reaches the storage sink.
type BlockWrittenEvent struct {
	Bytes    int
	Duration time.Duration
}

// OverrunEvent is emitted once when the producer faults because a
// completed block found no free ring slot. PendingBlocks is the number
// of published blocks still waiting for the consumer at that moment.
type OverrunEvent struct {
	PendingBlocks int
}

// WriteErrorEvent is emitted for every failed storage write attempt.
// Retryable is false on the attempt that exhausts the retry budget.
type WriteErrorEvent struct {
	Error     error
	Attempt   int
	Retryable bool
}

// EventHandler receives notifications about pipeline activity. Handlers
// are called synchronously from pipeline goroutines and must not block.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBlockWritten(event BlockWrittenEvent)
	OnOverrun(event OverrunEvent)
	OnWriteError(event WriteErrorEvent)
}
