package ports

import (
	"context"

	"github.com/canlabs/buslog/internal/domain"
)

// BlockSink accepts block storage writes. Implementations must write
// exactly one block's worth of bytes per call, atomically from the
// caller's point of view: either the whole block lands or the call fails.
type BlockSink interface {
	// WriteBlock durably writes one full block.
	WriteBlock(ctx context.Context, block *domain.Block) error

	// Sync flushes any buffered data to stable storage.
	Sync() error

	// Close flushes and closes the sink. The sink is unusable afterwards.
	Close() error
}
