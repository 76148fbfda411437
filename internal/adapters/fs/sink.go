// Package fs implements the file-system storage adapters: the block sink
// writing capture files to a storage volume.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/ports"
)

// CaptureFileExt is the extension for raw capture files.
const CaptureFileExt = ".bin"

// SinkConfig configures a file block sink.
type SinkConfig struct {
	// Dir is the storage volume directory; created if missing.
	Dir string

	// FilePrefix names the capture file; defaults to "capture".
	FilePrefix string

	// RunID distinguishes capture files from the same startup second.
	// Generated if empty.
	RunID string

	// SyncEveryBlocks forces an fsync every n blocks; 0 syncs only on
	// Sync and Close.
	SyncEveryBlocks int
}

// Sink implements ports.BlockSink over a single capture file.
//
// Every write is exactly one encoded block. The write buffer is allocated
// once on first use and reused, so the steady-state write path allocates
// nothing.
type Sink struct {
	config SinkConfig
	logger ports.Logger

	mu     sync.Mutex
	file   *os.File
	buf    []byte
	blocks int
	closed bool
}

// NewSink initializes the storage volume and creates the capture file.
// This is the startup collaborator's one-time setup: any failure here is
// fatal before the pipeline starts.
func NewSink(config SinkConfig, logger ports.Logger) (*Sink, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("%w: sink directory is required", domain.ErrInvalidConfig)
	}
	if config.FilePrefix == "" {
		config.FilePrefix = "capture"
	}
	if config.RunID == "" {
		config.RunID = uuid.NewString()[:8]
	}

	if err := os.MkdirAll(config.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("init storage volume: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s%s",
		config.FilePrefix,
		time.Now().UTC().Format("20060102T150405Z"),
		config.RunID,
		CaptureFileExt,
	)
	path := filepath.Join(config.Dir, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}

	logger.Info("capture file created",
		ports.String("path", path),
		ports.String("run_id", config.RunID),
	)

	return &Sink{
		config: config,
		logger: logger,
		file:   file,
	}, nil
}

// Path returns the capture file path.
func (s *Sink) Path() string {
	return s.file.Name()
}

// WriteBlock durably appends one full block to the capture file.
// The write is all-or-nothing from the caller's point of view: a short
// write is reported as an error and the file offset is rewound so a
// retry lands on a block boundary.
func (s *Sink) WriteBlock(ctx context.Context, block *domain.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return os.ErrClosed
	}

	size := block.EncodedSize()
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	s.buf = s.buf[:size]

	if err := block.Encode(s.buf); err != nil {
		return err
	}

	n, err := s.file.Write(s.buf)
	if err != nil || n != size {
		// Rewind past any partial write so the file stays block-aligned.
		offset, serr := s.file.Seek(int64(-n), io.SeekCurrent)
		if serr != nil {
			return fmt.Errorf("write block: %v (rewind failed: %w)", err, serr)
		}
		if terr := s.file.Truncate(offset); terr != nil {
			return fmt.Errorf("write block: %v (truncate failed: %w)", err, terr)
		}
		if err == nil {
			err = fmt.Errorf("short write: %d of %d bytes", n, size)
		}
		return fmt.Errorf("write block: %w", err)
	}

	s.blocks++
	if s.config.SyncEveryBlocks > 0 && s.blocks%s.config.SyncEveryBlocks == 0 {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("sync capture file: %w", err)
		}
	}
	return nil
}

// Blocks returns the number of blocks written so far.
func (s *Sink) Blocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks
}

// Sync flushes the capture file to stable storage.
func (s *Sink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.file.Sync()
}

// Close flushes and closes the capture file. Safe to call twice.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}

	s.logger.Info("capture file closed",
		ports.String("path", s.file.Name()),
		ports.Int("blocks", s.blocks),
	)
	return nil
}
