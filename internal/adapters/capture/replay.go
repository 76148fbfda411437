package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/canlabs/buslog/internal/domain"
	"github.com/canlabs/buslog/internal/ports"
)

// Replay re-feeds frames from an existing capture file, so a recorded
// bus session can be run through the pipeline again.
type Replay struct {
	file   *os.File
	reader *bufio.Reader
	period time.Duration
	buf    [domain.FrameSize]byte
}

// NewReplay opens a capture file for replay. A non-zero period paces
// delivery to one frame per period; zero delivers as fast as the
// pipeline consumes.
func NewReplay(path string, period time.Duration) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	return &Replay{
		file:   file,
		reader: bufio.NewReaderSize(file, 64*1024),
		period: period,
	}, nil
}

// Next returns the next recorded frame.
func (r *Replay) Next(ctx context.Context) (domain.Frame, error) {
	if r.period > 0 {
		t := time.NewTimer(r.period)
		select {
		case <-ctx.Done():
			t.Stop()
			return domain.Frame{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	if _, err := io.ReadFull(r.reader, r.buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Frame{}, ports.ErrSourceExhausted
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// A truncated trailing record; every valid capture file is
			// block-aligned, so treat it as end of data.
			return domain.Frame{}, ports.ErrSourceExhausted
		}
		return domain.Frame{}, fmt.Errorf("read capture file: %w", err)
	}

	return domain.DecodeFrame(r.buf[:])
}

// Close closes the underlying capture file.
func (r *Replay) Close() error {
	return r.file.Close()
}
