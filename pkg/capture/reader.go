package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/canlabs/buslog/internal/domain"
)

// FrameSize is the fixed size of one encoded frame in a capture file.
const FrameSize = domain.FrameSize

// rolloverTolerance is how far the 16-bit hardware timestamp may step
// backwards before the reader counts a rollover. Small backward jitter
// between devices sharing the bus is not a rollover.
const rolloverTolerance = 1000 // microseconds

// Frame is one decoded capture-file record.
type Frame struct {
	// ID is the CAN arbitration ID.
	ID uint32

	// Extended, Remote, Overrun and Reserved are the frame flag bits.
	Extended bool
	Remote   bool
	Overrun  bool
	Reserved bool

	// Length is the number of valid bytes in Data.
	Length uint8

	// Data holds the frame payload.
	Data [8]byte

	// Raw is the 16-bit hardware timestamp in microseconds, as captured.
	Raw uint16

	// Time is the rollover-corrected monotonic time since the start of
	// the capture.
	Time time.Duration
}

// Uint64 returns the payload interpreted as a little-endian uint64, the
// form the status decoders in package decode operate on.
func (f Frame) Uint64() uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(f.Data[i])
	}
	return v
}

// Reader iterates the frames of a capture file, reconstructing a
// monotonic clock from the 16-bit hardware timestamp's rollovers.
type Reader struct {
	br      *bufio.Reader
	closer  io.Closer
	buf     [FrameSize]byte
	started bool
	last    uint16
	base    uint64
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Open opens a capture file for reading. Close the reader when done.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// Next returns the next frame. Returns io.EOF at a clean end of file; a
// truncated trailing record is reported as an error since valid capture
// files are written in whole blocks.
func (r *Reader) Next() (Frame, error) {
	if _, err := io.ReadFull(r.br, r.buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read capture record: %w", err)
	}

	df, err := domain.DecodeFrame(r.buf[:])
	if err != nil {
		return Frame{}, err
	}

	if !r.started {
		r.started = true
		r.last = df.Timestamp
	}
	if int32(df.Timestamp)-int32(r.last) < -rolloverTolerance {
		r.base += 1 << 16
	}
	r.last = df.Timestamp

	return Frame{
		ID:       df.ID,
		Extended: df.Extended,
		Remote:   df.Remote,
		Overrun:  df.Overrun,
		Reserved: df.Reserved,
		Length:   df.Length,
		Data:     df.Payload,
		Raw:      df.Timestamp,
		Time:     time.Duration(r.base+uint64(df.Timestamp)) * time.Microsecond,
	}, nil
}

// Close closes the underlying file if the reader was created with Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
