package domain

import (
	"encoding/binary"
	"fmt"
)

// MaxPayload is the maximum number of data bytes a CAN frame can carry.
const MaxPayload = 8

// FrameSize is the fixed on-disk size of one encoded frame in bytes:
// 4 (arbitration ID) + 2 (timestamp) + 1 (flags) + 1 (length) + 8 (payload).
// This matches the FlexCAN CAN_message_t layout used by the capture hardware.
const FrameSize = 16

// Frame flag bits within the encoded flags byte.
const (
	FlagExtended uint8 = 1 << 0
	FlagRemote   uint8 = 1 << 1
	FlagOverrun  uint8 = 1 << 2
	FlagReserved uint8 = 1 << 3
)

// Frame represents a single captured CAN bus frame.
// A frame is immutable once captured; it is the atomic unit of data
// handed from the capture source to the producer.
type Frame struct {
	// ID is the CAN arbitration ID (11-bit standard or 29-bit extended)
	ID uint32

	// Timestamp is the 16-bit hardware capture timestamp in microseconds.
	// It rolls over roughly every 65.5 ms; readers reconstruct a monotonic
	// clock from the rollovers.
	Timestamp uint16

	// Extended is true for 29-bit arbitration IDs
	Extended bool

	// Remote is true for remote transmission requests
	Remote bool

	// Overrun is true if the CAN controller reported a receive overrun
	// while this frame was captured
	Overrun bool

	// Reserved carries the reserved flag bit from the controller
	Reserved bool

	// Length is the number of valid bytes in Payload (0..MaxPayload)
	Length uint8

	// Payload holds the frame data; bytes past Length are zero
	Payload [MaxPayload]byte
}

// Flags packs the boolean attributes into the wire flags byte.
func (f Frame) Flags() uint8 {
	var b uint8
	if f.Extended {
		b |= FlagExtended
	}
	if f.Remote {
		b |= FlagRemote
	}
	if f.Overrun {
		b |= FlagOverrun
	}
	if f.Reserved {
		b |= FlagReserved
	}
	return b
}

// Validate checks that the frame is well-formed.
func (f Frame) Validate() error {
	if f.Length > MaxPayload {
		return fmt.Errorf("%w: payload length %d exceeds %d", ErrInvalidFrame, f.Length, MaxPayload)
	}
	if !f.Extended && f.ID > 0x7FF {
		return fmt.Errorf("%w: standard ID 0x%X exceeds 11 bits", ErrInvalidFrame, f.ID)
	}
	return nil
}

// Encode writes the 16-byte wire representation into dst.
// dst must be at least FrameSize bytes long.
func (f Frame) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], f.ID)
	binary.LittleEndian.PutUint16(dst[4:6], f.Timestamp)
	dst[6] = f.Flags()
	dst[7] = f.Length
	copy(dst[8:16], f.Payload[:])
}

// DecodeFrame parses one frame from its 16-byte wire representation.
func DecodeFrame(src []byte) (Frame, error) {
	if len(src) < FrameSize {
		return Frame{}, fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidFrame, FrameSize, len(src))
	}
	flags := src[6]
	f := Frame{
		ID:        binary.LittleEndian.Uint32(src[0:4]),
		Timestamp: binary.LittleEndian.Uint16(src[4:6]),
		Extended:  flags&FlagExtended != 0,
		Remote:    flags&FlagRemote != 0,
		Overrun:   flags&FlagOverrun != 0,
		Reserved:  flags&FlagReserved != 0,
		Length:    src[7],
	}
	copy(f.Payload[:], src[8:16])
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Data returns the valid payload bytes as a little-endian uint64, the
// representation the CTRE status decoders operate on.
func (f Frame) Data() uint64 {
	return binary.LittleEndian.Uint64(f.Payload[:])
}
