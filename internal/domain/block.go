package domain

import "fmt"

// DefaultBlockFrames is the default number of frames per block.
// 32 frames of 16 bytes gives a 512-byte block, matching the optimal
// write granularity of SD-class block storage.
const DefaultBlockFrames = 32

// Block is a fixed-size aggregate of frames and the atomic unit of
// storage I/O. A block is either staging (owned by the producer, being
// filled) or published (owned by the ring buffer until the consumer has
// written it out). Blocks are allocated once and cycled forever.
type Block struct {
	frames []Frame
	count  int
}

// NewBlock creates an empty block that holds exactly n frames.
func NewBlock(n int) *Block {
	return &Block{frames: make([]Frame, n)}
}

// Append adds a frame at the next position.
// Returns ErrBlockFull if the block already holds its full complement.
func (b *Block) Append(f Frame) error {
	if b.count >= len(b.frames) {
		return ErrBlockFull
	}
	b.frames[b.count] = f
	b.count++
	return nil
}

// Full reports whether the block holds its full complement of frames.
func (b *Block) Full() bool {
	return b.count == len(b.frames)
}

// Len returns the number of frames currently in the block.
func (b *Block) Len() int {
	return b.count
}

// Cap returns the fixed number of frames the block holds when full.
func (b *Block) Cap() int {
	return len(b.frames)
}

// Frame returns the frame at position i in capture order.
func (b *Block) Frame(i int) Frame {
	return b.frames[i]
}

// Reset empties the block for reuse as a staging block.
// Frame contents are not cleared; they are overwritten on the next fill.
func (b *Block) Reset() {
	b.count = 0
}

// CopyFrom replaces the block's contents with those of src.
// Both blocks must have the same fixed capacity.
func (b *Block) CopyFrom(src *Block) {
	copy(b.frames, src.frames[:src.count])
	b.count = src.count
}

// EncodedSize returns the byte size of the block's wire representation.
func (b *Block) EncodedSize() int {
	return len(b.frames) * FrameSize
}

// Encode writes the block's wire representation into dst.
// The block must be full; writes are always exactly one block's size so
// storage never sees a partial block.
func (b *Block) Encode(dst []byte) error {
	if !b.Full() {
		return fmt.Errorf("%w: %d of %d frames", ErrBlockNotFull, b.count, len(b.frames))
	}
	if len(dst) < b.EncodedSize() {
		return fmt.Errorf("encode block: need %d bytes, have %d", b.EncodedSize(), len(dst))
	}
	for i := 0; i < b.count; i++ {
		b.frames[i].Encode(dst[i*FrameSize:])
	}
	return nil
}

// DecodeBlock parses a full block of n frames from src.
func DecodeBlock(src []byte, n int) (*Block, error) {
	if len(src) < n*FrameSize {
		return nil, fmt.Errorf("decode block: need %d bytes, have %d", n*FrameSize, len(src))
	}
	b := NewBlock(n)
	for i := 0; i < n; i++ {
		f, err := DecodeFrame(src[i*FrameSize:])
		if err != nil {
			return nil, err
		}
		b.frames[i] = f
	}
	b.count = n
	return b, nil
}
