package domain

import (
	"errors"
	"testing"
)

func TestBlock_AppendAndFull(t *testing.T) {
	b := NewBlock(2)

	if b.Full() {
		t.Error("new block reports Full")
	}
	if err := b.Append(Frame{ID: 1}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := b.Append(Frame{ID: 2}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !b.Full() {
		t.Error("block with Cap frames not Full")
	}
	if err := b.Append(Frame{ID: 3}); !errors.Is(err, ErrBlockFull) {
		t.Errorf("Append() on full block error = %v, want ErrBlockFull", err)
	}
}

func TestBlock_PreservesCaptureOrder(t *testing.T) {
	b := NewBlock(4)
	for i := 0; i < 4; i++ {
		if err := b.Append(Frame{ID: uint32(i + 100)}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	for i := 0; i < 4; i++ {
		if got := b.Frame(i).ID; got != uint32(i+100) {
			t.Errorf("Frame(%d).ID = %d, want %d", i, got, i+100)
		}
	}
}

func TestBlock_Reset(t *testing.T) {
	b := NewBlock(2)
	_ = b.Append(Frame{ID: 1})
	_ = b.Append(Frame{ID: 2})

	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", b.Len())
	}
	if b.Full() {
		t.Error("block reports Full after Reset")
	}
}

func TestBlock_CopyFrom(t *testing.T) {
	src := NewBlock(2)
	_ = src.Append(Frame{ID: 7})
	_ = src.Append(Frame{ID: 8})

	dst := NewBlock(2)
	dst.CopyFrom(src)

	if dst.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", dst.Len())
	}
	if dst.Frame(0).ID != 7 || dst.Frame(1).ID != 8 {
		t.Errorf("copied frames = %d,%d, want 7,8", dst.Frame(0).ID, dst.Frame(1).ID)
	}

	// Mutating the source must not alias into the copy.
	src.Reset()
	_ = src.Append(Frame{ID: 99})
	if dst.Frame(0).ID != 7 {
		t.Error("copy aliases source storage")
	}
}

func TestBlock_EncodeRequiresFull(t *testing.T) {
	b := NewBlock(2)
	_ = b.Append(Frame{ID: 1})

	err := b.Encode(make([]byte, b.EncodedSize()))
	if !errors.Is(err, ErrBlockNotFull) {
		t.Errorf("Encode() on partial block error = %v, want ErrBlockNotFull", err)
	}
}

func TestBlock_EncodeDecodeRoundTrip(t *testing.T) {
	b := NewBlock(3)
	for i := 0; i < 3; i++ {
		f := Frame{ID: uint32(0x100 + i), Timestamp: uint16(i * 1000), Length: 8}
		for j := range f.Payload {
			f.Payload[j] = byte(i*8 + j)
		}
		if err := b.Append(f); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	buf := make([]byte, b.EncodedSize())
	if err := b.Encode(buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(buf) != 3*FrameSize {
		t.Errorf("EncodedSize() = %d, want %d", len(buf), 3*FrameSize)
	}

	got, err := DecodeBlock(buf, 3)
	if err != nil {
		t.Fatalf("DecodeBlock() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if got.Frame(i) != b.Frame(i) {
			t.Errorf("frame %d = %+v, want %+v", i, got.Frame(i), b.Frame(i))
		}
	}
}
