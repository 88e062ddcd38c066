package binary

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	for _, size := range []int{2, 4, 8} {
		cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: size, LengthSize: size}
		w, buf := NewBufferWriter(cfg)

		if err := w.WriteUint8(0xAB); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint16(0x1234); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint32(0xDEADBEEF); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteOffset(0x0102); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteLength(0x0304); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUndefinedOffset(); err != nil {
			t.Fatal(err)
		}

		wantLen := 1 + 2 + 4 + 3*size
		if len(buf.Bytes()) != wantLen {
			t.Fatalf("size %d: buffer length = %d, want %d", size, len(buf.Bytes()), wantLen)
		}

		r := NewReader(bytes.NewReader(buf.Bytes()), cfg)
		if v, _ := r.ReadUint8(); v != 0xAB {
			t.Errorf("size %d: uint8 = %#x", size, v)
		}
		if v, _ := r.ReadUint16(); v != 0x1234 {
			t.Errorf("size %d: uint16 = %#x", size, v)
		}
		if v, _ := r.ReadUint32(); v != 0xDEADBEEF {
			t.Errorf("size %d: uint32 = %#x", size, v)
		}
		if v, _ := r.ReadOffset(); v != 0x0102 {
			t.Errorf("size %d: offset = %#x", size, v)
		}
		if v, _ := r.ReadLength(); v != 0x0304 {
			t.Errorf("size %d: length = %#x", size, v)
		}
		v, err := r.ReadOffset()
		if err != nil {
			t.Fatal(err)
		}
		if !r.IsUndefinedOffset(v) {
			t.Errorf("size %d: %#x not reported as undefined", size, v)
		}
	}
}

func TestReaderPeekAndEOF(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("OHDR")), DefaultConfig())

	peek, err := r.Peek(4)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if string(peek) != "OHDR" || r.Pos() != 0 {
		t.Errorf("Peek = %q at pos %d", peek, r.Pos())
	}

	r.Skip(2)
	if _, err := r.ReadUint32(); err == nil {
		t.Error("expected error reading past end")
	}
}

func TestWriterAtIndependentPosition(t *testing.T) {
	w, buf := NewBufferWriter(DefaultConfig())
	if err := w.At(8).WriteUint8(7); err != nil {
		t.Fatal(err)
	}
	if w.Pos() != 0 {
		t.Errorf("parent writer moved to %d", w.Pos())
	}
	if got := buf.Bytes(); len(got) != 9 || got[8] != 7 {
		t.Errorf("buffer = %v", got)
	}
}

func TestLookup3Checksum(t *testing.T) {
	tests := []struct {
		input string
		want  uint32
	}{
		{"", 0xdeadbeef},
		{"Four score and seven years ago", 0x17770551},
	}
	for _, tt := range tests {
		if got := Lookup3Checksum([]byte(tt.input)); got != tt.want {
			t.Errorf("Lookup3Checksum(%q) = %#08x, want %#08x", tt.input, got, tt.want)
		}
	}
}

func TestFletcher32(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		{"empty", nil, 0},
		{"odd length", []byte("abcde"), 0x4ff029c7},
		{"even length", []byte("abcdef"), 0x50562a2d},
		{"multiple folds", bytes.Repeat(seq256(), 10), 0xf0fa827d},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fletcher32(tt.input); got != tt.want {
				t.Errorf("Fletcher32 = %#08x, want %#08x", got, tt.want)
			}
		})
	}
}

func seq256() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
