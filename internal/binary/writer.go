package binary

import "io"

// Writer encodes fields into an io.WriterAt at its own position.
type Writer struct {
	fields
	w   io.WriterAt
	pos int64
}

func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{fields: fields{cfg}, w: w}
}

// At returns a copy of w positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	c := *w
	c.pos = offset
	return &c
}

func (w *Writer) Pos() int64 { return w.pos }

func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WriteUintN writes v in n bytes.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	encodeUint(buf, v, w.cfg.ByteOrder)
	return w.WriteBytes(buf)
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUintN(uint64(v), 1) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }
func (w *Writer) WriteOffset(v uint64) error { return w.WriteUintN(v, w.cfg.OffsetSize) }
func (w *Writer) WriteLength(v uint64) error { return w.WriteUintN(v, w.cfg.LengthSize) }

// UndefinedOffset returns the undefined address for the offset size.
func (w *Writer) UndefinedOffset() uint64     { return undefinedAddress(w.cfg.OffsetSize) }
func (w *Writer) WriteUndefinedOffset() error { return w.WriteOffset(w.UndefinedOffset()) }

// Buffer is an in-memory io.WriterAt that grows on demand. Checksummed
// structures are built in a Buffer and written to the file in one piece.
type Buffer struct {
	buf []byte
}

func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	return copy(b.buf[off:], p), nil
}

func (b *Buffer) Bytes() []byte { return b.buf }

// NewBufferWriter returns a Writer over a new Buffer.
func NewBufferWriter(cfg Config) (*Writer, *Buffer) {
	b := &Buffer{}
	return NewWriter(b, cfg), b
}
