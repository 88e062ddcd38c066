package binary

import (
	"errors"
	"io"
)

// Reader decodes fields from an io.ReaderAt at its own position, so several
// readers can walk one file independently.
type Reader struct {
	fields
	r   io.ReaderAt
	pos int64
}

func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{fields: fields{cfg}, r: r}
}

// At returns a copy of r positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	c := *r
	c.pos = offset
	return &c
}

func (r *Reader) Pos() int64   { return r.pos }
func (r *Reader) Skip(n int64) { r.pos += n }

// ReadBytes reads exactly n bytes. A short read is io.ErrUnexpectedEOF.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Peek reads n bytes without moving.
func (r *Reader) Peek(n int) ([]byte, error) {
	return r.At(r.pos).ReadBytes(n)
}

// ReadUintN reads an n-byte unsigned integer.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(buf, n, r.cfg.ByteOrder), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) { return r.ReadUintN(8) }
func (r *Reader) ReadOffset() (uint64, error) { return r.ReadUintN(r.cfg.OffsetSize) }
func (r *Reader) ReadLength() (uint64, error) { return r.ReadUintN(r.cfg.LengthSize) }

// IsUndefinedOffset reports whether offset is the undefined address.
func (r *Reader) IsUndefinedOffset(offset uint64) bool {
	return offset == undefinedAddress(r.cfg.OffsetSize)
}
