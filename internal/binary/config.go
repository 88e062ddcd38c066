// Package binary reads and writes the fixed-width fields of HDF5 metadata.
// Offsets and lengths are 2, 4 or 8 bytes wide depending on the file.
package binary

import (
	"encoding/binary"
	"errors"
)

var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Config holds the field widths of a file, usually taken from its superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is little-endian with 8-byte offsets and lengths, the
// layout of every archive this module creates.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Validate checks the offset and length sizes.
func (c Config) Validate() error {
	for _, n := range []int{c.OffsetSize, c.LengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return ErrInvalidSize
		}
	}
	return nil
}

// fields carries a Config and the accessors Reader and Writer share.
type fields struct {
	cfg Config
}

func (f fields) Config() Config              { return f.cfg }
func (f fields) OffsetSize() int             { return f.cfg.OffsetSize }
func (f fields) LengthSize() int             { return f.cfg.LengthSize }
func (f fields) ByteOrder() binary.ByteOrder { return f.cfg.ByteOrder }

// undefinedAddress is the all-ones offset HDF5 uses for "no address".
func undefinedAddress(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(8*uint(size)) - 1
}

// DecodeUint decodes a size-byte unsigned integer from buf.
func DecodeUint(buf []byte, size int, order binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	// Odd widths only occur little-endian (e.g. 3-byte heap offsets).
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// encodeUint is the inverse of DecodeUint.
func encodeUint(buf []byte, v uint64, order binary.ByteOrder) {
	switch len(buf) {
	case 1:
		buf[0] = uint8(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	default:
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
	}
}
