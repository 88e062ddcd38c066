package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// Type represents an HDF5 header message type.
type Type uint16

// Header message types
const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeBogus                    Type = 0x0009
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectComment            Type = 0x000D
	TypeObjectModTime            Type = 0x000E
	TypeSharedMessageTable       Type = 0x000F
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeObjectModTimeOld         Type = 0x0012
	TypeBTreeKValues             Type = 0x0013
	TypeDriverInfo               Type = 0x0014
	TypeAttributeInfo            Type = 0x0015
	TypeObjectRefCount           Type = 0x0016
)

// ErrTruncated is returned when a message is shorter than its fields require.
var ErrTruncated = errors.New("message truncated")

// Message is the interface implemented by all header messages.
type Message interface {
	Type() Type
}

// Serializable is implemented by messages that can be written.
type Serializable interface {
	Message
	// Serialize writes the message body.
	Serialize(w *binpkg.Writer) error
	// SerializedSize returns the size of the message body in bytes.
	SerializedSize(w *binpkg.Writer) int
}

// Parse parses a header message body.
func Parse(typ Type, data []byte, r *binpkg.Reader) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(data, r)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(data, r)
	case TypeDatatype:
		msg, err = parseDatatype(data)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, r)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(data)
	case TypeAttribute:
		msg, err = parseAttribute(data, r)
	case TypeLink:
		msg, err = parseLink(data, r)
	case TypeSymbolTable:
		msg, err = parseSymbolTable(data, r)
	case TypeObjectHeaderContinuation:
		msg, err = ParseContinuation(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message %#04x: %w", uint16(typ), err)
	}
	return msg, nil
}

// Unknown represents a message this package does not interpret.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation points at a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// ParseContinuation parses a continuation message.
func ParseContinuation(data []byte, r *binpkg.Reader) (*Continuation, error) {
	c := newCursor(data, r)
	m := &Continuation{
		Offset: c.offset(),
		Length: c.length(),
	}
	return m, c.err
}

// cursor walks a message body. The first short read sets err and every later
// read returns zero, so parsers check err once at the end.
type cursor struct {
	data       []byte
	pos        int
	order      binary.ByteOrder
	offsetSize int
	lengthSize int
	err        error
}

func newCursor(data []byte, r *binpkg.Reader) *cursor {
	c := &cursor{data: data, order: binary.LittleEndian, offsetSize: 8, lengthSize: 8}
	if r != nil {
		c.order = r.ByteOrder()
		c.offsetSize = r.OffsetSize()
		c.lengthSize = r.LengthSize()
	}
	return c
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.data) {
		c.err = ErrTruncated
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) uintN(n int) uint64 {
	b := c.bytes(n)
	if b == nil {
		return 0
	}
	return binpkg.DecodeUint(b, n, c.order)
}

func (c *cursor) u8() uint8      { return uint8(c.uintN(1)) }
func (c *cursor) u16() uint16    { return uint16(c.uintN(2)) }
func (c *cursor) u32() uint32    { return uint32(c.uintN(4)) }
func (c *cursor) u64() uint64    { return c.uintN(8) }
func (c *cursor) offset() uint64 { return c.uintN(c.offsetSize) }
func (c *cursor) length() uint64 { return c.uintN(c.lengthSize) }
func (c *cursor) skip(n int)     { c.bytes(n) }
func (c *cursor) remaining() int { return len(c.data) - c.pos }
func (c *cursor) rest() []byte   { return c.bytes(c.remaining()) }
func (c *cursor) alignFrom(start, n int) {
	if rem := (c.pos - start) % n; rem != 0 {
		c.skip(n - rem)
	}
}

// cstring trims a NUL-terminated (or NUL-padded) name.
func cstring(b []byte) string {
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// minBytes returns the number of bytes needed to encode v (1, 2, 4 or 8).
func minBytes(v uint64) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFFFF:
		return 4
	default:
		return 8
	}
}
