package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// DatatypeClass represents the HDF5 datatype class.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

func (c DatatypeClass) String() string {
	names := [...]string{"integer", "float", "time", "string", "bitfield", "opaque",
		"compound", "reference", "enum", "vlen", "array"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder of a numeric datatype.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding is the padding of a fixed-length string.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet is the encoding of a string datatype.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype represents a datatype message (type 0x0003).
//
// Fixed-point, floating-point and string classes are fully described. Other
// classes keep only their class and size, which is enough to skip over them.
type Datatype struct {
	Class     DatatypeClass
	Version   uint8
	Size      uint32
	ByteOrder ByteOrder

	// Fixed-point
	Signed bool

	// Fixed- and floating-point
	BitOffset    uint16
	BitPrecision uint16

	// Floating-point
	SignLocation     uint8
	ExponentLocation uint8
	ExponentSize     uint8
	MantissaLocation uint8
	MantissaSize     uint8
	ExponentBias     uint32

	// String
	Padding StringPadding
	Charset CharacterSet
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsInteger returns true for fixed-point types.
func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }

// IsFloat returns true for floating-point types.
func (m *Datatype) IsFloat() bool { return m.Class == ClassFloatPoint }

// IsString returns true for fixed-length string types.
func (m *Datatype) IsString() bool { return m.Class == ClassString }

func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, ErrTruncated
	}

	m := &Datatype{
		Class:   DatatypeClass(data[0] & 0x0F),
		Version: data[0] >> 4,
		Size:    binary.LittleEndian.Uint32(data[4:8]),
	}
	bits0, bits1 := data[1], data[2]
	props := data[8:]

	switch m.Class {
	case ClassFixedPoint:
		m.ByteOrder = ByteOrder(bits0 & 0x01)
		m.Signed = bits0&0x08 != 0
		if len(props) >= 4 {
			m.BitOffset = binary.LittleEndian.Uint16(props[0:])
			m.BitPrecision = binary.LittleEndian.Uint16(props[2:])
		}

	case ClassFloatPoint:
		m.ByteOrder = ByteOrder(bits0 & 0x01)
		if bits0&0x40 != 0 {
			return nil, fmt.Errorf("VAX floating-point byte order is not supported")
		}
		m.SignLocation = bits1
		if len(props) < 12 {
			return nil, ErrTruncated
		}
		m.BitOffset = binary.LittleEndian.Uint16(props[0:])
		m.BitPrecision = binary.LittleEndian.Uint16(props[2:])
		m.ExponentLocation = props[4]
		m.ExponentSize = props[5]
		m.MantissaLocation = props[6]
		m.MantissaSize = props[7]
		m.ExponentBias = binary.LittleEndian.Uint32(props[8:])

	case ClassString:
		m.Padding = StringPadding(bits0 & 0x0F)
		m.Charset = CharacterSet((bits0 >> 4) & 0x0F)
	}

	return m, nil
}

// Serialize writes a fixed-point, floating-point or string datatype.
func (m *Datatype) Serialize(w *binpkg.Writer) error {
	var bits [3]byte
	var props []byte

	switch m.Class {
	case ClassFixedPoint:
		bits[0] = uint8(m.ByteOrder) & 0x01
		if m.Signed {
			bits[0] |= 0x08
		}
		props = make([]byte, 4)
		binary.LittleEndian.PutUint16(props[0:], m.BitOffset)
		binary.LittleEndian.PutUint16(props[2:], m.BitPrecision)

	case ClassFloatPoint:
		// Bits 4-5: mantissa normalization, 2 = implied most significant bit.
		bits[0] = uint8(m.ByteOrder)&0x01 | 0x20
		bits[1] = m.SignLocation
		props = make([]byte, 12)
		binary.LittleEndian.PutUint16(props[0:], m.BitOffset)
		binary.LittleEndian.PutUint16(props[2:], m.BitPrecision)
		props[4] = m.ExponentLocation
		props[5] = m.ExponentSize
		props[6] = m.MantissaLocation
		props[7] = m.MantissaSize
		binary.LittleEndian.PutUint32(props[8:], m.ExponentBias)

	case ClassString:
		bits[0] = uint8(m.Padding)&0x0F | uint8(m.Charset)<<4

	default:
		return fmt.Errorf("writing %s datatypes is not supported", m.Class)
	}

	version := m.Version
	if version == 0 {
		version = 1
	}
	if err := w.WriteUint8(version<<4 | uint8(m.Class)); err != nil {
		return err
	}
	if err := w.WriteBytes(bits[:]); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}
	return w.WriteBytes(props)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Datatype) SerializedSize(w *binpkg.Writer) int {
	switch m.Class {
	case ClassFixedPoint:
		return 12
	case ClassFloatPoint:
		return 20
	default:
		return 8
	}
}

// NewFixedPointDatatype creates a little-endian integer type of size bytes.
func NewFixedPointDatatype(size uint32, signed bool) *Datatype {
	return &Datatype{
		Class:        ClassFixedPoint,
		Version:      1,
		Size:         size,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloatDatatype creates a little-endian IEEE 754 type of 4 or 8 bytes.
func NewFloatDatatype(size uint32) *Datatype {
	if size == 4 {
		return &Datatype{
			Class:            ClassFloatPoint,
			Version:          1,
			Size:             4,
			BitPrecision:     32,
			SignLocation:     31,
			ExponentLocation: 23,
			ExponentSize:     8,
			MantissaSize:     23,
			ExponentBias:     127,
		}
	}
	return &Datatype{
		Class:            ClassFloatPoint,
		Version:          1,
		Size:             8,
		BitPrecision:     64,
		SignLocation:     63,
		ExponentLocation: 52,
		ExponentSize:     11,
		MantissaSize:     52,
		ExponentBias:     1023,
	}
}

// NewStringDatatype creates a fixed-length string type of size bytes.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Class:   ClassString,
		Version: 1,
		Size:    size,
		Padding: padding,
		Charset: charset,
	}
}
