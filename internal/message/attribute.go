package message

import (
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// Attribute represents an attribute message (type 0x000C).
type Attribute struct {
	Version   uint8
	Name      string
	Charset   CharacterSet
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	c := newCursor(data, r)
	m := &Attribute{Version: c.u8()}
	flags := c.u8()
	nameSize := int(c.u16())
	dtSize := int(c.u16())
	dsSize := int(c.u16())
	if c.err != nil {
		return nil, c.err
	}

	pad := func(n int) int { return n }
	switch m.Version {
	case 1:
		pad = func(n int) int { return (n + 7) &^ 7 }
	case 2:
	case 3:
		m.Charset = CharacterSet(c.u8())
	default:
		return nil, fmt.Errorf("unsupported attribute version %d", m.Version)
	}
	if flags&0x03 != 0 {
		return nil, fmt.Errorf("shared attribute datatypes are not supported")
	}

	m.Name = cstring(c.bytes(pad(nameSize)))
	dtBytes := c.bytes(pad(dtSize))
	dsBytes := c.bytes(pad(dsSize))
	if c.err != nil {
		return nil, c.err
	}

	var err error
	if m.Datatype, err = parseDatatype(dtBytes); err != nil {
		return nil, fmt.Errorf("attribute %q datatype: %w", m.Name, err)
	}
	if m.Dataspace, err = parseDataspace(dsBytes, r); err != nil {
		return nil, fmt.Errorf("attribute %q dataspace: %w", m.Name, err)
	}

	size := int(m.Dataspace.NumElements()) * int(m.Datatype.Size)
	m.Data = c.bytes(size)
	return m, c.err
}

// Serialize writes a version 3 attribute message.
func (m *Attribute) Serialize(w *binpkg.Writer) error {
	dtSize := m.Datatype.SerializedSize(w)
	dsSize := m.Dataspace.SerializedSize(w)

	if err := w.WriteUint8(3); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(m.Name) + 1)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(dtSize)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(dsSize)); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.Charset)); err != nil {
		return err
	}
	if err := w.WriteBytes(append([]byte(m.Name), 0)); err != nil {
		return err
	}
	if err := m.Datatype.Serialize(w); err != nil {
		return err
	}
	if err := m.Dataspace.Serialize(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Attribute) SerializedSize(w *binpkg.Writer) int {
	return 9 + len(m.Name) + 1 +
		m.Datatype.SerializedSize(w) +
		m.Dataspace.SerializedSize(w) +
		len(m.Data)
}

// NewAttribute creates an attribute message. The data length must match the
// datatype size times the number of elements.
func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) (*Attribute, error) {
	want := int(ds.NumElements()) * int(dt.Size)
	if len(data) != want {
		return nil, fmt.Errorf("attribute %q: data is %d bytes, want %d", name, len(data), want)
	}
	return &Attribute{
		Version:   3,
		Name:      name,
		Charset:   CharsetUTF8,
		Datatype:  dt,
		Dataspace: ds,
		Data:      data,
	}, nil
}
