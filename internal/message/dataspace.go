package message

import (
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// DataspaceType represents the dataspace class.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace represents a dataspace message (type 0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when equal to Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the total number of elements.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	}
	n := uint64(1)
	for _, d := range m.Dimensions {
		n *= d
	}
	return n
}

// IsScalar returns true for a scalar dataspace.
func (m *Dataspace) IsScalar() bool {
	return m.SpaceType == DataspaceScalar
}

func parseDataspace(data []byte, r *binpkg.Reader) (*Dataspace, error) {
	c := newCursor(data, r)
	m := &Dataspace{Version: c.u8()}
	rank := int(c.u8())
	flags := c.u8()

	switch m.Version {
	case 1:
		c.skip(5) // reserved
		m.SpaceType = DataspaceSimple
		if rank == 0 {
			m.SpaceType = DataspaceScalar
		}
	case 2:
		m.SpaceType = DataspaceType(c.u8())
	default:
		if c.err == nil {
			return nil, fmt.Errorf("unsupported dataspace version %d", m.Version)
		}
	}

	if rank > 0 {
		m.Dimensions = make([]uint64, rank)
		for i := range m.Dimensions {
			m.Dimensions[i] = c.length()
		}
		if flags&0x01 != 0 {
			m.MaxDims = make([]uint64, rank)
			for i := range m.MaxDims {
				m.MaxDims[i] = c.length()
			}
		}
	}
	return m, c.err
}

// Serialize writes a version 2 dataspace.
func (m *Dataspace) Serialize(w *binpkg.Writer) error {
	var flags uint8
	if m.MaxDims != nil {
		flags |= 0x01
	}
	if err := w.WriteUint8(2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(m.Dimensions))); err != nil {
		return err
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.SpaceType)); err != nil {
		return err
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *Dataspace) SerializedSize(w *binpkg.Writer) int {
	return 4 + (len(m.Dimensions)+len(m.MaxDims))*w.LengthSize()
}

// NewDataspace creates a simple dataspace with fixed dimensions.
func NewDataspace(dims []uint64) *Dataspace {
	d := make([]uint64, len(dims))
	copy(d, dims)
	return &Dataspace{Version: 2, SpaceType: DataspaceSimple, Dimensions: d}
}

// NewScalarDataspace creates a scalar dataspace.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceScalar}
}
