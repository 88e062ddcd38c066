package message

import (
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// Well-known filter identifiers.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterOptional marks a filter whose failure does not fail the write.
const FilterOptional uint16 = 0x0001

// FilterInfo describes one filter of a pipeline.
type FilterInfo struct {
	ID         uint16
	Name       string
	Flags      uint16
	ClientData []uint32
}

// IsOptional reports whether the filter may be skipped.
func (f FilterInfo) IsOptional() bool { return f.Flags&FilterOptional != 0 }

// FilterPipeline represents a filter pipeline message (type 0x000B).
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	c := newCursor(data, nil)
	m := &FilterPipeline{Version: c.u8()}
	n := int(c.u8())

	switch m.Version {
	case 1:
		c.skip(6)
	case 2:
	default:
		if c.err == nil {
			return nil, fmt.Errorf("unsupported filter pipeline version %d", m.Version)
		}
	}

	for i := 0; i < n && c.err == nil; i++ {
		var f FilterInfo
		f.ID = c.u16()
		nameLen := 0
		if m.Version == 1 || f.ID >= 256 {
			nameLen = int(c.u16())
		}
		f.Flags = c.u16()
		nvalues := int(c.u16())
		if nameLen > 0 {
			if m.Version == 1 {
				nameLen = (nameLen + 7) &^ 7
			}
			f.Name = cstring(c.bytes(nameLen))
		}
		for range nvalues {
			f.ClientData = append(f.ClientData, c.u32())
		}
		if m.Version == 1 && nvalues%2 == 1 {
			c.skip(4)
		}
		m.Filters = append(m.Filters, f)
	}
	return m, c.err
}

// Serialize writes a version 2 pipeline. Names are omitted for the
// predefined filters.
func (m *FilterPipeline) Serialize(w *binpkg.Writer) error {
	if err := writeBytes(w, 2, uint8(len(m.Filters))); err != nil {
		return err
	}
	for _, f := range m.Filters {
		if err := w.WriteUint16(f.ID); err != nil {
			return err
		}
		if f.ID >= 256 {
			if err := w.WriteUint16(uint16(len(f.Name) + 1)); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(f.Flags); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(f.ClientData))); err != nil {
			return err
		}
		if f.ID >= 256 {
			if err := w.WriteBytes(append([]byte(f.Name), 0)); err != nil {
				return err
			}
		}
		for _, v := range f.ClientData {
			if err := w.WriteUint32(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *FilterPipeline) SerializedSize(w *binpkg.Writer) int {
	n := 2
	for _, f := range m.Filters {
		n += 6 + 4*len(f.ClientData)
		if f.ID >= 256 {
			n += 2 + len(f.Name) + 1
		}
	}
	return n
}

// NewFilterPipeline creates an empty version 2 pipeline.
func NewFilterPipeline() *FilterPipeline {
	return &FilterPipeline{Version: 2}
}

// AddDeflate appends a deflate filter with the given level (0-9).
func (m *FilterPipeline) AddDeflate(level int) *FilterPipeline {
	m.Filters = append(m.Filters, FilterInfo{
		ID:         FilterDeflate,
		Flags:      FilterOptional,
		ClientData: []uint32{uint32(level)},
	})
	return m
}

// AddShuffle appends a byte shuffle filter for elements of elemSize bytes.
func (m *FilterPipeline) AddShuffle(elemSize uint32) *FilterPipeline {
	m.Filters = append(m.Filters, FilterInfo{
		ID:         FilterShuffle,
		Flags:      FilterOptional,
		ClientData: []uint32{elemSize},
	})
	return m
}

// AddFletcher32 appends a Fletcher-32 checksum filter.
func (m *FilterPipeline) AddFletcher32() *FilterPipeline {
	m.Filters = append(m.Filters, FilterInfo{ID: FilterFletcher32})
	return m
}
