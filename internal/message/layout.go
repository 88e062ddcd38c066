package message

import (
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// LayoutClass represents the storage layout class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0 // data stored in the object header
	LayoutContiguous LayoutClass = 1 // data in a single block
	LayoutChunked    LayoutClass = 2 // data in indexed chunks
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ChunkIndexType is the chunk index of a version 4 chunked layout.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0 // implied by layout versions 1 to 3
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// Version 4 chunked layout flags.
const (
	LayoutFlagNoPartialFilter uint8 = 0x01
	LayoutFlagSingleFiltered  uint8 = 0x02
)

// DataLayout represents a data layout message (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	// Contiguous
	Address uint64
	Size    uint64

	// Chunked. ChunkDims includes the trailing element size dimension.
	ChunkFlags     uint8
	ChunkDims      []uint64
	ChunkIndexType ChunkIndexType
	ChunkIndexAddr uint64

	// Single filtered chunk (version 4)
	FilteredSize uint64
	FilterMask   uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// IsCompact returns true if data is stored in the object header.
func (m *DataLayout) IsCompact() bool { return m.Class == LayoutCompact }

// IsContiguous returns true if data is stored contiguously.
func (m *DataLayout) IsContiguous() bool { return m.Class == LayoutContiguous }

// IsChunked returns true if data is stored in chunks.
func (m *DataLayout) IsChunked() bool { return m.Class == LayoutChunked }

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	c := newCursor(data, r)
	m := &DataLayout{Version: c.u8()}

	switch m.Version {
	case 1, 2:
		parseLayoutV1V2(c, m)
	case 3, 4:
		m.Class = LayoutClass(c.u8())
		switch m.Class {
		case LayoutCompact:
			size := int(c.u16())
			m.CompactData = c.bytes(size)
		case LayoutContiguous:
			m.Address = c.offset()
			m.Size = c.length()
		case LayoutChunked:
			if m.Version == 3 {
				parseChunkedV3(c, m)
			} else if err := parseChunkedV4(c, m); err != nil {
				return nil, err
			}
		default:
			if c.err == nil {
				return nil, fmt.Errorf("unsupported %s layout", m.Class)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported data layout version %d", m.Version)
	}
	return m, c.err
}

func parseLayoutV1V2(c *cursor, m *DataLayout) {
	ndims := int(c.u8())
	m.Class = LayoutClass(c.u8())
	c.skip(5) // reserved
	if m.Class != LayoutCompact {
		m.Address = c.offset()
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		dims[i] = uint64(c.u32())
	}

	switch m.Class {
	case LayoutCompact:
		size := int(c.u32())
		m.CompactData = c.bytes(size)
	case LayoutContiguous:
		// Dimensions are in elements with the element size as the last entry.
		m.Size = 1
		for _, d := range dims {
			m.Size *= d
		}
	case LayoutChunked:
		m.ChunkIndexAddr = m.Address
		m.Address = 0
		m.ChunkDims = append(dims, uint64(c.u32()))
	}
}

func parseChunkedV3(c *cursor, m *DataLayout) {
	ndims := int(c.u8())
	m.ChunkIndexAddr = c.offset()
	m.ChunkDims = make([]uint64, ndims)
	for i := range m.ChunkDims {
		m.ChunkDims[i] = uint64(c.u32())
	}
}

func parseChunkedV4(c *cursor, m *DataLayout) error {
	m.ChunkFlags = c.u8()
	ndims := int(c.u8())
	encSize := int(c.u8())
	m.ChunkDims = make([]uint64, ndims)
	for i := range m.ChunkDims {
		m.ChunkDims[i] = c.uintN(encSize)
	}
	m.ChunkIndexType = ChunkIndexType(c.u8())

	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if m.ChunkFlags&LayoutFlagSingleFiltered != 0 {
			m.FilteredSize = c.length()
			m.FilterMask = c.u32()
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		c.skip(1)
	case ChunkIndexExtensibleArray:
		c.skip(5)
	case ChunkIndexBTreeV2:
		c.skip(6)
	default:
		if c.err == nil {
			return fmt.Errorf("unknown chunk index type %d", m.ChunkIndexType)
		}
	}
	m.ChunkIndexAddr = c.offset()
	return nil
}

// Serialize writes a version 3 compact or contiguous layout, or a version 4
// chunked layout with a single chunk index.
func (m *DataLayout) Serialize(w *binpkg.Writer) error {
	switch m.Class {
	case LayoutCompact:
		if err := writeBytes(w, 3, uint8(LayoutCompact)); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(m.CompactData))); err != nil {
			return err
		}
		return w.WriteBytes(m.CompactData)

	case LayoutContiguous:
		if err := writeBytes(w, 3, uint8(LayoutContiguous)); err != nil {
			return err
		}
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)

	case LayoutChunked:
		if m.ChunkIndexType != ChunkIndexSingleChunk {
			return fmt.Errorf("writing chunk index type %d is not supported", m.ChunkIndexType)
		}
		enc := m.dimEncodingSize()
		if err := writeBytes(w, 4, uint8(LayoutChunked), m.ChunkFlags, uint8(len(m.ChunkDims)), uint8(enc)); err != nil {
			return err
		}
		for _, d := range m.ChunkDims {
			if err := w.WriteUintN(d, enc); err != nil {
				return err
			}
		}
		if err := w.WriteUint8(uint8(m.ChunkIndexType)); err != nil {
			return err
		}
		if m.ChunkFlags&LayoutFlagSingleFiltered != 0 {
			if err := w.WriteLength(m.FilteredSize); err != nil {
				return err
			}
			if err := w.WriteUint32(m.FilterMask); err != nil {
				return err
			}
		}
		return w.WriteOffset(m.ChunkIndexAddr)
	}
	return fmt.Errorf("writing %s layout is not supported", m.Class)
}

// SerializedSize returns the size in bytes when serialized.
func (m *DataLayout) SerializedSize(w *binpkg.Writer) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)
	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()
	case LayoutChunked:
		n := 5 + len(m.ChunkDims)*m.dimEncodingSize() + 1 + w.OffsetSize()
		if m.ChunkFlags&LayoutFlagSingleFiltered != 0 {
			n += w.LengthSize() + 4
		}
		return n
	}
	return 0
}

func (m *DataLayout) dimEncodingSize() int {
	var largest uint64
	for _, d := range m.ChunkDims {
		largest = max(largest, d)
	}
	return minBytes(largest)
}

// NumChunkDims returns the chunk dimensions without the element size entry.
func (m *DataLayout) NumChunkDims() []uint64 {
	if len(m.ChunkDims) == 0 {
		return nil
	}
	return m.ChunkDims[:len(m.ChunkDims)-1]
}

// NewContiguousLayout creates a contiguous layout of size bytes at addr.
func NewContiguousLayout(addr, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

// NewCompactLayout creates a layout that stores data in the object header.
func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}

// NewSingleChunkLayout creates a chunked layout whose only chunk covers the
// whole dataspace. When filtered is true the chunk passed through a filter
// pipeline and storedSize is its size on disk.
func NewSingleChunkLayout(dims []uint64, elemSize uint32, addr uint64, filtered bool, storedSize uint64) *DataLayout {
	chunk := make([]uint64, 0, len(dims)+1)
	chunk = append(chunk, dims...)
	chunk = append(chunk, uint64(elemSize))
	m := &DataLayout{
		Version:        4,
		Class:          LayoutChunked,
		ChunkDims:      chunk,
		ChunkIndexType: ChunkIndexSingleChunk,
		ChunkIndexAddr: addr,
	}
	if filtered {
		m.ChunkFlags = LayoutFlagSingleFiltered
		m.FilteredSize = storedSize
	}
	return m
}

func writeBytes(w *binpkg.Writer, b ...uint8) error {
	return w.WriteBytes(b)
}
