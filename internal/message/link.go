package message

import (
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// LinkType is the kind of a link message.
type LinkType uint8

const (
	LinkHard     LinkType = 0
	LinkSoft     LinkType = 1
	LinkExternal LinkType = 64
)

// Link represents a link message (type 0x0006).
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder *uint64
	Charset       CharacterSet
	Name          string

	ObjectAddress uint64 // hard links
	SoftTarget    string // soft links
	ExternalFile  string // external links
	ExternalPath  string
}

func (m *Link) Type() Type { return TypeLink }

// IsHard returns true for hard links.
func (m *Link) IsHard() bool { return m.LinkType == LinkHard }

func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	c := newCursor(data, r)
	m := &Link{Version: c.u8()}
	if c.err == nil && m.Version != 1 {
		return nil, fmt.Errorf("unsupported link version %d", m.Version)
	}
	flags := c.u8()

	if flags&0x08 != 0 {
		m.LinkType = LinkType(c.u8())
	}
	if flags&0x04 != 0 {
		order := c.u64()
		m.CreationOrder = &order
	}
	if flags&0x10 != 0 {
		m.Charset = CharacterSet(c.u8())
	}
	nameLen := int(c.uintN(1 << (flags & 0x03)))
	m.Name = string(c.bytes(nameLen))

	switch m.LinkType {
	case LinkHard:
		m.ObjectAddress = c.offset()
	case LinkSoft:
		n := int(c.u16())
		m.SoftTarget = string(c.bytes(n))
	case LinkExternal:
		n := int(c.u16())
		value := c.bytes(n)
		if len(value) > 1 {
			// First byte holds version and flags, then two NUL-terminated strings.
			parts := splitNul(value[1:])
			if len(parts) > 0 {
				m.ExternalFile = parts[0]
			}
			if len(parts) > 1 {
				m.ExternalPath = parts[1]
			}
		}
	default:
		if c.err == nil {
			return nil, fmt.Errorf("unsupported link type %d", m.LinkType)
		}
	}
	return m, c.err
}

func splitNul(b []byte) []string {
	var out []string
	start := 0
	for i, ch := range b {
		if ch == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, string(b[start:]))
	}
	return out
}

func (m *Link) flags() uint8 {
	var flags uint8
	switch minBytes(uint64(len(m.Name))) {
	case 2:
		flags = 1
	case 4:
		flags = 2
	case 8:
		flags = 3
	}
	if m.LinkType != LinkHard {
		flags |= 0x08
	}
	if m.CreationOrder != nil {
		flags |= 0x04
	}
	if m.Charset != CharsetASCII {
		flags |= 0x10
	}
	return flags
}

// Serialize writes a hard or soft link.
func (m *Link) Serialize(w *binpkg.Writer) error {
	flags := m.flags()
	if err := writeBytes(w, 1, flags); err != nil {
		return err
	}
	if flags&0x08 != 0 {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}
	if m.CreationOrder != nil {
		if err := w.WriteUint64(*m.CreationOrder); err != nil {
			return err
		}
	}
	if flags&0x10 != 0 {
		if err := w.WriteUint8(uint8(m.Charset)); err != nil {
			return err
		}
	}
	if err := w.WriteUintN(uint64(len(m.Name)), 1<<(flags&0x03)); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}

	switch m.LinkType {
	case LinkHard:
		return w.WriteOffset(m.ObjectAddress)
	case LinkSoft:
		if err := w.WriteUint16(uint16(len(m.SoftTarget))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.SoftTarget))
	}
	return fmt.Errorf("writing link type %d is not supported", m.LinkType)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Link) SerializedSize(w *binpkg.Writer) int {
	flags := m.flags()
	n := 2 + 1<<(flags&0x03) + len(m.Name)
	if flags&0x08 != 0 {
		n++
	}
	if m.CreationOrder != nil {
		n += 8
	}
	if flags&0x10 != 0 {
		n++
	}
	switch m.LinkType {
	case LinkHard:
		n += w.OffsetSize()
	case LinkSoft:
		n += 2 + len(m.SoftTarget)
	}
	return n
}

// NewHardLink creates a hard link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Version: 1, LinkType: LinkHard, Charset: CharsetUTF8, Name: name, ObjectAddress: addr}
}

// LinkInfo represents a link info message (type 0x0002).
type LinkInfo struct {
	Version              uint8
	Flags                uint8
	MaxCreationIndex     uint64
	FractalHeapAddress   uint64
	NameIndexAddress     uint64
	CreationIndexAddress uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// HasDenseStorage reports whether links are kept in a fractal heap instead
// of link messages.
func (m *LinkInfo) HasDenseStorage(undefined uint64) bool {
	return m.FractalHeapAddress != undefined && m.FractalHeapAddress != 0
}

func parseLinkInfo(data []byte, r *binpkg.Reader) (*LinkInfo, error) {
	c := newCursor(data, r)
	m := &LinkInfo{Version: c.u8(), Flags: c.u8()}
	if c.err == nil && m.Version != 0 {
		return nil, fmt.Errorf("unsupported link info version %d", m.Version)
	}
	if m.Flags&0x01 != 0 {
		m.MaxCreationIndex = c.u64()
	}
	m.FractalHeapAddress = c.offset()
	m.NameIndexAddress = c.offset()
	if m.Flags&0x02 != 0 {
		m.CreationIndexAddress = c.offset()
	}
	return m, c.err
}

// Serialize writes a link info message for compact link storage.
func (m *LinkInfo) Serialize(w *binpkg.Writer) error {
	if err := writeBytes(w, 0, 0); err != nil {
		return err
	}
	if err := w.WriteUndefinedOffset(); err != nil {
		return err
	}
	return w.WriteUndefinedOffset()
}

// SerializedSize returns the size in bytes when serialized.
func (m *LinkInfo) SerializedSize(w *binpkg.Writer) int {
	return 2 + 2*w.OffsetSize()
}

// GroupInfo represents a group info message (type 0x000A). Only the default,
// field-less form is written.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Serialize writes version 0 with no optional fields.
func (m *GroupInfo) Serialize(w *binpkg.Writer) error {
	return writeBytes(w, 0, 0)
}

// SerializedSize returns the size in bytes when serialized.
func (m *GroupInfo) SerializedSize(w *binpkg.Writer) int { return 2 }

// SymbolTable represents a symbol table message (type 0x0011) of an
// old-style group.
type SymbolTable struct {
	BTreeAddress uint64
	HeapAddress  uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binpkg.Reader) (*SymbolTable, error) {
	c := newCursor(data, r)
	m := &SymbolTable{
		BTreeAddress: c.offset(),
		HeapAddress:  c.offset(),
	}
	return m, c.err
}
