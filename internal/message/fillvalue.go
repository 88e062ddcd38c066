package message

import binpkg "github.com/ndming/orca-blender/internal/binary"

// Fill value allocation times.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// FillValue represents a version 3 fill value message (type 0x0005) with
// no user-defined value. Fill values are written only when one is set.
type FillValue struct {
	AllocTime uint8
}

func (m *FillValue) Type() Type { return TypeFillValue }

// Serialize writes the message.
func (m *FillValue) Serialize(w *binpkg.Writer) error {
	const writeIfSet = 2 << 2
	return writeBytes(w, 3, m.AllocTime|writeIfSet)
}

// SerializedSize returns the size in bytes when serialized.
func (m *FillValue) SerializedSize(w *binpkg.Writer) int { return 2 }
