package superblock

import (
	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// New returns a version 2 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{
		Version:          2,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: ^uint64(0),
	}
}

// Size returns the encoded size of a version 2/3 superblock.
func (sb *Superblock) Size() int {
	o := int(sb.OffsetSize)
	if o == 0 {
		o = 8
	}
	return 12 + 4*o + 4
}

// Write encodes sb as a version 2 superblock at the writer position.
// Older versions are upgraded; their root symbol table entry is dropped and
// the root group must then carry its own symbol table message.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	bw, buf := binpkg.NewBufferWriter(w.Config())

	version := sb.Version
	if version < 2 {
		version = 2
	}
	if err := bw.WriteBytes(Signature); err != nil {
		return err
	}
	for _, b := range []uint8{version, uint8(w.OffsetSize()), uint8(w.LengthSize()), sb.ConsistencyFlags} {
		if err := bw.WriteUint8(b); err != nil {
			return err
		}
	}

	ext := sb.ExtensionAddress
	if ext == 0 {
		ext = bw.UndefinedOffset()
	}
	for _, addr := range []uint64{sb.BaseAddress, ext, sb.EOFAddress, sb.RootGroupAddress} {
		if err := bw.WriteOffset(addr); err != nil {
			return err
		}
	}
	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return err
	}

	sb.Version = version
	sb.OffsetSize = uint8(w.OffsetSize())
	sb.LengthSize = uint8(w.LengthSize())
	sb.ExtensionAddress = ext
	return w.WriteBytes(buf.Bytes())
}
