package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// Signature is the 8-byte HDF5 file signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Offsets searched for the signature, in order.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock holds the file-level metadata of an HDF5 file.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	// Version 2/3 only.
	ConsistencyFlags uint8
	ExtensionAddress uint64

	BaseAddress      uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// Version 0/1 only.
	GroupLeafK        uint16
	GroupInternalK    uint16
	IndexedStorageK   uint16
	RootBTreeAddress  uint64 // from the root entry scratch pad
	RootHeapAddress   uint64
	HasRootScratchPad bool

	// FileOffset is where the signature was found.
	FileOffset int64
}

// Read locates and parses the superblock of r.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)
	for _, off := range searchOffsets {
		n, err := r.ReadAt(sig, off)
		if n < len(sig) {
			if err == nil || errors.Is(err, io.EOF) {
				continue
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}

		var sb *Superblock
		switch version := sig[8]; version {
		case 0, 1:
			sb, err = readV0V1(r, off, version)
		case 2, 3:
			sb, err = readV2V3(r, off)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, fmt.Errorf("superblock v%d at %d: %w", sig[8], off, err)
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// Config returns the field widths used by the rest of the file.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// readV0V1 decodes the fixed-width fields, the address block and the root
// group symbol table entry:
//
//	8  signature       1  version         1  free-space version
//	1  root entry ver  1  reserved        1  shared header version
//	1  offset size     1  length size     1  reserved
//	2  leaf K          2  internal K      4  consistency flags
//	[2 indexed storage K, 2 reserved]     (version 1)
//	O  base  O  free-space  O  EOF  O  driver info
//	root entry: O name offset, O header, 4 cache type, 4 reserved, 16 scratch
func readV0V1(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 16)
	if _, err := r.ReadAt(head, off+8); err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:        version,
		OffsetSize:     head[5],
		LengthSize:     head[6],
		GroupLeafK:     binary.LittleEndian.Uint16(head[8:]),
		GroupInternalK: binary.LittleEndian.Uint16(head[10:]),
	}
	if err := sb.Config().Validate(); err != nil {
		return nil, err
	}

	br := binpkg.NewReader(r, sb.Config()).At(off + 24)
	if version == 1 {
		k, err := br.ReadUint16()
		if err != nil {
			return nil, err
		}
		sb.IndexedStorageK = k
		br.Skip(2)
	}

	var err error
	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize)) // free-space info
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize)) // driver info

	br.Skip(int64(sb.OffsetSize)) // root entry link name offset
	if sb.RootGroupAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	cacheType, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	br.Skip(4)
	if cacheType == 1 {
		sb.HasRootScratchPad = true
		if sb.RootBTreeAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
		if sb.RootHeapAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

// readV2V3 decodes a checksummed superblock:
//
//	8 signature, 1 version, 1 offset size, 1 length size, 1 flags,
//	O base, O extension, O EOF, O root header, 4 lookup3 checksum
func readV2V3(r io.ReaderAt, off int64) (*Superblock, error) {
	head := make([]byte, 12)
	if _, err := r.ReadAt(head, off); err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:          head[8],
		OffsetSize:       head[9],
		LengthSize:       head[10],
		ConsistencyFlags: head[11],
	}
	if err := sb.Config().Validate(); err != nil {
		return nil, err
	}

	body := make([]byte, sb.Size())
	if _, err := r.ReadAt(body, off); err != nil {
		return nil, err
	}
	sum := len(body) - 4
	if binary.LittleEndian.Uint32(body[sum:]) != binpkg.Lookup3Checksum(body[:sum]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}

	o := int(sb.OffsetSize)
	addr := func(i int) uint64 {
		return binpkg.DecodeUint(body[12+i*o:], o, binary.LittleEndian)
	}
	sb.BaseAddress = addr(0)
	sb.ExtensionAddress = addr(1)
	sb.EOFAddress = addr(2)
	sb.RootGroupAddress = addr(3)
	return sb, nil
}
