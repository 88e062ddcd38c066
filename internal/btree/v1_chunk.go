package btree

import (
	"bytes"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

// ChunkEntry locates one stored chunk of a dataset.
type ChunkEntry struct {
	Offset     []uint64 // element coordinates of the chunk's first element
	Size       uint32   // bytes on disk, after filtering
	FilterMask uint32
	Address    uint64
}

// ChunkEntries returns every chunk indexed by the version 1 chunk B-tree at
// addr. rank is the dataset rank; keys carry one extra offset for the
// element size dimension.
func ChunkEntries(r *binpkg.Reader, addr uint64, rank int) ([]ChunkEntry, error) {
	var out []ChunkEntry
	if err := walkChunkNode(r, addr, rank, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// walkChunkNode reads a node of type 1 whose keys are
//
//	4 chunk size, 4 filter mask, (rank+1) x 8 chunk offsets
//
// and whose level 0 children are chunk addresses.
func walkChunkNode(r *binpkg.Reader, addr uint64, rank, depth int, out *[]ChunkEntry) error {
	if depth > maxDepth {
		return fmt.Errorf("chunk B-tree deeper than %d levels", maxDepth)
	}
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}
	if !bytes.Equal(head[:4], treeSignature) {
		return fmt.Errorf("B-tree node at %d: bad signature %q", addr, head[:4])
	}
	if head[4] != 1 {
		return fmt.Errorf("B-tree node at %d: node type %d is not a chunk node", addr, head[4])
	}
	level := head[5]
	used := int(r.ByteOrder().Uint16(head[6:]))
	nr.Skip(2 * int64(nr.OffsetSize()))

	entries := make([]ChunkEntry, used)
	for i := range entries {
		e := &entries[i]
		if e.Size, err = nr.ReadUint32(); err != nil {
			return err
		}
		if e.FilterMask, err = nr.ReadUint32(); err != nil {
			return err
		}
		e.Offset = make([]uint64, rank)
		for d := range e.Offset {
			if e.Offset[d], err = nr.ReadUint64(); err != nil {
				return err
			}
		}
		nr.Skip(8) // element size dimension
		if e.Address, err = nr.ReadOffset(); err != nil {
			return err
		}
	}

	if level == 0 {
		*out = append(*out, entries...)
		return nil
	}
	for _, e := range entries {
		if err := walkChunkNode(r, e.Address, rank, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}
