package btree

import (
	"bytes"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/heap"
)

var (
	treeSignature = []byte("TREE")
	snodSignature = []byte("SNOD")
)

// maxDepth bounds recursion through corrupt trees.
const maxDepth = 64

// cacheSymlink marks a symbol table entry whose scratch pad holds the heap
// offset of a link target.
const cacheSymlink uint32 = 2

// GroupEntry is one member of an old-style group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	SoftLink      string // set for symbolic links, ObjectAddress is then meaningless
}

// IsSoftLink reports whether the entry is a symbolic link.
func (e GroupEntry) IsSoftLink() bool { return e.SoftLink != "" }

// GroupEntries returns every entry reachable from the group B-tree at addr.
func GroupEntries(r *binpkg.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	var out []GroupEntry
	if err := walkNode(r, addr, names, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// walkNode reads
//
//	4 "TREE", 1 node type (0 = group), 1 level, 2 entries used,
//	O left sibling, O right sibling, then entries+1 keys interleaved with
//	entries children: key0 child0 key1 child1 ... keyN
//
// Group keys are L-sized heap offsets and are not needed for a full scan.
func walkNode(r *binpkg.Reader, addr uint64, names *heap.Local, depth int, out *[]GroupEntry) error {
	if depth > maxDepth {
		return fmt.Errorf("group B-tree deeper than %d levels", maxDepth)
	}
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}
	if !bytes.Equal(head[:4], treeSignature) {
		return fmt.Errorf("B-tree node at %d: bad signature %q", addr, head[:4])
	}
	if head[4] != 0 {
		return fmt.Errorf("B-tree node at %d: node type %d is not a group node", addr, head[4])
	}
	level := head[5]
	used := int(r.ByteOrder().Uint16(head[6:]))
	nr.Skip(2 * int64(nr.OffsetSize()))

	children := make([]uint64, used)
	for i := range children {
		nr.Skip(int64(nr.LengthSize()))
		if children[i], err = nr.ReadOffset(); err != nil {
			return fmt.Errorf("B-tree node at %d: child %d: %w", addr, i, err)
		}
	}

	for _, child := range children {
		if level > 0 {
			err = walkNode(r, child, names, depth+1, out)
		} else {
			err = readSymbolNode(r, child, names, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readSymbolNode reads
//
//	4 "SNOD", 1 version (1), 1 reserved, 2 symbol count, entries
//
// where each entry is O name offset, O header address, 4 cache type,
// 4 reserved and a 16-byte scratch pad.
func readSymbolNode(r *binpkg.Reader, addr uint64, names *heap.Local, out *[]GroupEntry) error {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("symbol node at %d: %w", addr, err)
	}
	if !bytes.Equal(head[:4], snodSignature) {
		return fmt.Errorf("symbol node at %d: bad signature %q", addr, head[:4])
	}
	if head[4] != 1 {
		return fmt.Errorf("symbol node at %d: unsupported version %d", addr, head[4])
	}
	count := int(r.ByteOrder().Uint16(head[6:]))

	for i := 0; i < count; i++ {
		nameOff, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		objAddr, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		cache, err := nr.ReadUint32()
		if err != nil {
			return err
		}
		nr.Skip(4)
		scratch, err := nr.ReadBytes(16)
		if err != nil {
			return err
		}

		name, err := names.String(nameOff)
		if err != nil {
			return fmt.Errorf("symbol node at %d: entry %d: %w", addr, i, err)
		}
		e := GroupEntry{Name: name, ObjectAddress: objAddr}
		if cache == cacheSymlink {
			target, err := names.String(uint64(r.ByteOrder().Uint32(scratch)))
			if err != nil {
				return fmt.Errorf("symbol node at %d: link %q: %w", addr, name, err)
			}
			e.SoftLink = target
		}
		*out = append(*out, e)
	}
	return nil
}
