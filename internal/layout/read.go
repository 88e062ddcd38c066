package layout

import (
	"errors"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/btree"
	"github.com/ndming/orca-blender/internal/filter"
	"github.com/ndming/orca-blender/internal/message"
)

// ErrUnsupported is returned for layouts and chunk indexes not handled here.
var ErrUnsupported = errors.New("unsupported storage layout")

// Source describes a dataset for reading.
type Source struct {
	Layout   *message.DataLayout
	Space    *message.Dataspace
	Type     *message.Datatype
	Pipeline *message.FilterPipeline // nil without filters
}

// Size returns the in-memory size of the dataset in bytes.
func (s Source) Size() uint64 {
	return s.Space.NumElements() * uint64(s.Type.Size)
}

// Read returns the dataset's raw bytes in row-major order. Storage that was
// never allocated reads as zeros.
func Read(r *binpkg.Reader, src Source) ([]byte, error) {
	size := src.Size()
	switch l := src.Layout; l.Class {
	case message.LayoutCompact:
		if uint64(len(l.CompactData)) < size {
			return nil, fmt.Errorf("compact data is %d bytes, want %d", len(l.CompactData), size)
		}
		out := make([]byte, size)
		copy(out, l.CompactData)
		return out, nil

	case message.LayoutContiguous:
		if r.IsUndefinedOffset(l.Address) {
			return make([]byte, size), nil
		}
		// Layout versions 1 and 2 record a size that may be truncated.
		if l.Version >= 3 && l.Size < size {
			return nil, fmt.Errorf("contiguous block is %d bytes, want %d", l.Size, size)
		}
		return r.At(int64(l.Address)).ReadBytes(int(size))

	case message.LayoutChunked:
		return readChunked(r, src)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, src.Layout.Class)
}

func readChunked(r *binpkg.Reader, src Source) ([]byte, error) {
	l := src.Layout
	pipeline, err := filter.NewPipeline(src.Pipeline)
	if err != nil {
		return nil, err
	}
	out := make([]byte, src.Size())
	if r.IsUndefinedOffset(l.ChunkIndexAddr) {
		return out, nil
	}

	dims := src.Space.Dimensions
	chunk := l.NumChunkDims()
	if len(chunk) != len(dims) {
		return nil, fmt.Errorf("chunk rank %d does not match dataspace rank %d", len(chunk), len(dims))
	}

	switch {
	case l.Version < 4:
		entries, err := btree.ChunkEntries(r, l.ChunkIndexAddr, len(dims))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			data, err := readChunk(r, pipeline, e.Address, uint64(e.Size), e.FilterMask)
			if err != nil {
				return nil, fmt.Errorf("chunk %v: %w", e.Offset, err)
			}
			place(out, data, e.Offset, dims, chunk, uint64(src.Type.Size))
		}
		return out, nil

	case l.ChunkIndexType == message.ChunkIndexSingleChunk:
		stored, mask := chunkBytes(chunk, src.Type.Size), uint32(0)
		if l.ChunkFlags&message.LayoutFlagSingleFiltered != 0 {
			stored, mask = l.FilteredSize, l.FilterMask
		}
		data, err := readChunk(r, pipeline, l.ChunkIndexAddr, stored, mask)
		if err != nil {
			return nil, err
		}
		place(out, data, make([]uint64, len(dims)), dims, chunk, uint64(src.Type.Size))
		return out, nil
	}
	return nil, fmt.Errorf("%w: chunk index type %d", ErrUnsupported, l.ChunkIndexType)
}

func readChunk(r *binpkg.Reader, p *filter.Pipeline, addr, size uint64, mask uint32) ([]byte, error) {
	raw, err := r.At(int64(addr)).ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	return p.Decode(raw, mask)
}

func chunkBytes(chunk []uint64, elem uint32) uint64 {
	n := uint64(elem)
	for _, d := range chunk {
		n *= d
	}
	return n
}

// place copies a full chunk whose first element sits at offset into out,
// clipping the parts that fall outside dims.
func place(out, data []byte, offset, dims, chunk []uint64, elem uint64) {
	rank := len(dims)
	if rank == 0 {
		copy(out, data)
		return
	}
	outStride := make([]uint64, rank)
	chunkStride := make([]uint64, rank)
	outStride[rank-1], chunkStride[rank-1] = elem, elem
	for d := rank - 2; d >= 0; d-- {
		outStride[d] = outStride[d+1] * dims[d+1]
		chunkStride[d] = chunkStride[d+1] * chunk[d+1]
	}
	extent := make([]uint64, rank)
	for d := range extent {
		if offset[d] >= dims[d] {
			return
		}
		extent[d] = min(chunk[d], dims[d]-offset[d])
	}

	var walk func(d int, o, c uint64)
	walk = func(d int, o, c uint64) {
		if d == rank-1 {
			n := extent[d] * elem
			o += offset[d] * elem
			if c+n <= uint64(len(data)) && o+n <= uint64(len(out)) {
				copy(out[o:o+n], data[c:c+n])
			}
			return
		}
		for i := uint64(0); i < extent[d]; i++ {
			walk(d+1, o+(offset[d]+i)*outStride[d], c+i*chunkStride[d])
		}
	}
	walk(0, 0, 0)
}
