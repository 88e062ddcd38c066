package layout

import (
	"fmt"

	"github.com/ndming/orca-blender/internal/alloc"
	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/filter"
	"github.com/ndming/orca-blender/internal/message"
)

// WriteContiguous stores data in one block at the end of the file.
func WriteContiguous(w *binpkg.Writer, a *alloc.Allocator, data []byte) (*message.DataLayout, error) {
	if len(data) == 0 {
		return message.NewContiguousLayout(w.UndefinedOffset(), 0), nil
	}
	addr := a.Alloc(uint64(len(data)))
	if err := w.At(int64(addr)).WriteBytes(data); err != nil {
		return nil, fmt.Errorf("writing contiguous data: %w", err)
	}
	return message.NewContiguousLayout(addr, uint64(len(data))), nil
}

// WriteSingleChunk stores data as one chunk spanning dims, encoded by the
// pipeline when it has filters.
func WriteSingleChunk(
	w *binpkg.Writer,
	a *alloc.Allocator,
	dims []uint64,
	elemSize uint32,
	data []byte,
	pipeline *message.FilterPipeline,
) (*message.DataLayout, error) {
	p, err := filter.NewPipeline(pipeline)
	if err != nil {
		return nil, err
	}
	stored := data
	if p.Len() > 0 {
		if stored, err = p.Encode(data); err != nil {
			return nil, err
		}
	}
	addr := a.Alloc(uint64(len(stored)))
	if err := w.At(int64(addr)).WriteBytes(stored); err != nil {
		return nil, fmt.Errorf("writing chunk: %w", err)
	}
	return message.NewSingleChunkLayout(dims, elemSize, addr, p.Len() > 0, uint64(len(stored))), nil
}
