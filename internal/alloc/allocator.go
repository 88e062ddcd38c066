package alloc

// Allocator manages append-only space allocation within an HDF5 file.
type Allocator struct {
	eofAddr uint64
	stats   Stats
}

// Stats contains allocation statistics.
type Stats struct {
	Allocations   uint64 // number of blocks handed out
	BytesAlloc    uint64 // total bytes handed out
	BytesReleased uint64 // bytes in blocks superseded by a newer copy
}

// New creates an allocator whose first block starts at eofAddr.
func New(eofAddr uint64) *Allocator {
	return &Allocator{eofAddr: eofAddr}
}

// Alloc reserves size bytes at the end of the file and returns their address.
// A zero-size request returns the current end of file without reserving.
func (a *Allocator) Alloc(size uint64) uint64 {
	addr := a.eofAddr
	if size == 0 {
		return addr
	}
	a.eofAddr += size
	a.stats.Allocations++
	a.stats.BytesAlloc += size
	return addr
}

// Release records that the block at addr is no longer referenced.
// The space is not reused.
func (a *Allocator) Release(addr, size uint64) {
	if size == 0 || addr >= a.eofAddr {
		return
	}
	a.stats.BytesReleased += size
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	return a.eofAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	return a.stats
}
