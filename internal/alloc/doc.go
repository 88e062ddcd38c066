// Package alloc hands out file space for HDF5 writing.
//
// Space is append-only: every allocation is placed at the current end of the
// file, which then advances. Headers that are rewritten (a group gaining a new
// member after it was first flushed) leave their previous block behind; the
// allocator records those released bytes so callers can report how much of a
// file is unreachable.
//
//	a := alloc.New(48)      // first byte after a v2 superblock
//	addr := a.Alloc(1024)   // 48
//	a.Release(addr, 1024)   // block superseded by a newer copy
package alloc
