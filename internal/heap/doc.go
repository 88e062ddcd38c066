// Package heap reads HDF5 local heaps.
//
// A local heap (signature "HEAP") holds the NUL-terminated member names of an
// old-style group. Symbol table entries refer to names by their offset into
// the heap's data segment:
//
//	h, err := heap.ReadLocal(r, symtab.HeapAddress)
//	name, err := h.String(entry.NameOffset)
package heap
