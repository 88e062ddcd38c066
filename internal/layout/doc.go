// Package layout moves dataset bytes between a file and memory.
//
// [Read] returns the raw element bytes of a dataset for each storage class
// the archive tools meet:
//
//   - compact data held in the layout message,
//   - contiguous blocks,
//   - chunked data indexed by a single chunk (layout version 4) or by a
//     version 1 B-tree (layout version 3, what h5py writes by default).
//
// The writers store a dataset either as one contiguous block or as one
// chunk covering the whole dataspace, optionally passed through a filter
// pipeline.
package layout
