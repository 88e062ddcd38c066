// Package filter implements the HDF5 filters used for chunked datasets.
//
// A [Pipeline] is built from a filter pipeline message. Writing applies the
// filters in message order; reading undoes them in reverse, skipping any
// filter whose bit is set in the chunk's filter mask.
//
// Supported filters:
//
//   - Deflate (ID 1), zlib streams via github.com/klauspost/compress/zlib.
//   - Shuffle (ID 2), byte transposition by element size.
//   - Fletcher-32 (ID 3), a trailing checksum.
//
// Unknown optional filters are dropped from the pipeline; unknown mandatory
// filters make [NewPipeline] fail.
package filter
