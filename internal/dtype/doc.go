// Package dtype converts between Go values and HDF5 element bytes.
//
// Supported element types:
//
//	HDF5 class      Go types
//	integer         int8..int64, uint8..uint64, int, uint, bool (as uint8)
//	float           float32, float64
//	string          string (fixed length, NUL terminated)
//
// [Encode] accepts a scalar, a slice or nested slices and returns the
// datatype, the dataspace dimensions and the packed little-endian bytes.
// The decode helpers widen any integer or float element to the requested
// Go type and honour the datatype's byte order.
package dtype
