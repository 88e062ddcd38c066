// Package hdf5 reads and writes the subset of HDF5 used by orca archives:
// nested groups with compact link storage, attributes and numeric or string
// datasets stored contiguously or as one deflated chunk.
//
// Files written here use a version 2 superblock and version 2 object
// headers. Files produced by the reference HDF5 library (including h5py's
// default old-style groups) can be read and appended to.
package hdf5

import (
	"errors"
	"fmt"

	"github.com/ndming/orca-blender/internal/dtype"
	"github.com/ndming/orca-blender/internal/filter"
	"github.com/ndming/orca-blender/internal/layout"
	"github.com/ndming/orca-blender/internal/superblock"
)

// Common errors
var (
	ErrNotHDF5     = superblock.ErrNotHDF5
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrExists      = errors.New("name already exists")
	ErrInvalidName = errors.New("invalid object name")
	ErrReadOnly    = errors.New("file is read-only")
	ErrClosed      = errors.New("file is closed")
	ErrUnsupported = errors.New("unsupported feature")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the maximum number of soft links followed while resolving
// one path.
const MaxLinkDepth = 16

// unsupported tags errors from the format packages with ErrUnsupported.
func unsupported(err error) error {
	if errors.Is(err, dtype.ErrUnsupported) || errors.Is(err, layout.ErrUnsupported) || errors.Is(err, filter.ErrUnsupported) {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return err
}
