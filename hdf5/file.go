package hdf5

import (
	"fmt"
	"os"

	"github.com/ndming/orca-blender/internal/alloc"
	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/message"
	"github.com/ndming/orca-blender/internal/object"
	"github.com/ndming/orca-blender/internal/superblock"
)

// File represents an open HDF5 file.
//
// Writes are deferred at the group level: datasets are stored as soon as
// they are created, while group headers are rewritten by Flush or Close.
type File struct {
	path       string
	file       *os.File
	reader     *binpkg.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	// Write support fields
	writer    *binpkg.Writer // nil when read-only
	allocator *alloc.Allocator
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	hdf, err := open(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return hdf, nil
}

// OpenReadWrite opens an existing HDF5 file for appending. Groups that
// change are rewritten at the end of the file on Flush or Close. Files with
// a version 0 or 1 superblock are upgraded to version 2 when modified.
func OpenReadWrite(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	hdf, err := open(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	sb := hdf.superblock
	if sb.FileOffset != 0 || sb.BaseAddress != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: writing files with a user block", ErrUnsupported)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening file: %w", err)
	}
	eof := max(sb.EOFAddress, uint64(info.Size()))

	hdf.writer = binpkg.NewWriter(f, sb.Config())
	hdf.allocator = alloc.New(eof)
	return hdf, nil
}

// Create creates a new HDF5 file at path, truncating any existing file.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	cfg := sb.Config()
	hdf := &File{
		path:       path,
		file:       f,
		reader:     binpkg.NewReader(f, cfg),
		superblock: sb,
		writer:     binpkg.NewWriter(f, cfg),
		allocator:  alloc.New(uint64(sb.Size())),
	}
	hdf.root = &Group{file: hdf, path: "/", loaded: true, dirty: true, addr: hdf.writer.UndefinedOffset()}

	// A readable file exists from the start, even if the caller never adds
	// anything before Close.
	if err := hdf.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return hdf, nil
}

func open(path string, f *os.File) (*File, error) {
	sb, err := superblock.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	hdf := &File{
		path:       path,
		file:       f,
		reader:     binpkg.NewReader(f, sb.Config()),
		superblock: sb,
	}
	hdf.root = &Group{file: hdf, path: "/", addr: sb.RootGroupAddress}
	if err := hdf.root.load(); err != nil {
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	return hdf, nil
}

// Root returns the root group of the file.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// Writable reports whether the file was opened with Create or OpenReadWrite.
func (f *File) Writable() bool {
	return f.writer != nil
}

// OpenGroup opens a group by path relative to the root.
func (f *File) OpenGroup(path string) (*Group, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path relative to the root.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.root.OpenDataset(path)
}

// Flush writes every modified group, children first, and then the
// superblock. It is a no-op for read-only files.
func (f *File) Flush() error {
	if err := f.check(); err != nil {
		return err
	}
	if f.writer == nil {
		return nil
	}
	if !f.root.dirty && f.allocator.EOFAddr() == f.superblock.EOFAddress {
		return nil
	}
	if err := f.root.flush(); err != nil {
		return err
	}

	f.superblock.RootGroupAddress = f.root.addr
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if err := f.superblock.Write(f.writer.At(f.superblock.FileOffset)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// Close flushes a writable file and releases the underlying handle. Closing
// twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	err := f.Flush()
	f.closed = true
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (f *File) check() error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *File) checkWritable() error {
	if f.closed {
		return ErrClosed
	}
	if f.writer == nil {
		return ErrReadOnly
	}
	return nil
}

// undefinedAddress returns the all-ones address for the file's offset size.
func (f *File) undefinedAddress() uint64 {
	size := int(f.superblock.OffsetSize)
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(uint(size)*8) - 1
}

// writeHeader stores an object header at the end of the file.
func (f *File) writeHeader(msgs []message.Serializable) (addr, size uint64, err error) {
	size = uint64(object.Size(f.writer, msgs))
	addr = f.allocator.Alloc(size)
	if err := object.Write(f.writer.At(int64(addr)), msgs); err != nil {
		return 0, 0, fmt.Errorf("writing object header: %w", err)
	}
	return addr, size, nil
}
