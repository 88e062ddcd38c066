package hdf5

import (
	"fmt"
	"path"

	"github.com/ndming/orca-blender/internal/dtype"
	"github.com/ndming/orca-blender/internal/filter"
	"github.com/ndming/orca-blender/internal/layout"
	"github.com/ndming/orca-blender/internal/message"
	"github.com/ndming/orca-blender/internal/object"
)

// Dataset represents an HDF5 dataset.
type Dataset struct {
	file   *File
	path   string
	header *object.Header
	source layout.Source
}

// newDataset creates a Dataset from an object header.
func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	src := layout.Source{
		Layout:   header.DataLayout(),
		Space:    header.Dataspace(),
		Type:     header.Datatype(),
		Pipeline: header.FilterPipeline(),
	}
	switch {
	case src.Space == nil:
		return nil, fmt.Errorf("%s: dataset missing dataspace message", path)
	case src.Type == nil:
		return nil, fmt.Errorf("%s: dataset missing datatype message", path)
	case src.Layout == nil:
		return nil, fmt.Errorf("%s: dataset missing layout message", path)
	}
	return &Dataset{file: f, path: path, header: header, source: src}, nil
}

// Name returns the dataset name (last component of path).
func (d *Dataset) Name() string {
	return path.Base(d.path)
}

// Path returns the full path to this dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dimensions of the dataset, nil for scalars.
func (d *Dataset) Shape() []uint64 {
	if d.source.Space.IsScalar() {
		return nil
	}
	return d.source.Space.Dimensions
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.source.Space.NumElements()
}

// Type returns a short description of the element type, e.g. "float32".
func (d *Dataset) Type() string {
	return dtype.Describe(d.source.Type)
}

// Layout returns the storage layout class name.
func (d *Dataset) Layout() string {
	return d.source.Layout.Class.String()
}

// Filters returns the names of the filters applied to stored data.
func (d *Dataset) Filters() []string {
	if d.source.Pipeline == nil {
		return nil
	}
	names := make([]string, len(d.source.Pipeline.Filters))
	for i, f := range d.source.Pipeline.Filters {
		names[i] = filter.Name(f.ID)
	}
	return names
}

// Attrs returns the attribute names of the dataset.
func (d *Dataset) Attrs() []string {
	var names []string
	for _, a := range d.header.Attributes() {
		names = append(names, a.Name)
	}
	return names
}

// Attr returns an attribute by name, or nil if not found.
func (d *Dataset) Attr(name string) *Attribute {
	return findAttr(d.header.Attributes(), name)
}

// ReadRaw reads all data from the dataset as raw bytes in row-major order.
func (d *Dataset) ReadRaw() ([]byte, error) {
	if err := d.file.check(); err != nil {
		return nil, err
	}
	raw, err := layout.Read(d.file.reader, d.source)
	if err != nil {
		return nil, fmt.Errorf("%s: reading data: %w", d.path, unsupported(err))
	}
	return raw, nil
}

// ReadFloat32 reads the dataset as float32 values.
func (d *Dataset) ReadFloat32() ([]float32, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	vals, err := dtype.Float32s(d.source.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, unsupported(err))
	}
	return vals, nil
}

// ReadFloat64 reads the dataset as float64 values.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	vals, err := dtype.Float64s(d.source.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, unsupported(err))
	}
	return vals, nil
}

// ReadInt64 reads an integer dataset as int64 values.
func (d *Dataset) ReadInt64() ([]int64, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	vals, err := dtype.Int64s(d.source.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, unsupported(err))
	}
	return vals, nil
}

// ReadString reads a fixed-length string dataset.
func (d *Dataset) ReadString() ([]string, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	vals, err := dtype.Strings(d.source.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, unsupported(err))
	}
	return vals, nil
}

// CreateDataset writes data as a new dataset. data is a scalar, a slice or
// a rectangular nested slice; its shape becomes the dataset shape.
//
// Example:
//
//	g.CreateDataset("matrix", [][]float64{{1, 2}, {3, 4}}, hdf5.WithCompression(6))
func (g *Group) CreateDataset(name string, data any, opts ...DatasetOption) (*Dataset, error) {
	if err := g.checkNewName(name); err != nil {
		return nil, err
	}
	dt, dims, raw, err := dtype.Encode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.Join(g.path, name), unsupported(err))
	}
	return g.writeDataset(name, dt, dims, raw, opts)
}

// CreateFloat32 writes a flat float32 buffer as a dataset of shape dims.
func (g *Group) CreateFloat32(name string, dims []uint64, data []float32, opts ...DatasetOption) (*Dataset, error) {
	if err := g.checkNewName(name); err != nil {
		return nil, err
	}
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	if n != uint64(len(data)) {
		return nil, fmt.Errorf("%s: shape %v holds %d values, got %d", path.Join(g.path, name), dims, n, len(data))
	}
	return g.writeDataset(name, message.NewFloatDatatype(4), dims, dtype.EncodeFloat32(data), opts)
}

// writeDataset stores the data and the dataset header immediately and
// links the dataset into g.
func (g *Group) writeDataset(name string, dt *message.Datatype, dims []uint64, raw []byte, opts []DatasetOption) (*Dataset, error) {
	o := &datasetOptions{}
	for _, opt := range opts {
		opt(o)
	}
	dsPath := path.Join(g.path, name)
	f := g.file

	space := message.NewScalarDataspace()
	if dims != nil {
		space = message.NewDataspace(dims)
	}

	var (
		lay      *message.DataLayout
		pipeline *message.FilterPipeline
		err      error
	)
	if o.filtered() && len(dims) > 0 && len(raw) > 0 {
		pipeline = message.NewFilterPipeline()
		if o.shuffle {
			pipeline.AddShuffle(dt.Size)
		}
		if o.compression > 0 {
			pipeline.AddDeflate(o.compression)
		}
		if o.fletcher32 {
			pipeline.AddFletcher32()
		}
		lay, err = layout.WriteSingleChunk(f.writer, f.allocator, dims, dt.Size, raw, pipeline)
	} else {
		lay, err = layout.WriteContiguous(f.writer, f.allocator, raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dsPath, err)
	}

	attrs := make([]*message.Attribute, 0, len(o.attributes))
	for _, def := range o.attributes {
		a, err := newAttribute(def.name, def.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dsPath, err)
		}
		attrs = append(attrs, a)
	}

	msgs := object.DatasetMessages(space, dt, lay, pipeline, attrs)
	addr, _, err := f.writeHeader(msgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dsPath, err)
	}
	g.addLink(message.NewHardLink(name, addr))

	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dsPath, err)
	}
	return newDataset(f, dsPath, h)
}
