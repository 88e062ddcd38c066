package hdf5

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type attrDef struct {
	name  string
	value any
}

type datasetOptions struct {
	compression int
	shuffle     bool
	fletcher32  bool
	attributes  []attrDef
}

// filtered reports whether the dataset needs a filter pipeline and therefore
// a chunked layout.
func (o *datasetOptions) filtered() bool {
	return o.compression > 0 || o.shuffle || o.fletcher32
}

// WithCompression sets the deflate level (1-9, 0 = none). Compressed
// datasets are stored as a single chunk covering the whole dataset.
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level >= 0 && level <= 9 {
			o.compression = level
		}
	}
}

// WithShuffle enables the byte shuffle filter ahead of compression.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 stores a Fletcher-32 checksum with the data.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}

// WithAttribute adds an attribute to the dataset. The value can be a scalar
// or slice of any integer type, float32, float64 or string.
func WithAttribute(name string, value any) DatasetOption {
	return func(o *datasetOptions) {
		o.attributes = append(o.attributes, attrDef{name: name, value: value})
	}
}
