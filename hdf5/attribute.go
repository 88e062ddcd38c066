package hdf5

import (
	"fmt"

	"github.com/ndming/orca-blender/internal/dtype"
	"github.com/ndming/orca-blender/internal/message"
)

// Attribute represents an HDF5 attribute attached to a dataset or group.
type Attribute struct {
	msg *message.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the attribute value, nil for scalars.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// IsScalar returns true if the attribute is a scalar value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace.IsScalar()
}

// Type returns a short description of the element type, e.g. "int64".
func (a *Attribute) Type() string {
	return dtype.Describe(a.msg.Datatype)
}

// ReadFloat64 reads the attribute as float64 values.
func (a *Attribute) ReadFloat64() ([]float64, error) {
	return dtype.Float64s(a.msg.Datatype, a.msg.Data)
}

// ReadInt64 reads the attribute as int64 values.
func (a *Attribute) ReadInt64() ([]int64, error) {
	return dtype.Int64s(a.msg.Datatype, a.msg.Data)
}

// ReadString reads the attribute as string values.
func (a *Attribute) ReadString() ([]string, error) {
	return dtype.Strings(a.msg.Datatype, a.msg.Data)
}

// ReadScalarInt64 reads a scalar integer attribute.
func (a *Attribute) ReadScalarInt64() (int64, error) {
	vals, err := a.ReadInt64()
	if err != nil {
		return 0, fmt.Errorf("attribute %q: %w", a.Name(), err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %q: no values", a.Name())
	}
	return vals[0], nil
}

// ReadScalarFloat64 reads a scalar numeric attribute.
func (a *Attribute) ReadScalarFloat64() (float64, error) {
	vals, err := a.ReadFloat64()
	if err != nil {
		return 0, fmt.Errorf("attribute %q: %w", a.Name(), err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %q: no values", a.Name())
	}
	return vals[0], nil
}

// ReadScalarString reads a scalar string attribute.
func (a *Attribute) ReadScalarString() (string, error) {
	vals, err := a.ReadString()
	if err != nil {
		return "", fmt.Errorf("attribute %q: %w", a.Name(), err)
	}
	if len(vals) == 0 {
		return "", fmt.Errorf("attribute %q: no values", a.Name())
	}
	return vals[0], nil
}

// Value returns the attribute as int64, float64 or string for scalars, and
// as a slice of those for arrays.
func (a *Attribute) Value() (any, error) {
	var (
		v   any
		err error
	)
	scalar := a.IsScalar()
	switch a.msg.Datatype.Class {
	case message.ClassFixedPoint:
		v, err = unwrap(a.ReadInt64())(scalar)
	case message.ClassFloatPoint:
		v, err = unwrap(a.ReadFloat64())(scalar)
	case message.ClassString:
		v, err = unwrap(a.ReadString())(scalar)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, a.msg.Datatype.Class)
	}
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name(), unsupported(err))
	}
	return v, nil
}

// unwrap returns the single element of a scalar, or the whole slice.
func unwrap[T any](vals []T, err error) func(scalar bool) (any, error) {
	return func(scalar bool) (any, error) {
		if err != nil {
			return nil, err
		}
		if scalar && len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	}
}

func findAttr(attrs []*message.Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return &Attribute{msg: a}
		}
	}
	return nil
}

// newAttribute encodes value as an attribute message.
func newAttribute(name string, value any) (*message.Attribute, error) {
	if name == "" {
		return nil, fmt.Errorf("attribute: %w: empty name", ErrInvalidName)
	}
	dt, dims, data, err := dtype.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, unsupported(err))
	}
	if len(dims) > 1 {
		return nil, fmt.Errorf("attribute %q: %w: %d-dimensional value", name, ErrUnsupported, len(dims))
	}
	space := message.NewScalarDataspace()
	if dims != nil {
		space = message.NewDataspace(dims)
	}
	return message.NewAttribute(name, dt, space, data)
}
