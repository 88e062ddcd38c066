package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/ndming/orca-blender/internal/message"
)

// ErrUnsupported is returned for Go or HDF5 types outside the table above.
var ErrUnsupported = errors.New("unsupported datatype")

// ForKind returns the datatype for a scalar Go kind. Strings need their
// length and are handled by [Encode].
func ForKind(k reflect.Kind) (*message.Datatype, error) {
	switch k {
	case reflect.Int8:
		return message.NewFixedPointDatatype(1, true), nil
	case reflect.Int16:
		return message.NewFixedPointDatatype(2, true), nil
	case reflect.Int32:
		return message.NewFixedPointDatatype(4, true), nil
	case reflect.Int64, reflect.Int:
		return message.NewFixedPointDatatype(8, true), nil
	case reflect.Uint8, reflect.Bool:
		return message.NewFixedPointDatatype(1, false), nil
	case reflect.Uint16:
		return message.NewFixedPointDatatype(2, false), nil
	case reflect.Uint32:
		return message.NewFixedPointDatatype(4, false), nil
	case reflect.Uint64, reflect.Uint:
		return message.NewFixedPointDatatype(8, false), nil
	case reflect.Float32:
		return message.NewFloatDatatype(4), nil
	case reflect.Float64:
		return message.NewFloatDatatype(8), nil
	}
	return nil, fmt.Errorf("%w: Go kind %s", ErrUnsupported, k)
}

// Order returns the byte order of a numeric datatype.
func Order(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Describe returns a short name such as "float32", "int64" or "string[12]".
func Describe(dt *message.Datatype) string {
	switch dt.Class {
	case message.ClassFixedPoint:
		if dt.Signed {
			return fmt.Sprintf("int%d", dt.Size*8)
		}
		return fmt.Sprintf("uint%d", dt.Size*8)
	case message.ClassFloatPoint:
		return fmt.Sprintf("float%d", dt.Size*8)
	case message.ClassString:
		return fmt.Sprintf("string[%d]", dt.Size)
	}
	return fmt.Sprintf("%s(%d bytes)", dt.Class, dt.Size)
}
