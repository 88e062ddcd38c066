package dtype

import (
	"fmt"
	"math"

	"github.com/ndming/orca-blender/internal/message"
)

func checkLen(dt *message.Datatype, data []byte) (int, error) {
	if dt.Size == 0 {
		return 0, fmt.Errorf("%w: zero-size elements", ErrUnsupported)
	}
	if len(data)%int(dt.Size) != 0 {
		return 0, fmt.Errorf("%d bytes is not a multiple of element size %d", len(data), dt.Size)
	}
	return len(data) / int(dt.Size), nil
}

// Float64s widens integer or float elements to float64.
func Float64s(dt *message.Datatype, data []byte) ([]float64, error) {
	n, err := checkLen(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	size := int(dt.Size)
	for i := range out {
		v, err := number(dt, data[i*size:(i+1)*size])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Float32s converts integer or float elements to float32.
func Float32s(dt *message.Datatype, data []byte) ([]float32, error) {
	if dt.Class == message.ClassFloatPoint && dt.Size == 4 {
		n, err := checkLen(dt, data)
		if err != nil {
			return nil, err
		}
		order := Order(dt)
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(order.Uint32(data[4*i:]))
		}
		return out, nil
	}
	wide, err := Float64s(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(wide))
	for i, v := range wide {
		out[i] = float32(v)
	}
	return out, nil
}

// Int64s converts integer elements to int64. Floats are rejected.
func Int64s(dt *message.Datatype, data []byte) ([]int64, error) {
	if dt.Class != message.ClassFixedPoint {
		return nil, fmt.Errorf("%w: %s is not an integer type", ErrUnsupported, Describe(dt))
	}
	n, err := checkLen(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	size := int(dt.Size)
	for i := range out {
		out[i] = integer(dt, data[i*size:(i+1)*size])
	}
	return out, nil
}

// Strings decodes fixed-length strings, trimming NUL and space padding.
func Strings(dt *message.Datatype, data []byte) ([]string, error) {
	if dt.Class != message.ClassString {
		return nil, fmt.Errorf("%w: %s is not a string type", ErrUnsupported, Describe(dt))
	}
	n, err := checkLen(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	size := int(dt.Size)
	for i := range out {
		b := data[i*size : (i+1)*size]
		end := len(b)
		for j, c := range b {
			if c == 0 {
				end = j
				break
			}
		}
		if dt.Padding == message.PadSpacePad {
			for end > 0 && b[end-1] == ' ' {
				end--
			}
		}
		out[i] = string(b[:end])
	}
	return out, nil
}

func number(dt *message.Datatype, b []byte) (float64, error) {
	switch dt.Class {
	case message.ClassFixedPoint:
		if dt.Signed {
			return float64(integer(dt, b)), nil
		}
		return float64(unsigned(dt, b)), nil
	case message.ClassFloatPoint:
		order := Order(dt)
		switch dt.Size {
		case 4:
			return float64(math.Float32frombits(order.Uint32(b))), nil
		case 8:
			return math.Float64frombits(order.Uint64(b)), nil
		}
	}
	return 0, fmt.Errorf("%w: %s is not numeric", ErrUnsupported, Describe(dt))
}

func unsigned(dt *message.Datatype, b []byte) uint64 {
	order := Order(dt)
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	return 0
}

func integer(dt *message.Datatype, b []byte) int64 {
	u := unsigned(dt, b)
	if !dt.Signed {
		return int64(u)
	}
	shift := 64 - 8*uint(len(b))
	return int64(u<<shift) >> shift
}
