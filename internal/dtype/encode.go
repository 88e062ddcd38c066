package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/ndming/orca-blender/internal/message"
)

// Encode packs v, a scalar or a rectangular (nested) slice of one supported
// element type. dims is nil for scalars.
func Encode(v any) (*message.Datatype, []uint64, []byte, error) {
	val := reflect.ValueOf(v)
	if !val.IsValid() {
		return nil, nil, nil, fmt.Errorf("%w: nil value", ErrUnsupported)
	}

	dims, elemKind, err := shape(val)
	if err != nil {
		return nil, nil, nil, err
	}
	var elems []reflect.Value
	flatten(val, &elems)

	if elemKind == reflect.String {
		width := 1
		for _, e := range elems {
			width = max(width, len(e.String())+1)
		}
		dt := message.NewStringDatatype(uint32(width), message.PadNullTerm, message.CharsetUTF8)
		data := make([]byte, width*len(elems))
		for i, e := range elems {
			copy(data[i*width:], e.String())
		}
		return dt, dims, data, nil
	}

	dt, err := ForKind(elemKind)
	if err != nil {
		return nil, nil, nil, err
	}
	size := int(dt.Size)
	data := make([]byte, size*len(elems))
	for i, e := range elems {
		putElem(data[i*size:], size, e)
	}
	return dt, dims, data, nil
}

// shape walks the first element at every level to find the dimensions and
// the element kind, then checks the value is rectangular.
func shape(v reflect.Value) ([]uint64, reflect.Kind, error) {
	var dims []uint64
	t := v.Type()
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	cur := v
	for cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array {
		dims = append(dims, uint64(cur.Len()))
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}
	if len(dims) > 0 && !rectangular(v, dims) {
		return nil, 0, fmt.Errorf("%w: ragged nested slice", ErrUnsupported)
	}
	return dims, t.Kind(), nil
}

func rectangular(v reflect.Value, dims []uint64) bool {
	if len(dims) == 0 {
		return true
	}
	if uint64(v.Len()) != dims[0] {
		return false
	}
	if len(dims) == 1 {
		return true
	}
	for i := 0; i < v.Len(); i++ {
		if !rectangular(v.Index(i), dims[1:]) {
			return false
		}
	}
	return true
}

func flatten(v reflect.Value, out *[]reflect.Value) {
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			flatten(v.Index(i), out)
		}
		return
	}
	*out = append(*out, v)
}

func putElem(b []byte, size int, e reflect.Value) {
	var bits uint64
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits = uint64(e.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits = e.Uint()
	case reflect.Bool:
		if e.Bool() {
			bits = 1
		}
	case reflect.Float32:
		bits = uint64(math.Float32bits(float32(e.Float())))
	case reflect.Float64:
		bits = math.Float64bits(e.Float())
	}
	switch size {
	case 1:
		b[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(bits))
	case 8:
		binary.LittleEndian.PutUint64(b, bits)
	}
}

// EncodeFloat32 packs float32 values without reflection.
func EncodeFloat32(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}
