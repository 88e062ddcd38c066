package filter

import "github.com/ndming/orca-blender/internal/message"

// Shuffle groups byte i of every element together. Bytes past the last
// whole element are left in place.
type Shuffle struct {
	size int
}

// NewShuffle creates a shuffle filter; client data holds the element size.
func NewShuffle(cd []uint32) *Shuffle {
	size := 1
	if len(cd) > 0 && cd[0] > 0 {
		size = int(cd[0])
	}
	return &Shuffle{size: size}
}

func (f *Shuffle) ID() uint16 { return message.FilterShuffle }

func (f *Shuffle) Encode(in []byte) ([]byte, error) {
	n := len(in) / f.size
	if f.size <= 1 || n <= 1 {
		return in, nil
	}
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for j := 0; j < f.size; j++ {
			out[j*n+i] = in[i*f.size+j]
		}
	}
	copy(out[n*f.size:], in[n*f.size:])
	return out, nil
}

func (f *Shuffle) Decode(in []byte) ([]byte, error) {
	n := len(in) / f.size
	if f.size <= 1 || n <= 1 {
		return in, nil
	}
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for j := 0; j < f.size; j++ {
			out[i*f.size+j] = in[j*n+i]
		}
	}
	copy(out[n*f.size:], in[n*f.size:])
	return out, nil
}
