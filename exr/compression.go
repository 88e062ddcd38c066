package exr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// decompress returns exactly size bytes of interleaved scanline data. A
// block whose packed size equals size was stored uncompressed.
func decompress(c Compression, packed []byte, size int) ([]byte, error) {
	if c == NoCompression || len(packed) == size {
		if len(packed) != size {
			return nil, fmt.Errorf("%w: block is %d bytes, want %d", ErrCorrupt, len(packed), size)
		}
		return packed, nil
	}

	var (
		tmp []byte
		err error
	)
	switch c {
	case RLE:
		tmp, err = rleDecode(packed, size)
	case ZIPS, ZIP:
		tmp, err = inflate(packed, size)
	default:
		return nil, fmt.Errorf("%w: %s compression", ErrUnsupported, c)
	}
	if err != nil {
		return nil, err
	}
	undoPredictor(tmp)
	return deinterleave(tmp), nil
}

func inflate(packed []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: inflating block: %v", ErrCorrupt, err)
	}
	return out, nil
}

// rleDecode expands runs: a negative count byte -n is followed by n literal
// bytes, a count n >= 0 by one byte repeated n+1 times.
func rleDecode(packed []byte, size int) ([]byte, error) {
	out := make([]byte, 0, size)
	for i := 0; i < len(packed); {
		count := int(int8(packed[i]))
		i++
		if count < 0 {
			n := -count
			if i+n > len(packed) {
				return nil, fmt.Errorf("%w: RLE literal overruns block", ErrCorrupt)
			}
			out = append(out, packed[i:i+n]...)
			i += n
			continue
		}
		if i >= len(packed) {
			return nil, fmt.Errorf("%w: RLE run overruns block", ErrCorrupt)
		}
		for k := 0; k <= count; k++ {
			out = append(out, packed[i])
		}
		i++
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: RLE block expands to %d bytes, want %d", ErrCorrupt, len(out), size)
	}
	return out, nil
}

// undoPredictor reverses the byte delta encoding t[i] = t[i] - t[i-1] + 128.
func undoPredictor(b []byte) {
	for i := 1; i < len(b); i++ {
		b[i] = b[i-1] + b[i] - 128
	}
}

// deinterleave merges the two halves of b: the first holds the even bytes
// of the original, the second the odd bytes.
func deinterleave(b []byte) []byte {
	out := make([]byte, len(b))
	half := (len(b) + 1) / 2
	for i := range out {
		if i%2 == 0 {
			out[i] = b[i/2]
		} else {
			out[i] = b[half+i/2]
		}
	}
	return out
}
