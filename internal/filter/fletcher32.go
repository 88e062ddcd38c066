package filter

import (
	"encoding/binary"
	"errors"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/message"
)

// ErrChecksum is returned when a chunk fails its Fletcher-32 check.
var ErrChecksum = errors.New("fletcher32 checksum mismatch")

// Fletcher32 appends a 4-byte little-endian checksum on encode and checks and
// strips it on decode.
type Fletcher32 struct{}

func (Fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (Fletcher32) Encode(in []byte) ([]byte, error) {
	out := make([]byte, len(in)+4)
	copy(out, in)
	binary.LittleEndian.PutUint32(out[len(in):], binpkg.Fletcher32(in))
	return out, nil
}

func (Fletcher32) Decode(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, ErrChecksum
	}
	data := in[:len(in)-4]
	stored := binary.LittleEndian.Uint32(in[len(data):])
	sum := binpkg.Fletcher32(data)
	// Files from HDF5 before 1.6.3 stored each 16-bit half byte-swapped.
	swapped := (sum&0xFF00FF00)>>8 | (sum&0x00FF00FF)<<8
	if stored != sum && stored != swapped {
		return nil, ErrChecksum
	}
	return data, nil
}
