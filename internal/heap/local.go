package heap

import (
	"bytes"
	"errors"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
)

var signature = []byte("HEAP")

// ErrOffset is returned for a name offset outside the data segment.
var ErrOffset = errors.New("offset outside local heap")

// Local is a local heap with its data segment loaded.
type Local struct {
	Address     uint64
	DataAddress uint64
	FreeOffset  uint64
	data        []byte
}

// ReadLocal reads the local heap at address:
//
//	4 "HEAP", 1 version (0), 3 reserved, L data segment size,
//	L free list head offset, O data segment address
func ReadLocal(r *binpkg.Reader, address uint64) (*Local, error) {
	hr := r.At(int64(address))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", address, err)
	}
	if !bytes.Equal(head[:4], signature) {
		return nil, fmt.Errorf("local heap at %d: bad signature %q", address, head[:4])
	}
	if head[4] != 0 {
		return nil, fmt.Errorf("local heap at %d: unsupported version %d", address, head[4])
	}

	h := &Local{Address: address}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(size)); err != nil {
		return nil, fmt.Errorf("local heap at %d: data segment: %w", address, err)
	}
	return h, nil
}

// String returns the NUL-terminated string starting at offset.
func (h *Local) String(offset uint64) (string, error) {
	if offset >= uint64(len(h.data)) {
		return "", fmt.Errorf("%w: %d of %d", ErrOffset, offset, len(h.data))
	}
	b := h.data[offset:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// Size returns the length of the data segment.
func (h *Local) Size() int { return len(h.data) }
