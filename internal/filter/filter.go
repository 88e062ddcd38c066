package filter

import (
	"errors"
	"fmt"

	"github.com/ndming/orca-blender/internal/message"
)

// ErrUnsupported is returned for a mandatory filter this package lacks.
var ErrUnsupported = errors.New("unsupported filter")

// Filter transforms chunk bytes in one direction and back.
type Filter interface {
	ID() uint16
	Encode(in []byte) ([]byte, error)
	Decode(in []byte) ([]byte, error)
}

var registry = map[uint16]func(cd []uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func([]uint32) Filter { return Fletcher32{} },
}

var names = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
}

// Name returns a readable name for a filter ID.
func Name(id uint16) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("filter-%d", id)
}

// New creates the filter described by info. It returns nil, nil for an
// unknown optional filter.
func New(info message.FilterInfo) (Filter, error) {
	ctor, ok := registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s (ID %d)", ErrUnsupported, Name(info.ID), info.ID)
	}
	return ctor(info.ClientData), nil
}

// Pipeline is an ordered list of filters.
type Pipeline struct {
	filters []Filter
	index   []int // position of each filter in the message, for mask bits
}

// NewPipeline builds a pipeline from a message; nil yields an empty one.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for i, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		p.filters = append(p.filters, f)
		p.index = append(p.index, i)
	}
	return p, nil
}

// Len returns the number of active filters.
func (p *Pipeline) Len() int { return len(p.filters) }

// Encode runs every filter in order.
func (p *Pipeline) Encode(data []byte) ([]byte, error) {
	var err error
	for _, f := range p.filters {
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("%s encode: %w", Name(f.ID()), err)
		}
	}
	return data, nil
}

// Decode runs the filters in reverse order. Bit i of mask skips the filter
// at position i of the pipeline message.
func (p *Pipeline) Decode(data []byte, mask uint32) ([]byte, error) {
	var err error
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(p.index[i])) != 0 {
			continue
		}
		f := p.filters[i]
		if data, err = f.Decode(data); err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(f.ID()), err)
		}
	}
	return data, nil
}
