package exr

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/x448/float16"
)

// decoder walks the in-memory file. Reads past the end set err and return
// zero values, so callers check err once per structure.
type decoder struct {
	buf []byte
	pos int
	err error
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.pos+n > len(d.buf) {
		d.err = fmt.Errorf("%w: unexpected end of file at offset %d", ErrCorrupt, d.pos)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.bytes(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) u64() uint64 {
	if b := d.bytes(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// cstring reads a NUL-terminated string of at most 255 bytes.
func (d *decoder) cstring() string {
	if d.err != nil {
		return ""
	}
	for i := d.pos; i < len(d.buf) && i-d.pos < 256; i++ {
		if d.buf[i] == 0 {
			s := string(d.buf[d.pos:i])
			d.pos = i + 1
			return s
		}
	}
	d.err = fmt.Errorf("%w: unterminated name at offset %d", ErrCorrupt, d.pos)
	return ""
}

// header parses attributes up to the terminating empty name:
//
//	name\0 type\0 int32 size, value
func (d *decoder) header(img *Image) error {
	var haveChannels, haveCompression, haveWindow bool
	for {
		name := d.cstring()
		if d.err != nil {
			return d.err
		}
		if name == "" {
			break
		}
		typ := d.cstring()
		size := int(d.i32())
		value := d.bytes(size)
		if d.err != nil {
			return fmt.Errorf("attribute %q: %w", name, d.err)
		}
		img.attributes[name] = typ

		var err error
		switch {
		case name == "channels" && typ == "chlist":
			img.channels, err = parseChannels(value)
			haveChannels = true
		case name == "compression" && typ == "compression" && size == 1:
			img.compression = Compression(value[0])
			haveCompression = true
		case name == "dataWindow" && typ == "box2i" && size == 16:
			img.dataWindow = Box{
				XMin: int32(binary.LittleEndian.Uint32(value[0:])),
				YMin: int32(binary.LittleEndian.Uint32(value[4:])),
				XMax: int32(binary.LittleEndian.Uint32(value[8:])),
				YMax: int32(binary.LittleEndian.Uint32(value[12:])),
			}
			haveWindow = true
		case name == "lineOrder" && typ == "lineOrder" && size == 1:
			img.lineOrder = value[0]
		}
		if err != nil {
			return err
		}
	}

	switch {
	case !haveChannels:
		return fmt.Errorf("%w: missing channels attribute", ErrCorrupt)
	case !haveCompression:
		return fmt.Errorf("%w: missing compression attribute", ErrCorrupt)
	case !haveWindow:
		return fmt.Errorf("%w: missing dataWindow attribute", ErrCorrupt)
	case img.Width() <= 0 || img.Height() <= 0:
		return fmt.Errorf("%w: empty data window %+v", ErrCorrupt, img.dataWindow)
	case !img.compression.supported():
		return fmt.Errorf("%w: %s compression", ErrUnsupported, img.compression)
	}
	return nil
}

// parseChannels decodes a chlist:
//
//	name\0, int32 pixel type, uint8 pLinear, 3 reserved,
//	int32 xSampling, int32 ySampling
//
// repeated, then a single NUL.
func parseChannels(b []byte) ([]Channel, error) {
	d := &decoder{buf: b}
	var out []Channel
	for {
		name := d.cstring()
		if d.err != nil {
			return nil, fmt.Errorf("channel list: %w", d.err)
		}
		if name == "" {
			break
		}
		c := Channel{Name: name, Type: PixelType(d.i32())}
		c.Linear = d.u8() != 0
		d.bytes(3)
		c.XSampling = d.i32()
		c.YSampling = d.i32()
		if d.err != nil {
			return nil, fmt.Errorf("channel %q: %w", name, d.err)
		}
		if c.Type < Uint || c.Type > Float {
			return nil, fmt.Errorf("channel %q: %w: %s", name, ErrCorrupt, c.Type)
		}
		if c.XSampling != 1 || c.YSampling != 1 {
			return nil, fmt.Errorf("channel %q: %w: subsampled channel", name, ErrUnsupported)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// pixels reads the offset table and every scanline block. Blocks are
// located through the offset table, so line order does not matter.
func (d *decoder) pixels(img *Image) error {
	width, height := img.Width(), img.Height()
	lines := img.compression.LinesPerBlock()
	blocks := (height + lines - 1) / lines

	offsets := make([]uint64, blocks)
	for i := range offsets {
		offsets[i] = d.u64()
	}
	if d.err != nil {
		return fmt.Errorf("offset table: %w", d.err)
	}

	rowBytes := 0
	for _, c := range img.channels {
		rowBytes += width * c.Type.Size()
	}

	img.planes = make(map[string][]float32, len(img.channels))
	for _, c := range img.channels {
		img.planes[c.Name] = make([]float32, width*height)
	}

	for i, off := range offsets {
		if off > uint64(len(d.buf)) {
			return fmt.Errorf("%w: block %d offset %d past end of file", ErrCorrupt, i, off)
		}
		bd := &decoder{buf: d.buf, pos: int(off)}
		y := int(bd.i32()) - int(img.dataWindow.YMin)
		size := int(bd.i32())
		packed := bd.bytes(size)
		if bd.err != nil {
			return fmt.Errorf("block %d: %w", i, bd.err)
		}
		if y < 0 || y >= height || y%lines != 0 {
			return fmt.Errorf("%w: block %d starts at line %d", ErrCorrupt, i, y)
		}

		n := min(lines, height-y)
		raw, err := decompress(img.compression, packed, n*rowBytes)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		scatter(img, raw, y, n)
	}
	return nil
}

// scatter copies the interleaved rows of one block into the planes. Within
// a row the channels follow each other in name order.
func scatter(img *Image, raw []byte, y0, rows int) {
	width := img.Width()
	pos := 0
	for r := 0; r < rows; r++ {
		row := (y0 + r) * width
		for _, c := range img.channels {
			plane := img.planes[c.Name][row : row+width]
			switch c.Type {
			case Half:
				for x := range plane {
					plane[x] = float16.Frombits(binary.LittleEndian.Uint16(raw[pos:])).Float32()
					pos += 2
				}
			case Float:
				for x := range plane {
					plane[x] = math.Float32frombits(binary.LittleEndian.Uint32(raw[pos:]))
					pos += 4
				}
			case Uint:
				for x := range plane {
					plane[x] = float32(binary.LittleEndian.Uint32(raw[pos:]))
					pos += 4
				}
			}
		}
	}
}
