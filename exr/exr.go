// Package exr reads scanline OpenEXR images, including the multi-layer
// files Blender writes, into float32 channel planes.
//
// Supported compression: NONE, RLE, ZIPS and ZIP. Tiled, deep and
// multi-part files and the lossy or wavelet codecs are rejected with
// ErrUnsupported.
package exr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

var (
	ErrNotEXR      = errors.New("not an OpenEXR file")
	ErrUnsupported = errors.New("unsupported OpenEXR feature")
	ErrNoChannel   = errors.New("channel not found")
	ErrCorrupt     = errors.New("corrupt OpenEXR data")
)

// Magic is the OpenEXR magic number, little-endian 20000630.
var Magic = []byte{0x76, 0x2f, 0x31, 0x01}

// Version field flags.
const (
	flagTiled     = 0x200
	flagLongNames = 0x400
	flagDeep      = 0x800
	flagMultipart = 0x1000
)

// PixelType is the sample type of a channel.
type PixelType int32

const (
	Uint  PixelType = 0
	Half  PixelType = 1
	Float PixelType = 2
)

func (p PixelType) String() string {
	switch p {
	case Uint:
		return "UINT"
	case Half:
		return "HALF"
	case Float:
		return "FLOAT"
	}
	return fmt.Sprintf("PixelType(%d)", int32(p))
}

// Size returns the bytes per sample.
func (p PixelType) Size() int {
	if p == Half {
		return 2
	}
	return 4
}

// Compression is the codec of the scanline blocks.
type Compression uint8

const (
	NoCompression Compression = iota
	RLE
	ZIPS
	ZIP
	PIZ
	PXR24
	B44
	B44A
	DWAA
	DWAB
)

var compressionNames = [...]string{"NONE", "RLE", "ZIPS", "ZIP", "PIZ", "PXR24", "B44", "B44A", "DWAA", "DWAB"}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// LinesPerBlock returns the number of scanlines stored in one block.
func (c Compression) LinesPerBlock() int {
	switch c {
	case ZIP, PXR24:
		return 16
	case PIZ, B44, B44A, DWAA:
		return 32
	case DWAB:
		return 256
	}
	return 1
}

func (c Compression) supported() bool {
	return c <= ZIP
}

// Channel describes one channel of the image.
type Channel struct {
	Name      string
	Type      PixelType
	Linear    bool
	XSampling int32
	YSampling int32
}

// Box is an inclusive integer pixel rectangle.
type Box struct {
	XMin, YMin, XMax, YMax int32
}

func (b Box) Width() int  { return int(b.XMax) - int(b.XMin) + 1 }
func (b Box) Height() int { return int(b.YMax) - int(b.YMin) + 1 }

// Image is a decoded scanline image.
type Image struct {
	channels    []Channel
	compression Compression
	dataWindow  Box
	lineOrder   uint8
	attributes  map[string]string // type name of every header attribute
	planes      map[string][]float32
}

// Open reads and decodes the file at path.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode reads a complete image from r.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 || !bytes.Equal(data[:4], Magic) {
		return nil, ErrNotEXR
	}

	d := &decoder{buf: data, pos: 4}
	version := d.u32()
	if version&0xFF != 2 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, version&0xFF)
	}
	switch {
	case version&flagMultipart != 0:
		return nil, fmt.Errorf("%w: multi-part file", ErrUnsupported)
	case version&flagDeep != 0:
		return nil, fmt.Errorf("%w: deep data", ErrUnsupported)
	case version&flagTiled != 0:
		return nil, fmt.Errorf("%w: tiled image", ErrUnsupported)
	}

	img := &Image{attributes: make(map[string]string)}
	if err := d.header(img); err != nil {
		return nil, err
	}
	if err := d.pixels(img); err != nil {
		return nil, err
	}
	return img, nil
}

// Width returns the data window width in pixels.
func (img *Image) Width() int { return img.dataWindow.Width() }

// Height returns the data window height in pixels.
func (img *Image) Height() int { return img.dataWindow.Height() }

// Dimensions returns width and height.
func (img *Image) Dimensions() (int, int) { return img.Width(), img.Height() }

// DataWindow returns the pixel rectangle the file stores.
func (img *Image) DataWindow() Box { return img.dataWindow }

// Compression returns the codec used by the file.
func (img *Image) Compression() Compression { return img.compression }

// Channels returns the channel list sorted by name.
func (img *Image) Channels() []Channel {
	out := make([]Channel, len(img.channels))
	copy(out, img.channels)
	return out
}

// ChannelNames returns the channel names sorted.
func (img *Image) ChannelNames() []string {
	names := make([]string, len(img.channels))
	for i, c := range img.channels {
		names[i] = c.Name
	}
	return names
}

// Attribute returns the type name of a header attribute and whether it is
// present.
func (img *Image) Attribute(name string) (string, bool) {
	t, ok := img.attributes[name]
	return t, ok
}

// Channel returns the row-major plane of the named channel. The slice is
// shared with the image.
func (img *Image) Channel(name string) ([]float32, error) {
	p, ok := img.planes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChannel, name)
	}
	return p, nil
}

// Layer stacks the planes <prefix>.<c> for each c, channel-major, into a
// new slice of len(channels)*width*height values.
func (img *Image) Layer(prefix string, channels ...string) ([]float32, error) {
	n := img.Width() * img.Height()
	out := make([]float32, 0, n*len(channels))
	for _, c := range channels {
		name := c
		if prefix != "" {
			name = prefix + "." + c
		}
		p, err := img.Channel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	return out, nil
}

// Layers returns the distinct layer prefixes, i.e. channel names with their
// last dot-separated component removed.
func (img *Image) Layers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range img.channels {
		prefix := ""
		if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
			prefix = c.Name[:i]
		}
		if !seen[prefix] {
			seen[prefix] = true
			out = append(out, prefix)
		}
	}
	sort.Strings(out)
	return out
}
