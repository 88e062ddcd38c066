// Package exrtest writes small scanline OpenEXR files for tests.
package exrtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/klauspost/compress/zlib"
	"github.com/x448/float16"

	"github.com/ndming/orca-blender/exr"
)

// Channel is one plane to write. Values are row-major, width*height long.
type Channel struct {
	Name   string
	Type   exr.PixelType
	Values []float32
}

// Image describes the file to write.
type Image struct {
	Width, Height int
	Compression   exr.Compression // NONE, RLE, ZIPS or ZIP
	Channels      []Channel
	YMin          int32 // data window origin
}

// Encode writes img to w.
func Encode(w io.Writer, img Image) error {
	chans := append([]Channel(nil), img.Channels...)
	sort.Slice(chans, func(i, j int) bool { return chans[i].Name < chans[j].Name })
	for _, c := range chans {
		if len(c.Values) != img.Width*img.Height {
			return fmt.Errorf("channel %s has %d values, want %d", c.Name, len(c.Values), img.Width*img.Height)
		}
	}

	var hdr bytes.Buffer
	hdr.Write(exr.Magic)
	put32(&hdr, 2)

	var chlist bytes.Buffer
	for _, c := range chans {
		chlist.WriteString(c.Name)
		chlist.WriteByte(0)
		put32(&chlist, uint32(c.Type))
		chlist.Write([]byte{0, 0, 0, 0})
		put32(&chlist, 1)
		put32(&chlist, 1)
	}
	chlist.WriteByte(0)
	attr(&hdr, "channels", "chlist", chlist.Bytes())
	attr(&hdr, "compression", "compression", []byte{byte(img.Compression)})

	var box bytes.Buffer
	for _, v := range []int32{0, img.YMin, int32(img.Width - 1), img.YMin + int32(img.Height-1)} {
		put32(&box, uint32(v))
	}
	attr(&hdr, "dataWindow", "box2i", box.Bytes())
	attr(&hdr, "displayWindow", "box2i", box.Bytes())
	attr(&hdr, "lineOrder", "lineOrder", []byte{0})
	aspect := make([]byte, 4)
	binary.LittleEndian.PutUint32(aspect, math.Float32bits(1))
	attr(&hdr, "pixelAspectRatio", "float", aspect)
	hdr.WriteByte(0)

	lines := img.Compression.LinesPerBlock()
	blocks := (img.Height + lines - 1) / lines
	var body bytes.Buffer
	offsets := make([]uint64, blocks)
	base := uint64(hdr.Len() + 8*blocks)
	for b := 0; b < blocks; b++ {
		y0 := b * lines
		n := min(lines, img.Height-y0)
		raw := rows(img.Width, chans, y0, n)
		packed, err := compress(img.Compression, raw)
		if err != nil {
			return err
		}
		if len(packed) >= len(raw) {
			packed = raw
		}
		offsets[b] = base + uint64(body.Len())
		put32(&body, uint32(img.YMin+int32(y0)))
		put32(&body, uint32(len(packed)))
		body.Write(packed)
	}

	for _, off := range offsets {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], off)
		hdr.Write(b[:])
	}
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// WriteFile encodes img to path.
func WriteFile(path string, img Image) error {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Ramp returns width*height values starting at start and growing by step.
func Ramp(width, height int, start, step float32) []float32 {
	out := make([]float32, width*height)
	for i := range out {
		out[i] = start + float32(i)*step
	}
	return out
}

func put32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func attr(b *bytes.Buffer, name, typ string, value []byte) {
	b.WriteString(name)
	b.WriteByte(0)
	b.WriteString(typ)
	b.WriteByte(0)
	put32(b, uint32(len(value)))
	b.Write(value)
}

func rows(width int, chans []Channel, y0, n int) []byte {
	var out bytes.Buffer
	for y := y0; y < y0+n; y++ {
		for _, c := range chans {
			for _, v := range c.Values[y*width : (y+1)*width] {
				switch c.Type {
				case exr.Half:
					var tmp [2]byte
					binary.LittleEndian.PutUint16(tmp[:], float16.Fromfloat32(v).Bits())
					out.Write(tmp[:])
				case exr.Uint:
					put32(&out, uint32(v))
				default:
					put32(&out, math.Float32bits(v))
				}
			}
		}
	}
	return out.Bytes()
}

func compress(c exr.Compression, raw []byte) ([]byte, error) {
	switch c {
	case exr.NoCompression:
		return raw, nil
	case exr.RLE:
		return rle(predict(interleave(raw))), nil
	case exr.ZIPS, exr.ZIP:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(predict(interleave(raw))); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("exrtest: %s compression is not implemented", c)
}

func interleave(raw []byte) []byte {
	out := make([]byte, len(raw))
	half := (len(raw) + 1) / 2
	for i, b := range raw {
		if i%2 == 0 {
			out[i/2] = b
		} else {
			out[half+i/2] = b
		}
	}
	return out
}

func predict(b []byte) []byte {
	out := make([]byte, len(b))
	var prev byte
	for i, v := range b {
		if i == 0 {
			out[i] = v
		} else {
			out[i] = v - prev + 128
		}
		prev = v
	}
	return out
}

// rle emits repeat runs for three or more equal bytes and literal runs
// otherwise.
func rle(b []byte) []byte {
	var out []byte
	for i := 0; i < len(b); {
		run := 1
		for i+run < len(b) && run < 128 && b[i+run] == b[i] {
			run++
		}
		if run >= 3 {
			out = append(out, byte(run-1), b[i])
			i += run
			continue
		}
		start := i
		for i < len(b) && i-start < 127 {
			if i+2 < len(b) && b[i] == b[i+1] && b[i] == b[i+2] {
				break
			}
			i++
		}
		n := i - start
		out = append(out, byte(int8(-n)))
		out = append(out, b[start:i]...)
	}
	return out
}
