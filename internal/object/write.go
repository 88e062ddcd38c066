package object

import (
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/message"
)

// Size returns the encoded size of a version 2 header holding msgs.
func Size(w *binpkg.Writer, msgs []message.Serializable) int {
	body := bodySize(w, msgs)
	return 6 + chunkFieldSize(body) + body + 4
}

// Write encodes msgs as a single-chunk version 2 object header at the
// writer position.
func Write(w *binpkg.Writer, msgs []message.Serializable) error {
	body := bodySize(w, msgs)
	field := chunkFieldSize(body)

	bw, buf := binpkg.NewBufferWriter(w.Config())
	if err := bw.WriteBytes(signatureV2); err != nil {
		return err
	}
	// Flags carry only the width of the chunk size field.
	if err := bw.WriteBytes([]byte{2, uint8(chunkFieldFlag(field))}); err != nil {
		return err
	}
	if err := bw.WriteUintN(uint64(body), field); err != nil {
		return err
	}
	for _, m := range msgs {
		size := m.SerializedSize(bw)
		if size > 0xFFFF {
			return fmt.Errorf("message %#04x is %d bytes, larger than a header message can hold", uint16(m.Type()), size)
		}
		if err := bw.WriteUint8(uint8(m.Type())); err != nil {
			return err
		}
		if err := bw.WriteUint16(uint16(size)); err != nil {
			return err
		}
		if err := bw.WriteUint8(0); err != nil {
			return err
		}
		start := bw.Pos()
		if err := m.Serialize(bw); err != nil {
			return fmt.Errorf("message %#04x: %w", uint16(m.Type()), err)
		}
		if n := int(bw.Pos() - start); n != size {
			return fmt.Errorf("message %#04x: wrote %d bytes, expected %d", uint16(m.Type()), n, size)
		}
	}
	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return err
	}
	return w.WriteBytes(buf.Bytes())
}

func bodySize(w *binpkg.Writer, msgs []message.Serializable) int {
	n := 0
	for _, m := range msgs {
		n += 4 + m.SerializedSize(w)
	}
	return n
}

func chunkFieldSize(body int) int {
	switch {
	case body <= 0xFF:
		return 1
	case body <= 0xFFFF:
		return 2
	case body <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

func chunkFieldFlag(field int) int {
	switch field {
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	}
	return 0
}

// GroupMessages returns the messages of a group header with compact link
// storage.
func GroupMessages(links []*message.Link, attrs []*message.Attribute) []message.Serializable {
	msgs := make([]message.Serializable, 0, 2+len(links)+len(attrs))
	msgs = append(msgs, &message.LinkInfo{}, &message.GroupInfo{})
	for _, l := range links {
		msgs = append(msgs, l)
	}
	for _, a := range attrs {
		msgs = append(msgs, a)
	}
	return msgs
}

// DatasetMessages returns the messages of a dataset header. pipeline may be
// nil.
func DatasetMessages(
	space *message.Dataspace,
	dtype *message.Datatype,
	layout *message.DataLayout,
	pipeline *message.FilterPipeline,
	attrs []*message.Attribute,
) []message.Serializable {
	alloc := message.AllocLate
	if layout.IsChunked() {
		alloc = message.AllocIncremental
	}
	msgs := []message.Serializable{space, dtype, &message.FillValue{AllocTime: alloc}, layout}
	if pipeline != nil && len(pipeline.Filters) > 0 {
		msgs = append(msgs, pipeline)
	}
	for _, a := range attrs {
		msgs = append(msgs, a)
	}
	return msgs
}
