package object

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/message"
)

var (
	signatureV2           = []byte("OHDR")
	signatureContinuation = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// maxContinuations bounds the number of continuation blocks followed for one
// header, so a corrupt file cannot loop forever.
const maxContinuations = 1024

// Header is a parsed object header.
type Header struct {
	Version  uint8
	Address  uint64
	Flags    uint8 // version 2 only
	RefCount uint32
	Messages []message.Message
}

// Read parses the object header at address.
func Read(r *binpkg.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}

	h := &Header{Address: address}
	switch {
	case string(peek) == string(signatureV2):
		err = h.readV2(hr)
	case peek[0] == 1:
		err = h.readV1(hr)
	default:
		return nil, fmt.Errorf("%w at %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}
	return h, nil
}

// Message returns the first message of type typ, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

func first[T message.Message](h *Header) T {
	var zero T
	for _, m := range h.Messages {
		if v, ok := m.(T); ok {
			return v
		}
	}
	return zero
}

func all[T message.Message](h *Header) []T {
	var out []T
	for _, m := range h.Messages {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace           { return first[*message.Dataspace](h) }
func (h *Header) Datatype() *message.Datatype             { return first[*message.Datatype](h) }
func (h *Header) DataLayout() *message.DataLayout         { return first[*message.DataLayout](h) }
func (h *Header) FilterPipeline() *message.FilterPipeline { return first[*message.FilterPipeline](h) }
func (h *Header) LinkInfo() *message.LinkInfo             { return first[*message.LinkInfo](h) }
func (h *Header) SymbolTable() *message.SymbolTable       { return first[*message.SymbolTable](h) }
func (h *Header) Links() []*message.Link                  { return all[*message.Link](h) }
func (h *Header) Attributes() []*message.Attribute        { return all[*message.Attribute](h) }

// IsGroup reports whether the header describes a group.
func (h *Header) IsGroup() bool {
	return h.LinkInfo() != nil || h.SymbolTable() != nil || len(h.Links()) > 0
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.DataLayout() != nil
}

// readV1 decodes the 16-byte prefix
//
//	1 version, 1 reserved, 2 message count, 4 reference count,
//	4 header size, 4 alignment padding
//
// followed by messages of the form 2 type, 2 size, 1 flags, 3 reserved, data.
func (h *Header) readV1(r *binpkg.Reader) error {
	prefix, err := r.ReadBytes(16)
	if err != nil {
		return err
	}
	order := r.ByteOrder()
	h.Version = 1
	h.RefCount = order.Uint32(prefix[4:])
	size := order.Uint32(prefix[8:])

	block, err := r.ReadBytes(int(size))
	if err != nil {
		return err
	}
	return h.readBlocks(block, func(b []byte) ([]message.Message, []*message.Continuation, error) {
		return parseV1Block(r, b)
	}, func(cont *message.Continuation) ([]byte, error) {
		return r.At(int64(cont.Offset)).ReadBytes(int(cont.Length))
	})
}

func parseV1Block(r *binpkg.Reader, b []byte) ([]message.Message, []*message.Continuation, error) {
	order := r.ByteOrder()
	var msgs []message.Message
	var conts []*message.Continuation
	for pos := 0; pos+8 <= len(b); {
		typ := message.Type(order.Uint16(b[pos:]))
		size := int(order.Uint16(b[pos+2:]))
		flags := b[pos+4]
		pos += 8
		if pos+size > len(b) {
			return nil, nil, fmt.Errorf("%w: message %#04x overruns block", ErrInvalidHeader, uint16(typ))
		}
		data := b[pos : pos+size]
		pos += (size + 7) &^ 7

		m, cont, err := parseMessage(r, typ, flags, data)
		if err != nil {
			return nil, nil, err
		}
		if cont != nil {
			conts = append(conts, cont)
		} else if m != nil {
			msgs = append(msgs, m)
		}
	}
	return msgs, conts, nil
}

// readV2 decodes
//
//	4 "OHDR", 1 version, 1 flags, [16 times], [4 attribute phase change],
//	1-8 chunk size, messages, 4 checksum
//
// where each message is 1 type, 2 size, 1 flags, [2 creation order], data.
func (h *Header) readV2(r *binpkg.Reader) error {
	start := r.Pos()
	prefix, err := r.ReadBytes(6)
	if err != nil {
		return err
	}
	h.Version = prefix[4]
	h.Flags = prefix[5]
	if h.Version != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Flags&0x20 != 0 {
		r.Skip(16)
	}
	if h.Flags&0x10 != 0 {
		r.Skip(4)
	}
	chunkSize, err := r.ReadUintN(1 << (h.Flags & 0x03))
	if err != nil {
		return err
	}

	headLen := int(r.Pos() - start)
	chunk, err := r.At(start).ReadBytes(headLen + int(chunkSize) + 4)
	if err != nil {
		return err
	}
	if err := verifyChecksum(chunk); err != nil {
		return err
	}

	trackOrder := h.Flags&0x04 != 0
	return h.readBlocks(chunk[headLen:len(chunk)-4], func(b []byte) ([]message.Message, []*message.Continuation, error) {
		return parseV2Block(r, b, trackOrder)
	}, func(cont *message.Continuation) ([]byte, error) {
		b, err := r.At(int64(cont.Offset)).ReadBytes(int(cont.Length))
		if err != nil {
			return nil, err
		}
		if len(b) < 8 || string(b[:4]) != string(signatureContinuation) {
			return nil, fmt.Errorf("%w: bad continuation signature at %d", ErrInvalidHeader, cont.Offset)
		}
		if err := verifyChecksum(b); err != nil {
			return nil, err
		}
		return b[4 : len(b)-4], nil
	})
}

func parseV2Block(r *binpkg.Reader, b []byte, trackOrder bool) ([]message.Message, []*message.Continuation, error) {
	hdr := 4
	if trackOrder {
		hdr += 2
	}
	var msgs []message.Message
	var conts []*message.Continuation
	// A tail shorter than a message header is a gap.
	for pos := 0; pos+hdr <= len(b); {
		typ := message.Type(b[pos])
		size := int(r.ByteOrder().Uint16(b[pos+1:]))
		flags := b[pos+3]
		pos += hdr
		if pos+size > len(b) {
			return nil, nil, fmt.Errorf("%w: message %#04x overruns chunk", ErrInvalidHeader, uint16(typ))
		}
		data := b[pos : pos+size]
		pos += size

		m, cont, err := parseMessage(r, typ, flags, data)
		if err != nil {
			return nil, nil, err
		}
		if cont != nil {
			conts = append(conts, cont)
		} else if m != nil {
			msgs = append(msgs, m)
		}
	}
	return msgs, conts, nil
}

// parseMessage decodes one message body. NIL and shared messages yield nil.
func parseMessage(r *binpkg.Reader, typ message.Type, flags uint8, data []byte) (message.Message, *message.Continuation, error) {
	if typ == message.TypeNIL || flags&0x02 != 0 {
		return nil, nil, nil
	}
	m, err := message.Parse(typ, data, r)
	if err != nil {
		return nil, nil, err
	}
	if cont, ok := m.(*message.Continuation); ok {
		return nil, cont, nil
	}
	return m, nil, nil
}

// readBlocks parses the first block and then every continuation block it
// references, breadth first.
func (h *Header) readBlocks(
	block []byte,
	parse func([]byte) ([]message.Message, []*message.Continuation, error),
	load func(*message.Continuation) ([]byte, error),
) error {
	queue := []*message.Continuation{nil}
	for n := 0; len(queue) > 0; n++ {
		if n > maxContinuations {
			return fmt.Errorf("%w: too many continuation blocks", ErrInvalidHeader)
		}
		cont := queue[0]
		queue = queue[1:]

		b := block
		if cont != nil {
			var err error
			if b, err = load(cont); err != nil {
				return fmt.Errorf("continuation at %d: %w", cont.Offset, err)
			}
		}
		msgs, conts, err := parse(b)
		if err != nil {
			return err
		}
		h.Messages = append(h.Messages, msgs...)
		queue = append(queue, conts...)
	}
	return nil
}

func verifyChecksum(b []byte) error {
	n := len(b) - 4
	if binpkg.Lookup3Checksum(b[:n]) != binary.LittleEndian.Uint32(b[n:]) {
		return ErrChecksumMismatch
	}
	return nil
}
