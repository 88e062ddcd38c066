package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/message"
)

func writeAt(t *testing.T, addr int64, msgs []message.Serializable) []byte {
	t.Helper()
	w, buf := binpkg.NewBufferWriter(binpkg.DefaultConfig())
	if err := Write(w.At(addr), msgs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := len(buf.Bytes())-int(addr), Size(w, msgs); got != want {
		t.Fatalf("wrote %d bytes, Size = %d", got, want)
	}
	return buf.Bytes()
}

func read(t *testing.T, data []byte, addr uint64) *Header {
	t.Helper()
	r := binpkg.NewReader(bytes.NewReader(data), binpkg.DefaultConfig())
	h, err := Read(r, addr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return h
}

func TestGroupHeaderRoundTrip(t *testing.T) {
	attr, err := message.NewAttribute("total-frames", message.NewFixedPointDatatype(8, true),
		message.NewScalarDataspace(), make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	links := []*message.Link{
		message.NewHardLink("sequence-0000", 1024),
		message.NewHardLink("sequence-0001", 2048),
	}
	data := writeAt(t, 96, GroupMessages(links, []*message.Attribute{attr}))

	h := read(t, data, 96)
	if h.Version != 2 || !h.IsGroup() || h.IsDataset() {
		t.Fatalf("header v%d group=%v dataset=%v", h.Version, h.IsGroup(), h.IsDataset())
	}
	if diff := cmp.Diff(links, h.Links()); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if got := h.Attributes(); len(got) != 1 || got[0].Name != "total-frames" {
		t.Errorf("attributes = %+v", got)
	}
	if h.Message(message.TypeGroupInfo) == nil {
		t.Error("missing group info message")
	}
}

func TestDatasetHeaderRoundTrip(t *testing.T) {
	space := message.NewDataspace([]uint64{3, 225, 400})
	dtype := message.NewFloatDatatype(4)
	layout := message.NewSingleChunkLayout(space.Dimensions, 4, 4096, true, 1234)
	pipeline := message.NewFilterPipeline().AddShuffle(4).AddDeflate(4)

	data := writeAt(t, 0, DatasetMessages(space, dtype, layout, pipeline, nil))
	h := read(t, data, 0)

	if !h.IsDataset() {
		t.Fatal("expected dataset header")
	}
	if diff := cmp.Diff(space, h.Dataspace()); diff != "" {
		t.Errorf("dataspace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(layout, h.DataLayout()); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
	if got := h.FilterPipeline(); got == nil || len(got.Filters) != 2 {
		t.Errorf("pipeline = %+v", got)
	}
	if _, ok := h.Message(message.TypeFillValue).(*message.Unknown); !ok {
		t.Error("fill value message not kept")
	}
}

func TestDatasetHeaderWithoutFilters(t *testing.T) {
	space := message.NewDataspace([]uint64{225, 400})
	layout := message.NewContiguousLayout(4096, 225*400*4)
	h := read(t, writeAt(t, 0, DatasetMessages(space, message.NewFloatDatatype(4), layout, nil, nil)), 0)
	if h.FilterPipeline() != nil {
		t.Error("unexpected filter pipeline")
	}
	if got := h.DataLayout(); !got.IsContiguous() || got.Address != 4096 {
		t.Errorf("layout = %+v", got)
	}
}

func TestChecksumMismatch(t *testing.T) {
	data := writeAt(t, 0, GroupMessages(nil, nil))
	data[8] ^= 0x01

	r := binpkg.NewReader(bytes.NewReader(data), binpkg.DefaultConfig())
	if _, err := Read(r, 0); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestReadInvalid(t *testing.T) {
	r := binpkg.NewReader(bytes.NewReader([]byte{9, 9, 9, 9, 9, 9}), binpkg.DefaultConfig())
	if _, err := Read(r, 0); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

// v1Message encodes a version 1 header message with its body padded to 8.
func v1Message(typ message.Type, body []byte) []byte {
	padded := make([]byte, (len(body)+7)&^7)
	copy(padded, body)
	out := make([]byte, 8, 8+len(padded))
	binary.LittleEndian.PutUint16(out[0:], uint16(typ))
	binary.LittleEndian.PutUint16(out[2:], uint16(len(padded)))
	return append(out, padded...)
}

func TestReadV1WithContinuation(t *testing.T) {
	le := binary.LittleEndian
	symtab := make([]byte, 16)
	le.PutUint64(symtab[0:], 136)
	le.PutUint64(symtab[8:], 680)

	// The continuation block lives at 200 and holds the symbol table message.
	cont := v1Message(message.TypeSymbolTable, symtab)
	contRef := make([]byte, 16)
	le.PutUint64(contRef[0:], 200)
	le.PutUint64(contRef[8:], uint64(len(cont)))

	msgs := append(v1Message(message.TypeObjectModTimeOld, make([]byte, 14)),
		v1Message(message.TypeObjectHeaderContinuation, contRef)...)

	data := make([]byte, 200+len(cont))
	data[0] = 1
	le.PutUint16(data[2:], 3)
	le.PutUint32(data[4:], 1)
	le.PutUint32(data[8:], uint32(len(msgs)))
	copy(data[16:], msgs)
	copy(data[200:], cont)

	h := read(t, data, 0)
	if h.Version != 1 || h.RefCount != 1 {
		t.Errorf("header v%d refcount %d", h.Version, h.RefCount)
	}
	st := h.SymbolTable()
	if st == nil {
		t.Fatal("symbol table from continuation block not found")
	}
	if st.BTreeAddress != 136 || st.HeapAddress != 680 {
		t.Errorf("symbol table = %+v", st)
	}
	if !h.IsGroup() {
		t.Error("expected group")
	}
}

func TestReadV2WithContinuation(t *testing.T) {
	cfg := binpkg.DefaultConfig()

	// Continuation chunk at 512: "OCHK", one link message, checksum.
	link := message.NewHardLink("frame-0000", 4096)
	cw, cbuf := binpkg.NewBufferWriter(cfg)
	cw.WriteBytes(signatureContinuation)
	cw.WriteUint8(uint8(message.TypeLink))
	cw.WriteUint16(uint16(link.SerializedSize(cw)))
	cw.WriteUint8(0)
	if err := link.Serialize(cw); err != nil {
		t.Fatal(err)
	}
	cw.WriteUint32(binpkg.Lookup3Checksum(cbuf.Bytes()))
	chunk := cbuf.Bytes()

	contRef := &rawMessage{typ: message.TypeObjectHeaderContinuation, body: func(w *binpkg.Writer) error {
		if err := w.WriteOffset(512); err != nil {
			return err
		}
		return w.WriteLength(uint64(len(chunk)))
	}, size: 16}

	w, buf := binpkg.NewBufferWriter(cfg)
	if err := Write(w, []message.Serializable{&message.LinkInfo{}, &message.GroupInfo{}, contRef}); err != nil {
		t.Fatal(err)
	}
	if _, err := buf.WriteAt(chunk, 512); err != nil {
		t.Fatal(err)
	}

	h := read(t, buf.Bytes(), 0)
	if diff := cmp.Diff([]*message.Link{link}, h.Links()); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

type rawMessage struct {
	typ  message.Type
	body func(*binpkg.Writer) error
	size int
}

func (m *rawMessage) Type() message.Type                  { return m.typ }
func (m *rawMessage) Serialize(w *binpkg.Writer) error    { return m.body(w) }
func (m *rawMessage) SerializedSize(w *binpkg.Writer) int { return m.size }
