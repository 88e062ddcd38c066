package btree

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/heap"
)

type entry struct {
	nameOff uint64
	addr    uint64
	cache   uint32
	target  uint32
}

type fixture struct {
	t *testing.T
	w *binpkg.Writer
	b *binpkg.Buffer
}

func newFixture(t *testing.T) *fixture {
	w, b := binpkg.NewBufferWriter(binpkg.DefaultConfig())
	return &fixture{t: t, w: w, b: b}
}

func (f *fixture) heap(at int64, data string) {
	w := f.w.At(at)
	w.WriteBytes([]byte("HEAP\x00\x00\x00\x00"))
	w.WriteLength(uint64(len(data)))
	w.WriteLength(^uint64(0))
	w.WriteOffset(uint64(at) + 32)
	w.WriteBytes([]byte(data))
}

func (f *fixture) node(at int64, level uint8, children ...uint64) {
	w := f.w.At(at)
	w.WriteBytes([]byte{'T', 'R', 'E', 'E', 0, level})
	w.WriteUint16(uint16(len(children)))
	w.WriteUndefinedOffset()
	w.WriteUndefinedOffset()
	for _, c := range children {
		w.WriteLength(0)
		w.WriteOffset(c)
	}
	w.WriteLength(0)
}

func (f *fixture) snod(at int64, entries ...entry) {
	w := f.w.At(at)
	w.WriteBytes([]byte{'S', 'N', 'O', 'D', 1, 0})
	w.WriteUint16(uint16(len(entries)))
	for _, e := range entries {
		w.WriteOffset(e.nameOff)
		w.WriteOffset(e.addr)
		w.WriteUint32(e.cache)
		w.WriteUint32(0)
		scratch := make([]byte, 16)
		scratch[0] = byte(e.target)
		w.WriteBytes(scratch)
	}
}

func (f *fixture) reader() *binpkg.Reader {
	return binpkg.NewReader(bytes.NewReader(f.b.Bytes()), binpkg.DefaultConfig())
}

func TestGroupEntriesTwoLevels(t *testing.T) {
	// Heap names: 1 "seq-000", 9 "seq-001", 17 "latest", 24 "/train/seq-001".
	f := newFixture(t)
	f.heap(0, "\x00seq-000\x00seq-001\x00latest\x00/train/seq-001\x00\x00")
	f.node(100, 1, 200, 300)
	f.node(200, 0, 400)
	f.node(300, 0, 600)
	f.snod(400, entry{nameOff: 1, addr: 4096})
	f.snod(600, entry{nameOff: 9, addr: 8192, cache: 1}, entry{nameOff: 17, cache: cacheSymlink, target: 24})

	r := f.reader()
	names, err := heap.ReadLocal(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := GroupEntries(r, 100, names)
	if err != nil {
		t.Fatal(err)
	}

	want := []GroupEntry{
		{Name: "seq-000", ObjectAddress: 4096},
		{Name: "seq-001", ObjectAddress: 8192},
		{Name: "latest", SoftLink: "/train/seq-001"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !got[2].IsSoftLink() || got[0].IsSoftLink() {
		t.Error("IsSoftLink mismatch")
	}
}

func TestGroupEntriesEmpty(t *testing.T) {
	f := newFixture(t)
	f.heap(0, "\x00\x00\x00\x00\x00\x00\x00\x00")
	f.node(64, 0)

	r := f.reader()
	names, err := heap.ReadLocal(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := GroupEntries(r, 64, names)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestGroupEntriesBadSignature(t *testing.T) {
	f := newFixture(t)
	f.heap(0, "\x00a\x00")
	f.node(64, 0, 200)
	f.w.At(200).WriteBytes([]byte("XXXX\x01\x00\x00\x00"))

	r := f.reader()
	names, err := heap.ReadLocal(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := GroupEntries(r, 64, names); err == nil {
		t.Error("expected error for bad symbol node signature")
	}
}

func (f *fixture) chunkNode(at int64, level uint8, entries ...ChunkEntry) {
	w := f.w.At(at)
	w.WriteBytes([]byte{'T', 'R', 'E', 'E', 1, level})
	w.WriteUint16(uint16(len(entries)))
	w.WriteUndefinedOffset()
	w.WriteUndefinedOffset()
	key := func(size, mask uint32, offset []uint64) {
		w.WriteUint32(size)
		w.WriteUint32(mask)
		for _, o := range offset {
			w.WriteUint64(o)
		}
		w.WriteUint64(0)
	}
	for _, e := range entries {
		key(e.Size, e.FilterMask, e.Offset)
		w.WriteOffset(e.Address)
	}
	key(0, 0, make([]uint64, 2))
}

func TestChunkEntries(t *testing.T) {
	f := newFixture(t)
	left := []ChunkEntry{
		{Offset: []uint64{0, 0}, Size: 100, Address: 4096},
		{Offset: []uint64{0, 64}, Size: 90, FilterMask: 1, Address: 4196},
	}
	right := []ChunkEntry{
		{Offset: []uint64{64, 0}, Size: 80, Address: 4286},
	}
	f.chunkNode(0, 1,
		ChunkEntry{Offset: []uint64{0, 0}, Address: 512},
		ChunkEntry{Offset: []uint64{64, 0}, Address: 1024})
	f.chunkNode(512, 0, left...)
	f.chunkNode(1024, 0, right...)

	got, err := ChunkEntries(f.reader(), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(append(left, right...), got); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestChunkEntriesWrongNodeType(t *testing.T) {
	f := newFixture(t)
	f.node(0, 0)
	if _, err := ChunkEntries(f.reader(), 0, 2); err == nil {
		t.Error("expected error for group node")
	}
}
