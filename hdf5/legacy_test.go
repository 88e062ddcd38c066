package hdf5

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/ndming/orca-blender/internal/binary"
	"github.com/ndming/orca-blender/internal/dtype"
	"github.com/ndming/orca-blender/internal/message"
	"github.com/ndming/orca-blender/internal/superblock"
)

// Layout of the legacy fixture, mirroring what h5py writes by default:
// a version 0 superblock, version 1 object headers and an old-style root
// group indexed by a B-tree and a local heap.
const (
	legacyRoot    = 96
	legacyBTree   = 400
	legacySymbols = 500
	legacyHeap    = 600
	legacyDataset = 700
	legacyData    = 1024
)

var legacyDepth = []float32{0.25, 0.5, 0.75, 1}

// v1Header writes a version 1 object header at at and fails if it would run
// past limit.
func v1Header(t *testing.T, w *binpkg.Writer, at, limit int64, msgs ...message.Serializable) {
	t.Helper()
	var body []byte
	for _, m := range msgs {
		mw, buf := binpkg.NewBufferWriter(w.Config())
		require.NoError(t, m.Serialize(mw))
		data := buf.Bytes()
		padded := make([]byte, 8+(len(data)+7)&^7)
		binary.LittleEndian.PutUint16(padded[0:], uint16(m.Type()))
		binary.LittleEndian.PutUint16(padded[2:], uint16(len(padded)-8))
		copy(padded[8:], data)
		body = append(body, padded...)
	}

	prefix := make([]byte, 16)
	prefix[0] = 1
	binary.LittleEndian.PutUint16(prefix[2:], uint16(len(msgs)))
	binary.LittleEndian.PutUint32(prefix[4:], 1)
	binary.LittleEndian.PutUint32(prefix[8:], uint32(len(body)))
	hw := w.At(at)
	require.NoError(t, hw.WriteBytes(prefix))
	require.NoError(t, hw.WriteBytes(body))
	require.LessOrEqual(t, at+16+int64(len(body)), limit)
}

// symbolTable is a minimal serializable symbol table message for the fixture.
type symbolTable struct{ btree, heap uint64 }

func (s *symbolTable) Type() message.Type { return message.TypeSymbolTable }

func (s *symbolTable) Serialize(w *binpkg.Writer) error {
	if err := w.WriteOffset(s.btree); err != nil {
		return err
	}
	return w.WriteOffset(s.heap)
}

func (s *symbolTable) SerializedSize(w *binpkg.Writer) int { return 2 * w.OffsetSize() }

func writeLegacyFile(t *testing.T) string {
	t.Helper()
	w, buf := binpkg.NewBufferWriter(binpkg.DefaultConfig())
	eof := uint64(legacyData + 4*len(legacyDepth))

	sb := w.At(0)
	sb.WriteBytes(superblock.Signature)
	sb.WriteBytes([]byte{0, 0, 0, 0, 0, 8, 8, 0})
	sb.WriteUint16(4)
	sb.WriteUint16(16)
	sb.WriteUint32(0)
	sb.WriteOffset(0)
	sb.WriteUndefinedOffset()
	sb.WriteOffset(eof)
	sb.WriteUndefinedOffset()
	sb.WriteOffset(0)
	sb.WriteOffset(legacyRoot)
	sb.WriteUint32(1)
	sb.WriteUint32(0)
	sb.WriteOffset(legacyBTree)
	sb.WriteOffset(legacyHeap)

	total, err := newAttribute("total-frames", int64(4))
	require.NoError(t, err)
	v1Header(t, w, legacyRoot, legacyBTree, &symbolTable{btree: legacyBTree, heap: legacyHeap}, total)

	bt := w.At(legacyBTree)
	bt.WriteBytes([]byte{'T', 'R', 'E', 'E', 0, 0})
	bt.WriteUint16(1)
	bt.WriteUndefinedOffset()
	bt.WriteUndefinedOffset()
	bt.WriteLength(0)
	bt.WriteOffset(legacySymbols)
	bt.WriteLength(1)

	sn := w.At(legacySymbols)
	sn.WriteBytes([]byte{'S', 'N', 'O', 'D', 1, 0})
	sn.WriteUint16(1)
	sn.WriteOffset(1)
	sn.WriteOffset(legacyDataset)
	sn.WriteUint32(0)
	sn.WriteUint32(0)
	sn.WriteZeros(16)

	names := "\x00depth\x00\x00"
	hp := w.At(legacyHeap)
	hp.WriteBytes([]byte("HEAP\x00\x00\x00\x00"))
	hp.WriteLength(uint64(len(names)))
	hp.WriteUndefinedOffset()
	hp.WriteOffset(legacyHeap + 32)
	hp.WriteBytes([]byte(names))

	data := dtype.EncodeFloat32(legacyDepth)
	v1Header(t, w, legacyDataset, legacyData,
		message.NewDataspace([]uint64{2, 2}),
		message.NewFloatDatatype(4),
		message.NewContiguousLayout(legacyData, uint64(len(data))))
	require.NoError(t, w.At(legacyData).WriteBytes(data))

	path := filepath.Join(t.TempDir(), "legacy.h5")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadLegacyFile(t *testing.T) {
	f, err := Open(writeLegacyFile(t))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 0, f.Version())
	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"depth"}, members)

	ds, err := f.OpenDataset("depth")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 2}, ds.Shape())
	got, err := ds.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, legacyDepth, got)

	total, err := f.Root().Attr("total-frames").ReadScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestAppendUpgradesLegacyFile(t *testing.T) {
	path := writeLegacyFile(t)

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	res, err := f.Root().CreateGroup("400x225")
	require.NoError(t, err)
	require.NoError(t, res.SetAttr("frame-width", int64(400)))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 2, f.Version())
	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"400x225", "depth"}, members)

	ds, err := f.OpenDataset("depth")
	require.NoError(t, err)
	got, err := ds.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, legacyDepth, got)

	total, err := f.Root().Attr("total-frames").ReadScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	reopened, err := f.OpenGroup("400x225")
	require.NoError(t, err)
	width, err := reopened.Attr("frame-width").Value()
	require.NoError(t, err)
	assert.Equal(t, int64(400), width)
}

func TestLegacyFileUnchangedWithoutWrites(t *testing.T) {
	path := writeLegacyFile(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	_, err = f.Root().Members()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
