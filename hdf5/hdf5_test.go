package hdf5

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.h5")
}

func TestCreateEmpty(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 2, f.Version())
	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Equal(t, "/", f.Root().Name())
}

func TestNestedGroupsRoundTrip(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)

	res, err := f.Root().CreateGroup("1600x900")
	require.NoError(t, err)
	train, err := res.CreateGroup("train")
	require.NoError(t, err)
	_, err = res.CreateGroup("test")
	require.NoError(t, err)
	seq, err := train.CreateGroup("seq-000")
	require.NoError(t, err)
	frame, err := seq.CreateGroup("frame-000")
	require.NoError(t, err)

	depth := []float32{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}
	_, err = frame.CreateFloat32("depth", []uint64{2, 3}, depth)
	require.NoError(t, err)
	require.NoError(t, res.SetAttr("frame-width", int64(3)))
	require.NoError(t, res.SetAttr("frame-height", int64(2)))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("1600x900/train/seq-000/frame-000/depth")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ds.Shape())
	assert.Equal(t, "float32", ds.Type())
	assert.Equal(t, "/1600x900/train/seq-000/frame-000/depth", ds.Path())
	got, err := ds.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, depth, got)

	g, err := f.OpenGroup("/1600x900")
	require.NoError(t, err)
	members, err := g.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"test", "train"}, members)

	w, err := g.Attr("frame-width").ReadScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), w)
	assert.ElementsMatch(t, []string{"frame-width", "frame-height"}, g.Attrs())
}

func TestCreateDatasetShapes(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)

	root := f.Root()
	_, err = root.CreateDataset("matrix", [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	_, err = root.CreateDataset("ints", []int32{-1, 0, 7})
	require.NoError(t, err)
	_, err = root.CreateDataset("scalar", uint16(9))
	require.NoError(t, err)
	_, err = root.CreateDataset("names", []string{"train", "test"})
	require.NoError(t, err)
	_, err = root.CreateDataset("empty", []float32{})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	m, err := f.OpenDataset("matrix")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, m.Shape())
	vals, err := m.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, vals)

	ints, err := f.OpenDataset("ints")
	require.NoError(t, err)
	iv, err := ints.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 0, 7}, iv)

	s, err := f.OpenDataset("scalar")
	require.NoError(t, err)
	assert.Nil(t, s.Shape())
	sv, err := s.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, sv)

	names, err := f.OpenDataset("names")
	require.NoError(t, err)
	nv, err := names.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"train", "test"}, nv)

	empty, err := f.OpenDataset("empty")
	require.NoError(t, err)
	ev, err := empty.ReadFloat32()
	require.NoError(t, err)
	assert.Empty(t, ev)
	assert.Equal(t, []uint64{0}, empty.Shape())
}

func TestCompressedDatasets(t *testing.T) {
	data := make([]float32, 64*48)
	for i := range data {
		data[i] = float32(i%17) * 0.25
	}

	tests := []struct {
		name    string
		opts    []DatasetOption
		filters []string
	}{
		{"deflate", []DatasetOption{WithCompression(6)}, []string{"deflate"}},
		{"shuffle", []DatasetOption{WithCompression(4), WithShuffle()}, []string{"shuffle", "deflate"}},
		{"fletcher32", []DatasetOption{WithFletcher32()}, []string{"fletcher32"}},
		{"all", []DatasetOption{WithShuffle(), WithCompression(9), WithFletcher32()}, []string{"shuffle", "deflate", "fletcher32"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tempFile(t)
			f, err := Create(path)
			require.NoError(t, err)
			_, err = f.Root().CreateFloat32("combined", []uint64{48, 64}, data, tt.opts...)
			require.NoError(t, err)
			require.NoError(t, f.Close())

			f, err = Open(path)
			require.NoError(t, err)
			defer f.Close()
			ds, err := f.OpenDataset("combined")
			require.NoError(t, err)
			assert.Equal(t, "chunked", ds.Layout())
			assert.Equal(t, tt.filters, ds.Filters())
			got, err := ds.ReadFloat32()
			require.NoError(t, err)
			if diff := cmp.Diff(data, got); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDatasetAttributes(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("normal", []float32{1, 0, 0},
		WithAttribute("pass", "Normal"),
		WithAttribute("channels", []string{"X", "Y", "Z"}),
		WithAttribute("scale", 0.5))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.OpenDataset("normal")
	require.NoError(t, err)

	pass, err := ds.Attr("pass").ReadScalarString()
	require.NoError(t, err)
	assert.Equal(t, "Normal", pass)

	channels, err := ds.Attr("channels").Value()
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, channels)

	scale, err := ds.Attr("scale").Value()
	require.NoError(t, err)
	assert.Equal(t, 0.5, scale)
	assert.Nil(t, ds.Attr("missing"))
}

func TestSetAttrReplaces(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)
	root := f.Root()
	require.NoError(t, root.SetAttr("total-frames", int64(100)))
	require.NoError(t, root.SetAttr("total-frames", int64(200)))
	require.NoError(t, root.SetAttr("label", "orca"))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"total-frames", "label"}, f.Root().Attrs())
	v, err := f.Root().Attr("total-frames").Value()
	require.NoError(t, err)
	assert.Equal(t, int64(200), v)
	s, err := f.Root().Attr("label").ReadScalarString()
	require.NoError(t, err)
	assert.Equal(t, "orca", s)
}

func TestNameErrors(t *testing.T) {
	f, err := Create(tempFile(t))
	require.NoError(t, err)
	defer f.Close()
	root := f.Root()

	_, err = root.CreateGroup("train")
	require.NoError(t, err)
	_, err = root.CreateGroup("train")
	assert.ErrorIs(t, err, ErrExists)
	_, err = root.CreateDataset("train", []int64{1})
	assert.ErrorIs(t, err, ErrExists)

	for _, name := range []string{"", ".", "a/b"} {
		_, err = root.CreateGroup(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err = root.OpenGroup("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = root.OpenDataset("train")
	assert.ErrorIs(t, err, ErrNotDataset)

	_, err = root.CreateFloat32("bad", []uint64{2, 2}, []float32{1})
	assert.Error(t, err)
	_, err = root.CreateDataset("ragged", [][]int64{{1}, {2, 3}})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReadOnlyAndClosed(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Root().CreateGroup("late")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.OpenGroup("/")
	assert.ErrorIs(t, err, ErrClosed)

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, f.Writable())
	_, err = f.Root().CreateGroup("x")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, f.Root().SetAttr("a", 1), ErrReadOnly)
	assert.NoError(t, f.Flush())
}

func TestOpenNotHDF5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an archive, just some text padding it out"), 0o644))
	_, err := Open(path)
	assert.True(t, errors.Is(err, ErrNotHDF5), "got %v", err)
}

func TestAppendRelinksDeepGroups(t *testing.T) {
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)
	a, err := f.Root().CreateGroup("A")
	require.NoError(t, err)
	train, err := a.CreateGroup("train")
	require.NoError(t, err)
	_, err = train.CreateDataset("first", []int64{1, 2})
	require.NoError(t, err)
	require.NoError(t, f.Root().SetAttr("total-frames", int64(2)))
	require.NoError(t, f.Close())

	f, err = OpenReadWrite(path)
	require.NoError(t, err)
	train, err = f.OpenGroup("A/train")
	require.NoError(t, err)
	seq, err := train.CreateGroup("seq-001")
	require.NoError(t, err)
	_, err = seq.CreateDataset("second", []int64{3})
	require.NoError(t, err)
	b, err := f.Root().CreateGroup("B")
	require.NoError(t, err)
	require.NoError(t, b.SetAttr("frame-width", int64(400)))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	var paths []string
	require.NoError(t, Walk(f.Root(), func(p string, obj any, err error) error {
		require.NoError(t, err)
		paths = append(paths, p)
		return nil
	}))
	assert.Equal(t, []string{
		"/", "/A", "/A/train", "/A/train/first", "/A/train/seq-001", "/A/train/seq-001/second", "/B",
	}, paths)

	first, err := f.OpenDataset("A/train/first")
	require.NoError(t, err)
	v, err := first.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, v)

	total, err := f.Root().Attr("total-frames").ReadScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestSharedGroupHandles(t *testing.T) {
	f, err := Create(tempFile(t))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Root().CreateGroup("res")
	require.NoError(t, err)
	g1, err := f.OpenGroup("res")
	require.NoError(t, err)
	g2, err := f.Root().OpenGroup("/res")
	require.NoError(t, err)
	assert.Same(t, g1, g2)

	_, err = g1.CreateGroup("train")
	require.NoError(t, err)
	assert.True(t, g2.Has("train"))
	assert.True(t, f.Root().Has("res"))
	assert.False(t, f.Root().Has("train"))
}

func TestRequireGroup(t *testing.T) {
	f, err := Create(tempFile(t))
	require.NoError(t, err)
	defer f.Close()

	g1, err := f.Root().RequireGroup("train")
	require.NoError(t, err)
	g2, err := f.Root().RequireGroup("train")
	require.NoError(t, err)
	assert.Same(t, g1, g2)
}

func TestWalkSkipGroup(t *testing.T) {
	f, err := Create(tempFile(t))
	require.NoError(t, err)
	defer f.Close()

	a, err := f.Root().CreateGroup("a")
	require.NoError(t, err)
	_, err = a.CreateDataset("hidden", []int64{1})
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("visible", []int64{1})
	require.NoError(t, err)

	var paths []string
	err = Walk(f.Root(), func(p string, obj any, err error) error {
		paths = append(paths, p)
		if p == "/a" {
			return SkipGroup
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/a", "/visible"}, paths)

	stop := errors.New("stop")
	err = Walk(f.Root(), func(p string, obj any, err error) error {
		if _, ok := obj.(*Dataset); ok {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}
