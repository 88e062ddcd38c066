package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndming/orca-blender/exr"
	"github.com/ndming/orca-blender/exr/exrtest"
	"github.com/ndming/orca-blender/hdf5"
	"github.com/ndming/orca-blender/internal/frameset"
	"github.com/ndming/orca-blender/internal/packager"
)

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := 1; i <= n; i++ {
		var chans []exrtest.Channel
		for _, l := range packager.Layers {
			for _, name := range l.ChannelNames("ViewLayer") {
				chans = append(chans, exrtest.Channel{Name: name, Type: exr.Half, Values: exrtest.Ramp(2, 2, float32(i), 1)})
			}
		}
		img := exrtest.Image{Width: 2, Height: 2, Compression: exr.ZIPS, Channels: chans}
		require.NoError(t, exrtest.WriteFile(frameset.FrameFile(dir, i, 4), img))
	}
}

func runArgs(args ...string) (string, error) {
	var stderr bytes.Buffer
	err := run(context.Background(), append(args, "-log-level", "error"), &stderr)
	return stderr.String(), err
}

func TestPackage(t *testing.T) {
	input := t.TempDir()
	writeFrames(t, filepath.Join(input, "low"), 6)
	output := filepath.Join(t.TempDir(), "data.h5")

	_, err := runArgs(input, "-o", output, "-t", "0", "2", "-fps", "2", "-fd", "2")
	require.NoError(t, err)

	f, err := hdf5.Open(output)
	require.NoError(t, err)
	defer f.Close()
	test, err := f.OpenGroup("low/test")
	require.NoError(t, err)
	seqs, err := test.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"seq-000", "seq-001"}, seqs)
	_, err = f.OpenGroup("low/train/seq-000/frame-01")
	assert.NoError(t, err)

	v, err := f.Root().Attr(packager.AttrFrameIndexDigits).ReadScalarInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	_, err = runArgs(input, "-o", output, "-t", "0")
	assert.ErrorIs(t, err, packager.ErrOutputExists)
}

func TestConfigFileAndFlags(t *testing.T) {
	input := t.TempDir()
	writeFrames(t, filepath.Join(input, "low"), 4)
	output := filepath.Join(t.TempDir(), "data.h5")
	cfg := filepath.Join(t.TempDir(), "orca.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("package:\n  frames_per_sequence: 4\n  compression: 5\n"), 0o644))

	_, err := runArgs(input, "-o", output, "-t", "0", "--config", cfg, "--sd", "1")
	require.NoError(t, err)

	f, err := hdf5.Open(output)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.OpenDataset("low/test/seq-0/frame-003/depth")
	require.NoError(t, err)
	assert.Equal(t, []string{"deflate"}, ds.Filters())
}

func TestArgumentErrors(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "data.h5")

	tests := map[string][]string{
		"no input":          {"-o", output, "-t", "0"},
		"no output":         {input, "-t", "0"},
		"no test sequences": {input, "-o", output},
		"append and write":  {input, "-o", output, "-t", "0", "-a", "-w"},
		"stray argument":    {input, "extra", "-o", output, "-t", "0"},
		"bad index":         {input, "-o", output, "-t", "x"},
		"unknown flag":      {input, "-o", output, "-t", "0", "--bogus"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runArgs(args...)
			assert.Error(t, err)
			assert.NoFileExists(t, output)
		})
	}
}

func TestHelpAndVersion(t *testing.T) {
	out, err := runArgs("-h")
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage: orca-package")

	out, err = runArgs("-version")
	assert.NoError(t, err)
	assert.Contains(t, out, "orca-package dev")
}
