package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndming/orca-blender/internal/render"
)

func scene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "room.blend")
	require.NoError(t, os.WriteFile(path, []byte("BLENDER"), 0o644))
	return path
}

func runArgs(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	err = run(context.Background(), append(args, "-log-level", "error"), &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestScriptOut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	path := filepath.Join(t.TempDir(), "driver.py")

	_, _, err := runArgs(scene(t), "-o", dir, "-l", "-s", "32", "-fs", "5", "-fe", "9", "--device", "CUDA", "--script-out", path)
	require.NoError(t, err)
	script, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(script)
	assert.Contains(t, s, "scene.cycles.samples = 32")
	assert.Contains(t, s, "scene.render.resolution_x = 400")
	assert.Contains(t, s, "start = 5\n")
	assert.Contains(t, s, "end = 9\n")
	assert.Contains(t, s, `DEVICE = "CUDA"`)
	assert.NoDirExists(t, dir, "nothing is rendered")
}

func TestScriptToStdout(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "orca.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("render:\n  samples: 8\n  motion_blur: true\n"), 0o644))

	out, errOut, err := runArgs(scene(t), "-o", t.TempDir(), "--config", cfg, "--script-out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "scene.cycles.samples = 8")
	assert.Contains(t, out, "scene.render.use_motion_blur = True")
	assert.NotContains(t, errOut, "import bpy", "script must not go to stderr")
}

func TestRunsBlender(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	blender := filepath.Join(t.TempDir(), "blender")
	require.NoError(t, os.WriteFile(blender, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	dir := filepath.Join(t.TempDir(), "frames")

	_, _, err := runArgs(scene(t), "-o", dir, "--blender", blender)
	require.NoError(t, err)
	m, err := render.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, 1600, m.Width)

	require.NoError(t, os.WriteFile(blender, []byte("#!/bin/sh\nexit 2\n"), 0o755))
	_, _, err = runArgs(scene(t), "-o", dir, "--blender", blender)
	assert.ErrorIs(t, err, render.ErrBlenderFailed)
}

func TestArgumentErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"no scene":      {"-o", t.TempDir()},
		"missing scene": {filepath.Join(t.TempDir(), "none.blend"), "-o", t.TempDir()},
		"no output":     {scene(t)},
		"bad samples":   {scene(t), "-o", t.TempDir(), "-s", "0"},
		"two scenes":    {scene(t), scene(t), "-o", t.TempDir()},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := runArgs(args...)
			assert.Error(t, err)
		})
	}
}
