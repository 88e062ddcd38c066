package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sceneFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.blend")
	require.NoError(t, os.WriteFile(path, []byte("BLENDER"), 0o644))
	return path
}

func validOptions(t *testing.T) Options {
	o := DefaultOptions()
	o.Scene = sceneFile(t)
	o.OutputDir = filepath.Join(t.TempDir(), "frames")
	return o
}

func TestResolution(t *testing.T) {
	o := DefaultOptions()
	w, h := o.Resolution()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 900, h)
	o.LowRes = true
	w, h = o.Resolution()
	assert.Equal(t, 400, w)
	assert.Equal(t, 225, h)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validOptions(t).Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no scene", func(o *Options) { o.Scene = "" }},
		{"missing scene", func(o *Options) { o.Scene = filepath.Join(t.TempDir(), "none.blend") }},
		{"scene is dir", func(o *Options) { o.Scene = t.TempDir() }},
		{"no output", func(o *Options) { o.OutputDir = "" }},
		{"zero samples", func(o *Options) { o.Samples = 0 }},
		{"negative start", func(o *Options) { o.FrameStart = -1 }},
		{"reversed range", func(o *Options) { o.FrameStart, o.FrameEnd = 20, 10 }},
		{"bad device", func(o *Options) { o.Device = "TPU" }},
		{"blur without steps", func(o *Options) { o.MotionBlur, o.BlurSteps = true, 0 }},
		{"no blender", func(o *Options) { o.Blender = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOptions(t)
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}

	o := validOptions(t)
	o.FrameEnd = 5
	assert.NoError(t, o.Validate(), "open start with an end frame")
}

func TestScriptDefaults(t *testing.T) {
	o := DefaultOptions()
	o.Scene = "/scenes/room.blend"
	o.OutputDir = "/renders/high"
	script, err := Script(o)
	require.NoError(t, err)
	s := string(script)

	for _, want := range []string{
		`SCENE = "/scenes/room.blend"`,
		`OUT_DIR = Path("/renders/high")`,
		`DEVICE = "OPTIX"`,
		`CAMERA = "Camera"`,
		`VIEW_LAYER = "ViewLayer"`,
		"scene.cycles.samples = 1024",
		"scene.render.resolution_x = 1600",
		"scene.render.resolution_y = 900",
		`scene.render.image_settings.file_format = "OPEN_EXR_MULTILAYER"`,
		"start = scene.frame_start",
		"end = scene.frame_end",
		`aov.type = "VALUE"`,
		`("frame-%04d" % frame)`,
		"view_layer.use_pass_environment = True",
		`raise RuntimeError("camera %r not found in %s" % (CAMERA, SCENE))`,
	} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, "use_motion_blur")
}

func TestScriptOverrides(t *testing.T) {
	o := DefaultOptions()
	o.Scene = `/scenes/it's "quoted".blend`
	o.OutputDir = "out"
	o.LowRes = true
	o.Samples = 64
	o.MotionBlur = true
	o.FrameStart = 10
	o.FrameEnd = 20
	o.Device = "CUDA"
	script, err := Script(o)
	require.NoError(t, err)
	s := string(script)

	for _, want := range []string{
		`SCENE = "/scenes/it's \"quoted\".blend"`,
		`DEVICE = "CUDA"`,
		"scene.cycles.samples = 64",
		"scene.render.resolution_x = 400",
		"scene.render.resolution_y = 225",
		"scene.render.use_motion_blur = True\nscene.cycles.motion_blur_steps = 16\n",
		"start = 10\n",
		"end = 20\n",
	} {
		assert.Contains(t, s, want)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	o := validOptions(t)
	o.LowRes = true
	o.MotionBlur = true
	o.FrameEnd = 50

	m, err := WriteManifest(o.OutputDir, o)
	require.NoError(t, err)
	assert.NotEmpty(t, m.Run)

	got, err := ReadManifest(o.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, m.Run, got.Run)
	assert.True(t, m.Created.Equal(got.Created))
	assert.Equal(t, o.Scene, got.Scene)
	assert.Equal(t, 400, got.Width)
	assert.Equal(t, 225, got.Height)
	assert.Equal(t, 16, got.BlurSteps)
	assert.Equal(t, 0, got.FrameStart)
	assert.Equal(t, 50, got.FrameEnd)
	assert.Equal(t, "OPTIX", got.Device)
}

// fakeBlender writes a shell script that stands in for Blender.
func fakeBlender(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "blender")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunStreamsOutput(t *testing.T) {
	o := validOptions(t)
	o.Blender = fakeBlender(t, `echo "args: $1 $2 $3 $4 $5"
grep -c use_pass_mist "$6"
echo "warning: fake" >&2
`)
	core, logs := observer.New(zapcore.InfoLevel)
	tmp := t.TempDir()
	r := &Runner{Log: zap.New(core), TempDir: tmp}

	require.NoError(t, r.Run(context.Background(), o))

	var lines []string
	for _, e := range logs.All() {
		if e.ContextMap()["source"] == "blender" {
			lines = append(lines, e.Message)
		}
	}
	assert.Equal(t, []string{
		"args: --background --factory-startup --python-exit-code 1 --python",
		"1",
		"warning: fake",
	}, lines)
	assert.Equal(t, 1, logs.FilterMessage("blender finished").Len())

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "driver script is removed")
	_, err = ReadManifest(o.OutputDir)
	assert.NoError(t, err)
}

func TestRunFailure(t *testing.T) {
	o := validOptions(t)
	o.Blender = fakeBlender(t, "echo 'Error: Python script failed' >&2\nexit 1\n")
	err := (&Runner{TempDir: t.TempDir()}).Run(context.Background(), o)
	assert.ErrorIs(t, err, ErrBlenderFailed)
}

func TestRunMissingExecutable(t *testing.T) {
	o := validOptions(t)
	o.Blender = filepath.Join(t.TempDir(), "no-such-blender")
	err := (&Runner{}).Run(context.Background(), o)
	assert.ErrorIs(t, err, ErrBlenderFailed)
}

func TestRunInvalidOptions(t *testing.T) {
	o := validOptions(t)
	o.Samples = -1
	err := (&Runner{}).Run(context.Background(), o)
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "blender failed"))
	assert.NoDirExists(t, o.OutputDir)
}
