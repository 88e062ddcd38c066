package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ndming/orca-blender/internal/version"
)

// ManifestName is the file WriteManifest creates in the output directory.
const ManifestName = "render.yaml"

// Manifest records how a directory of frames was rendered.
type Manifest struct {
	Run        string    `yaml:"run"`
	Version    string    `yaml:"version"`
	Created    time.Time `yaml:"created"`
	Scene      string    `yaml:"scene"`
	Width      int       `yaml:"width"`
	Height     int       `yaml:"height"`
	Samples    int       `yaml:"samples"`
	MotionBlur bool      `yaml:"motion_blur"`
	BlurSteps  int       `yaml:"motion_blur_steps,omitempty"`
	FrameStart int       `yaml:"frame_start,omitempty"`
	FrameEnd   int       `yaml:"frame_end,omitempty"`
	Device     string    `yaml:"device"`
	Camera     string    `yaml:"camera"`
	ViewLayer  string    `yaml:"view_layer"`
}

// NewManifest describes a run of opts under a fresh run ID.
func NewManifest(opts Options) *Manifest {
	w, h := opts.Resolution()
	m := &Manifest{
		Run:        uuid.NewString(),
		Version:    version.Version,
		Created:    time.Now().UTC().Truncate(time.Second),
		Scene:      opts.Scene,
		Width:      w,
		Height:     h,
		Samples:    opts.Samples,
		MotionBlur: opts.MotionBlur,
		FrameStart: opts.FrameStart,
		FrameEnd:   opts.FrameEnd,
		Device:     opts.Device,
		Camera:     opts.Camera,
		ViewLayer:  opts.ViewLayer,
	}
	if opts.MotionBlur {
		m.BlurSteps = opts.BlurSteps
	}
	return m
}

// WriteManifest writes the manifest of opts to dir/render.yaml, creating
// dir if needed.
func WriteManifest(dir string, opts Options) (*Manifest, error) {
	m := NewManifest(opts)
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), out, 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return m, nil
}

// ReadManifest loads dir/render.yaml.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}
