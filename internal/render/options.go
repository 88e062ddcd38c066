package render

import (
	"errors"
	"fmt"
	"os"
	"slices"
)

// Render resolutions of the two tiers.
const (
	LowWidth   = 400
	LowHeight  = 225
	HighWidth  = 1600
	HighHeight = 900
)

// Devices lists the Cycles compute device types.
var Devices = []string{"OPTIX", "CUDA", "HIP", "ONEAPI", "METAL"}

// Options describes one render run.
type Options struct {
	Scene      string // .blend file
	OutputDir  string
	LowRes     bool
	Samples    int
	MotionBlur bool
	BlurSteps  int
	FrameStart int // 0 keeps the scene's start frame
	FrameEnd   int // 0 keeps the scene's end frame
	Device     string
	Camera     string
	ViewLayer  string
	Blender    string // executable
}

// DefaultOptions returns the settings used when a flag is not given.
func DefaultOptions() Options {
	return Options{
		Samples:   1024,
		BlurSteps: 16,
		Device:    "OPTIX",
		Camera:    "Camera",
		ViewLayer: "ViewLayer",
		Blender:   "blender",
	}
}

// Validate checks the options before Blender is started.
func (o Options) Validate() error {
	if o.Scene == "" {
		return errors.New("scene file is required")
	}
	info, err := os.Stat(o.Scene)
	if err != nil {
		return fmt.Errorf("scene file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("scene file %s is a directory", o.Scene)
	}
	switch {
	case o.OutputDir == "":
		return errors.New("output directory is required")
	case o.Samples <= 0:
		return fmt.Errorf("samples must be positive, got %d", o.Samples)
	case o.MotionBlur && o.BlurSteps <= 0:
		return fmt.Errorf("motion blur steps must be positive, got %d", o.BlurSteps)
	case o.FrameStart < 0 || o.FrameEnd < 0:
		return fmt.Errorf("frame range must not be negative, got %d..%d", o.FrameStart, o.FrameEnd)
	case o.FrameStart > 0 && o.FrameEnd > 0 && o.FrameStart > o.FrameEnd:
		return fmt.Errorf("frame start %d is after frame end %d", o.FrameStart, o.FrameEnd)
	case !slices.Contains(Devices, o.Device):
		return fmt.Errorf("unknown device type %q", o.Device)
	case o.Camera == "" || o.ViewLayer == "":
		return errors.New("camera and view layer names are required")
	case o.Blender == "":
		return errors.New("blender executable is required")
	}
	return nil
}

// Resolution returns the output width and height.
func (o Options) Resolution() (int, int) {
	if o.LowRes {
		return LowWidth, LowHeight
	}
	return HighWidth, HighHeight
}
