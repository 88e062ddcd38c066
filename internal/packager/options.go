package packager

import (
	"errors"
	"fmt"

	"github.com/ndming/orca-blender/hdf5"
	"github.com/ndming/orca-blender/internal/frameset"
)

// Mode says what to do with an existing output file.
type Mode int

const (
	// Refuse fails with ErrOutputExists when the output exists.
	Refuse Mode = iota
	// Append adds the resolutions the archive does not hold yet.
	Append
	// Overwrite replaces the archive.
	Overwrite
)

func (m Mode) String() string {
	switch m {
	case Append:
		return "append"
	case Overwrite:
		return "overwrite"
	}
	return "refuse"
}

// ModeFromFlags maps the -a and -w switches to a Mode.
func ModeFromFlags(appendMode, overwrite bool) (Mode, error) {
	switch {
	case appendMode && overwrite:
		return Refuse, errors.New("append and overwrite are mutually exclusive")
	case appendMode:
		return Append, nil
	case overwrite:
		return Overwrite, nil
	}
	return Refuse, nil
}

// Options configures a packaging run.
type Options struct {
	InputDir      string
	Output        string
	TestSequences []int
	Mode          Mode

	FramesPerSequence   int
	SequenceIndexDigits int
	FrameIndexDigits    int
	SourceDigits        int
	ViewLayer           string

	Compression int // deflate level, 0 disables
	Shuffle     bool
	Fletcher32  bool
}

// DefaultOptions returns the settings of a plain run.
func DefaultOptions() Options {
	return Options{
		FramesPerSequence:   100,
		SequenceIndexDigits: 3,
		FrameIndexDigits:    3,
		SourceDigits:        frameset.DefaultSourceDigits,
		ViewLayer:           "ViewLayer",
	}
}

// Validate checks the options that do not depend on the input.
func (o Options) Validate() error {
	switch {
	case o.InputDir == "":
		return errors.New("input directory is required")
	case o.Output == "":
		return errors.New("output file is required")
	case len(o.TestSequences) == 0:
		return errors.New("at least one test sequence is required")
	case o.FramesPerSequence <= 0:
		return fmt.Errorf("frames per sequence must be positive, got %d", o.FramesPerSequence)
	case o.SequenceIndexDigits <= 0 || o.FrameIndexDigits <= 0 || o.SourceDigits <= 0:
		return errors.New("digit widths must be positive")
	case o.Compression < 0 || o.Compression > 9:
		return fmt.Errorf("compression level must be in [0, 9], got %d", o.Compression)
	}
	return nil
}

func (o Options) datasetOptions() []hdf5.DatasetOption {
	var opts []hdf5.DatasetOption
	if o.Shuffle {
		opts = append(opts, hdf5.WithShuffle())
	}
	if o.Compression > 0 {
		opts = append(opts, hdf5.WithCompression(o.Compression))
	}
	if o.Fletcher32 {
		opts = append(opts, hdf5.WithFletcher32())
	}
	return opts
}
