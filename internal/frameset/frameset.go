// Package frameset finds rendered frame sequences on disk and plans how
// they are split into fixed-length train and test sequences.
package frameset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

var (
	ErrNoInput            = errors.New("input directory does not exist")
	ErrFrameCountMismatch = errors.New("inconsistent number of frames")
	ErrTooFewFrames       = errors.New("not enough frames for one sequence")
	ErrTestSequenceRange  = errors.New("test sequence index out of range")
	ErrNoResolutions      = errors.New("no resolutions to package")
)

// DefaultSourceDigits is the zero padding of rendered frame file names.
const DefaultSourceDigits = 4

// Resolution is one subdirectory of rendered frames.
type Resolution struct {
	Name   string // directory name, used as the archive group name
	Dir    string
	Frames int // number of *.exr files
}

// Discover lists the subdirectories of dir, sorted by name, that are not in
// skip, and counts their frames.
func Discover(dir string, skip []string) ([]Resolution, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoInput, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoInput, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Resolution
	for _, e := range entries {
		if !e.IsDir() || slices.Contains(skip, e.Name()) {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		n, err := CountFrames(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, Resolution{Name: e.Name(), Dir: sub, Frames: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountFrames returns the number of *.exr files directly inside dir.
func CountFrames(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.exr"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// CheckCounts verifies every resolution has the frame count of the first
// and returns that count.
func CheckCounts(resolutions []Resolution) (int, error) {
	if len(resolutions) == 0 {
		return 0, ErrNoResolutions
	}
	n := resolutions[0].Frames
	for _, r := range resolutions[1:] {
		if r.Frames != n {
			return 0, fmt.Errorf("%w: resolution %s has %d frames, %s has %d",
				ErrFrameCountMismatch, r.Name, r.Frames, resolutions[0].Name, n)
		}
	}
	return n, nil
}

// SequenceName formats a sequence group name, e.g. seq-007.
func SequenceName(index, digits int) string {
	return fmt.Sprintf("seq-%0*d", digits, index)
}

// FrameName formats a frame group name, e.g. frame-042.
func FrameName(index, digits int) string {
	return fmt.Sprintf("frame-%0*d", digits, index)
}

// FrameFile returns the path of the rendered frame with the given 1-based
// global index.
func FrameFile(dir string, index, digits int) string {
	return filepath.Join(dir, fmt.Sprintf("frame-%0*d.exr", digits, index))
}
