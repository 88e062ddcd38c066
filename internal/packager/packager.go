// Package packager turns directories of rendered EXR frames into a single
// HDF5 archive of train and test sequences.
//
// Archive layout:
//
//	/                          total-frames, frames-per-sequence, ...
//	/<resolution>              frame-width, frame-height
//	/<resolution>/train|test
//	/<resolution>/train/seq-000/frame-000/{combined, normal, ...}
package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ndming/orca-blender/exr"
	"github.com/ndming/orca-blender/hdf5"
	"github.com/ndming/orca-blender/internal/frameset"
)

var (
	ErrOutputExists    = errors.New("output file already exists")
	ErrArchiveMismatch = errors.New("archive was packaged with different settings")
)

// Root and resolution attribute names.
const (
	AttrTotalFrames         = "total-frames"
	AttrFramesPerSequence   = "frames-per-sequence"
	AttrSequenceIndexDigits = "sequence-index-digits"
	AttrFrameIndexDigits    = "frame-index-digits"
	AttrTestSequences       = "test-sequences"
	AttrTrainSequences      = "train-sequences"
	AttrFrameWidth          = "frame-width"
	AttrFrameHeight         = "frame-height"
)

// Result summarizes a run.
type Result struct {
	Existing  []string // resolutions already in the archive (append mode)
	Packaged  []string
	Sequences int // per resolution
	Frames    int // total-frames attribute
}

// Packager builds archives.
type Packager struct {
	opts Options
	log  *zap.Logger
}

// New returns a Packager. A nil logger discards output.
func New(opts Options, log *zap.Logger) *Packager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Packager{opts: opts, log: log}
}

// Run packages every resolution under the input directory. The archive is
// closed on return, including on errors, so completed resolutions remain
// readable.
func (p *Packager) Run(ctx context.Context) (res *Result, err error) {
	o := p.opts
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(o.InputDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", frameset.ErrNoInput, o.InputDir)
		}
		return nil, err
	}

	exists, err := fileExists(o.Output)
	if err != nil {
		return nil, err
	}
	if exists && o.Mode == Refuse {
		return nil, fmt.Errorf("%w: %s (use append or overwrite)", ErrOutputExists, o.Output)
	}

	res = &Result{}
	var archive *hdf5.File
	if exists && o.Mode == Append {
		archive, err = hdf5.OpenReadWrite(o.Output)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		defer func() {
			if cerr := archive.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing archive: %w", cerr)
			}
		}()
		res.Existing, err = archive.Root().Members()
		if err != nil {
			return nil, fmt.Errorf("listing archive: %w", err)
		}
		p.log.Info("found existing resolutions", zap.String("archive", o.Output), zap.Strings("resolutions", res.Existing))
	}

	resolutions, err := frameset.Discover(o.InputDir, res.Existing)
	if err != nil {
		return nil, err
	}
	if len(resolutions) == 0 && o.Mode == Append && exists {
		p.log.Info("nothing to package, every resolution is already in the archive")
		return res, nil
	}
	names := make([]string, len(resolutions))
	for i, r := range resolutions {
		names[i] = r.Name
	}
	p.log.Info("packaging resolutions", zap.Strings("resolutions", names))

	frames, err := frameset.CheckCounts(resolutions)
	if err != nil {
		return nil, err
	}
	for _, r := range resolutions {
		p.log.Info("found frames", zap.String("resolution", r.Name), zap.Int("frames", r.Frames))
	}
	plan, err := frameset.NewPlan(frames, o.FramesPerSequence, o.TestSequences)
	if err != nil {
		return nil, err
	}
	p.log.Info("planned sequences",
		zap.Int("frames-per-sequence", plan.FramesPerSequence()),
		zap.Int("sequences", plan.Count()),
		zap.Ints("test", plan.TestIndices()))
	res.Sequences = plan.Count()
	res.Frames = frames

	if archive == nil {
		if err := os.MkdirAll(filepath.Dir(o.Output), 0o755); err != nil {
			return nil, err
		}
		archive, err = hdf5.Create(o.Output)
		if err != nil {
			return nil, fmt.Errorf("creating archive: %w", err)
		}
		defer func() {
			if cerr := archive.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing archive: %w", cerr)
			}
		}()
	} else if err := checkArchive(archive.Root(), frames, o.FramesPerSequence); err != nil {
		return nil, err
	}

	if err := p.writeRootAttrs(archive.Root(), frames, plan); err != nil {
		return nil, err
	}

	for _, r := range resolutions {
		if err := p.packageResolution(ctx, archive.Root(), r, plan); err != nil {
			return nil, fmt.Errorf("resolution %s: %w", r.Name, err)
		}
		if err := archive.Flush(); err != nil {
			return nil, err
		}
		res.Packaged = append(res.Packaged, r.Name)
	}
	return res, nil
}

// checkArchive verifies that an archive being appended to was built from
// the same number of frames and the same sequence length.
func checkArchive(root *hdf5.Group, frames, framesPerSequence int) error {
	for name, want := range map[string]int{
		AttrTotalFrames:       frames,
		AttrFramesPerSequence: framesPerSequence,
	} {
		a := root.Attr(name)
		if a == nil {
			continue
		}
		got, err := a.ReadScalarInt64()
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if got != int64(want) {
			return fmt.Errorf("%w: %s is %d, this run has %d", ErrArchiveMismatch, name, got, want)
		}
	}
	return nil
}

func (p *Packager) writeRootAttrs(root *hdf5.Group, frames int, plan *frameset.Plan) error {
	attrs := []struct {
		name  string
		value int
	}{
		{AttrTotalFrames, frames},
		{AttrFramesPerSequence, plan.FramesPerSequence()},
		{AttrSequenceIndexDigits, p.opts.SequenceIndexDigits},
		{AttrFrameIndexDigits, p.opts.FrameIndexDigits},
		{AttrTestSequences, plan.TestCount()},
		{AttrTrainSequences, plan.TrainCount()},
	}
	for _, a := range attrs {
		if err := root.SetAttr(a.name, int64(a.value)); err != nil {
			return fmt.Errorf("setting %s: %w", a.name, err)
		}
	}
	return nil
}

func (p *Packager) packageResolution(ctx context.Context, root *hdf5.Group, r frameset.Resolution, plan *frameset.Plan) error {
	log := p.log.With(zap.String("resolution", r.Name))
	log.Info("packaging resolution")

	group, err := root.CreateGroup(r.Name)
	if err != nil {
		return err
	}
	splits := make(map[frameset.Split]*hdf5.Group, 2)
	for _, s := range []frameset.Split{frameset.Train, frameset.Test} {
		if splits[s], err = group.CreateGroup(string(s)); err != nil {
			return err
		}
	}

	fw := &frameWriter{p: p, log: log}
	for _, seq := range plan.Sequences() {
		log.Info("assembling sequence", zap.Int("sequence", seq.Index), zap.String("split", string(seq.Split)))
		sg, err := splits[seq.Split].CreateGroup(frameset.SequenceName(seq.Slot, p.opts.SequenceIndexDigits))
		if err != nil {
			return err
		}
		for f := 0; f < plan.FramesPerSequence(); f++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := frameset.FrameFile(r.Dir, plan.FrameIndex(seq.Index, f), p.opts.SourceDigits)
			if err := fw.write(sg, frameset.FrameName(f, p.opts.FrameIndexDigits), src); err != nil {
				return err
			}
		}
	}

	if fw.width == 0 {
		return nil
	}
	if err := group.SetAttr(AttrFrameWidth, int64(fw.width)); err != nil {
		return err
	}
	return group.SetAttr(AttrFrameHeight, int64(fw.height))
}

// frameWriter copies frames of one resolution and remembers the dimensions
// of the first one.
type frameWriter struct {
	p             *Packager
	log           *zap.Logger
	width, height int
}

func (fw *frameWriter) write(sg *hdf5.Group, name, src string) error {
	img, err := exr.Open(src)
	if err != nil {
		return err
	}
	w, h := img.Dimensions()
	if fw.width == 0 {
		fw.width, fw.height = w, h
	} else if w != fw.width || h != fw.height {
		fw.log.Warn("inconsistent frame dimensions",
			zap.String("frame", filepath.Base(src)),
			zap.Int("width", w), zap.Int("height", h),
			zap.Int("expected-width", fw.width), zap.Int("expected-height", fw.height))
	}

	fg, err := sg.CreateGroup(name)
	if err != nil {
		return err
	}
	fw.log.Debug("writing frame", zap.String("frame", filepath.Base(src)), zap.String("group", fg.Path()))

	opts := fw.p.opts.datasetOptions()
	for _, l := range Layers {
		data, err := img.Layer(l.Prefix(fw.p.opts.ViewLayer), l.Channels...)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(src), err)
		}
		if _, err := fg.CreateFloat32(l.Dataset, l.Shape(w, h), data, opts...); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
