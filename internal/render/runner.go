// Package render drives Blender to produce the multi-layer EXR frames the
// packager consumes.
package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBlenderFailed is returned when the Blender process exits unsuccessfully.
var ErrBlenderFailed = errors.New("blender failed")

// Runner starts Blender.
type Runner struct {
	Log *zap.Logger

	// TempDir holds the generated script while Blender runs; empty means
	// os.TempDir.
	TempDir string
}

// Args returns the Blender command line for a script path. A Python
// exception in the script makes Blender exit with status 1.
func Args(script string) []string {
	return []string{"--background", "--factory-startup", "--python-exit-code", "1", "--python", script}
}

// Run validates opts, writes the driver script and the manifest, and runs
// Blender until it exits or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	script, err := Script(opts)
	if err != nil {
		return err
	}
	m, err := WriteManifest(opts.OutputDir, opts)
	if err != nil {
		return err
	}
	log = log.With(zap.String("run", m.Run))

	path := filepath.Join(r.TempDir, "orca-render-"+uuid.NewString()+".py")
	if r.TempDir == "" {
		path = filepath.Join(os.TempDir(), filepath.Base(path))
	}
	if err := os.WriteFile(path, script, 0o600); err != nil {
		return fmt.Errorf("writing driver script: %w", err)
	}
	defer os.Remove(path)

	w, h := opts.Resolution()
	log.Info("starting blender",
		zap.String("blender", opts.Blender),
		zap.String("scene", opts.Scene),
		zap.String("output", opts.OutputDir),
		zap.Int("width", w), zap.Int("height", h),
		zap.Int("samples", opts.Samples),
		zap.Bool("motion-blur", opts.MotionBlur))

	// Blender's stdout and stderr share one pipe so its messages keep
	// their order in the log.
	pr, pw, err := os.Pipe()
	if err != nil {
		return err
	}
	defer pr.Close()
	cmd := exec.CommandContext(ctx, opts.Blender, Args(path)...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	err = cmd.Start()
	pw.Close()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBlenderFailed, err)
	}

	stream(pr, log)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrBlenderFailed, err)
	}
	log.Info("blender finished")
	return nil
}

// stream logs r line by line until EOF.
func stream(r io.Reader, log *zap.Logger) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		log.Info(sc.Text(), zap.String("source", "blender"))
	}
	if err := sc.Err(); err != nil {
		log.Warn("reading blender output", zap.Error(err))
		_, _ = io.Copy(io.Discard, r)
	}
}
