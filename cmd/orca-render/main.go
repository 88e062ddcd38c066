// Command orca-render renders a Blender scene to multi-layer EXR frames
// with the passes orca-package expects.
//
// Usage:
//
//	orca-render SCENE -o DIR [-l] [-s 1024] [-b] [-fs N] [-fe N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ndming/orca-blender/internal/cli"
	"github.com/ndming/orca-blender/internal/config"
	"github.com/ndming/orca-blender/internal/logging"
	"github.com/ndming/orca-blender/internal/render"
	"github.com/ndming/orca-blender/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

var configKeys = map[string]string{
	"l":           "render.low_res",
	"low-res":     "render.low_res",
	"s":           "render.samples",
	"samples":     "render.samples",
	"b":           "render.motion_blur",
	"motion-blur": "render.motion_blur",
	"device":      "render.device",
	"camera":      "render.camera",
	"view-layer":  "render.view_layer",
	"blender":     "render.blender",
	"log-level":   "log.level",
	"json-log":    "log.json",
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("orca-render", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		outDir      string
		frameStart  int
		frameEnd    int
		scriptOut   string
		configFile  string
		showVersion bool
		r           = defaults.Render
	)
	fs.StringVar(&outDir, "o", "", "path to the output folder")
	fs.StringVar(&outDir, "out-dir", "", "alias for -o")
	fs.BoolVar(&r.LowRes, "l", r.LowRes, "render at low resolution (400x225)")
	fs.BoolVar(&r.LowRes, "low-res", r.LowRes, "alias for -l")
	fs.IntVar(&r.Samples, "s", r.Samples, "per-pixel sample count")
	fs.IntVar(&r.Samples, "samples", r.Samples, "alias for -s")
	fs.BoolVar(&r.MotionBlur, "b", r.MotionBlur, "render with motion blur")
	fs.BoolVar(&r.MotionBlur, "motion-blur", r.MotionBlur, "alias for -b")
	fs.IntVar(&frameStart, "fs", 0, "first frame to render (0 = scene start)")
	fs.IntVar(&frameStart, "frame-start", 0, "alias for -fs")
	fs.IntVar(&frameEnd, "fe", 0, "last frame to render (0 = scene end)")
	fs.IntVar(&frameEnd, "frame-end", 0, "alias for -fe")
	fs.StringVar(&r.Device, "device", r.Device, "Cycles compute device type")
	fs.StringVar(&r.Camera, "camera", r.Camera, "camera object name")
	fs.StringVar(&r.ViewLayer, "view-layer", r.ViewLayer, "view layer to configure")
	fs.StringVar(&r.Blender, "blender", r.Blender, "Blender executable")
	fs.StringVar(&scriptOut, "script-out", "", "write the generated driver script to this file and exit ('-' for stdout)")
	fs.StringVar(&configFile, "config", "", "YAML config file")
	fs.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	fs.Bool("json-log", defaults.Log.JSON, "log as JSON")
	fs.BoolVar(&showVersion, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: orca-render SCENE -o DIR [flags]")
		fs.PrintDefaults()
	}

	positional, err := cli.Parse(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if showVersion {
		fmt.Fprintln(stderr, "orca-render", version.String())
		return nil
	}

	cfg, err := config.Load(configFile, fs, configKeys)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return err
	}
	defer logging.Sync(log)

	if len(positional) != 1 {
		fs.Usage()
		return usageError(log, fmt.Errorf("expected one scene file, got %d arguments", len(positional)))
	}
	opts := render.Options{
		Scene:      positional[0],
		OutputDir:  outDir,
		LowRes:     cfg.Render.LowRes,
		Samples:    cfg.Render.Samples,
		MotionBlur: cfg.Render.MotionBlur,
		BlurSteps:  cfg.Render.BlurSteps,
		FrameStart: frameStart,
		FrameEnd:   frameEnd,
		Device:     cfg.Render.Device,
		Camera:     cfg.Render.Camera,
		ViewLayer:  cfg.Render.ViewLayer,
		Blender:    cfg.Render.Blender,
	}
	if err := opts.Validate(); err != nil {
		return usageError(log, err)
	}

	if scriptOut != "" {
		return writeScript(log, opts, scriptOut, stdout)
	}

	runner := &render.Runner{Log: log}
	if err := runner.Run(ctx, opts); err != nil {
		log.Error("render failed", zap.Error(err))
		return err
	}
	return nil
}

func writeScript(log *zap.Logger, opts render.Options, path string, stdout io.Writer) error {
	script, err := render.Script(opts)
	if err != nil {
		log.Error("generating script", zap.Error(err))
		return err
	}
	if path == "-" {
		_, err = stdout.Write(script)
		return err
	}
	if err := os.WriteFile(path, script, 0o644); err != nil {
		log.Error("writing script", zap.Error(err))
		return err
	}
	log.Info("wrote driver script", zap.String("path", path))
	return nil
}

func usageError(log *zap.Logger, err error) error {
	log.Error("invalid arguments", zap.Error(err))
	return err
}
