// Command orca-package packages rendered EXR frame sequences into a single
// HDF5 archive of train and test data.
//
// Usage:
//
//	orca-package DIR -o OUT -t IDX [IDX...] [-a|-w] [-fps 100] [-fd 3] [-sd 3]
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
	"github.com/ndming/orca-blender/internal/packager"
	"github.com/ndming/orca-blender/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

// configKeys maps flags to the config file keys they override.
var configKeys = map[string]string{
	"fps":                   "package.frames_per_sequence",
	"frames-per-sequence":   "package.frames_per_sequence",
	"fd":                    "package.frame_index_digits",
	"frame-index-digits":    "package.frame_index_digits",
	"sd":                    "package.sequence_index_digits",
	"sequence-index-digits": "package.sequence_index_digits",
	"source-digits":         "package.source_digits",
	"view-layer":            "package.view_layer",
	"compression":           "package.compression",
	"shuffle":               "package.shuffle",
	"fletcher32":            "package.fletcher32",
	"log-level":             "log.level",
	"json-log":              "log.json",
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("orca-package", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		output      string
		tests       cli.IntList
		appendMode  bool
		overwrite   bool
		configFile  string
		showVersion bool
		p           = defaults.Package
	)
	fs.StringVar(&output, "o", "", "path to the output HDF5 file")
	fs.StringVar(&output, "output", "", "alias for -o")
	fs.Var(&tests, "t", "test sequence indices (zero-based); repeatable, comma or space separated")
	fs.Var(&tests, "test-sequences", "alias for -t")
	fs.BoolVar(&appendMode, "a", false, "append resolutions missing from the output archive")
	fs.BoolVar(&appendMode, "append", false, "alias for -a")
	fs.BoolVar(&overwrite, "w", false, "overwrite the output archive if it exists")
	fs.BoolVar(&overwrite, "overwrite", false, "alias for -w")
	fs.IntVar(&p.FramesPerSequence, "fps", p.FramesPerSequence, "number of frames per sequence")
	fs.IntVar(&p.FramesPerSequence, "frames-per-sequence", p.FramesPerSequence, "alias for -fps")
	fs.IntVar(&p.FrameIndexDigits, "fd", p.FrameIndexDigits, "number of digits in frame group names")
	fs.IntVar(&p.FrameIndexDigits, "frame-index-digits", p.FrameIndexDigits, "alias for -fd")
	fs.IntVar(&p.SequenceIndexDigits, "sd", p.SequenceIndexDigits, "number of digits in sequence group names")
	fs.IntVar(&p.SequenceIndexDigits, "sequence-index-digits", p.SequenceIndexDigits, "alias for -sd")
	fs.IntVar(&p.SourceDigits, "source-digits", p.SourceDigits, "number of digits in rendered frame file names")
	fs.StringVar(&p.ViewLayer, "view-layer", p.ViewLayer, "EXR view layer prefix of the passes")
	fs.IntVar(&p.Compression, "compression", p.Compression, "deflate level for datasets, 0-9 (0 = none)")
	fs.BoolVar(&p.Shuffle, "shuffle", p.Shuffle, "apply the shuffle filter before compression")
	fs.BoolVar(&p.Fletcher32, "fletcher32", p.Fletcher32, "store Fletcher-32 checksums")
	fs.StringVar(&configFile, "config", "", "YAML config file")
	fs.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	fs.Bool("json-log", defaults.Log.JSON, "log as JSON")
	fs.BoolVar(&showVersion, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: orca-package DIR -o OUT -t IDX [IDX...] [flags]")
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
		fmt.Fprintln(stderr, "orca-package", version.String())
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

	// Numbers after the input directory continue a -t list ("-t 1 2 3").
	if len(positional) == 0 {
		fs.Usage()
		return usageError(log, errors.New("missing input directory"))
	}
	for _, extra := range positional[1:] {
		more, err := cli.ParseIntList(extra)
		if err != nil {
			return usageError(log, fmt.Errorf("unexpected argument %q", extra))
		}
		tests = append(tests, more...)
	}
	mode, err := packager.ModeFromFlags(appendMode, overwrite)
	if err != nil {
		return usageError(log, err)
	}

	opts := packager.Options{
		InputDir:            positional[0],
		Output:              output,
		TestSequences:       tests,
		Mode:                mode,
		FramesPerSequence:   cfg.Package.FramesPerSequence,
		SequenceIndexDigits: cfg.Package.SequenceIndexDigits,
		FrameIndexDigits:    cfg.Package.FrameIndexDigits,
		SourceDigits:        cfg.Package.SourceDigits,
		ViewLayer:           cfg.Package.ViewLayer,
		Compression:         cfg.Package.Compression,
		Shuffle:             cfg.Package.Shuffle,
		Fletcher32:          cfg.Package.Fletcher32,
	}
	if err := opts.Validate(); err != nil {
		return usageError(log, err)
	}

	log.Info("orca-package", zap.String("version", version.Version), zap.String("mode", mode.String()))
	res, err := packager.New(opts, log).Run(ctx)
	if err != nil {
		log.Error("packaging failed", zap.Error(err))
		return err
	}
	log.Info("done",
		zap.String("output", opts.Output),
		zap.Strings("packaged", res.Packaged),
		zap.Int("sequences", res.Sequences))
	return nil
}

func usageError(log *zap.Logger, err error) error {
	log.Error("invalid arguments", zap.Error(err))
	return err
}
