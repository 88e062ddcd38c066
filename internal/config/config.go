// Package config loads tool settings from defaults, an optional YAML file,
// ORCA_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings of both tools.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Package PackageConfig `mapstructure:"package" yaml:"package"`
	Render  RenderConfig  `mapstructure:"render" yaml:"render"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

type PackageConfig struct {
	FramesPerSequence   int    `mapstructure:"frames_per_sequence" yaml:"frames_per_sequence"`
	FrameIndexDigits    int    `mapstructure:"frame_index_digits" yaml:"frame_index_digits"`
	SequenceIndexDigits int    `mapstructure:"sequence_index_digits" yaml:"sequence_index_digits"`
	SourceDigits        int    `mapstructure:"source_digits" yaml:"source_digits"`
	ViewLayer           string `mapstructure:"view_layer" yaml:"view_layer"`
	Compression         int    `mapstructure:"compression" yaml:"compression"`
	Shuffle             bool   `mapstructure:"shuffle" yaml:"shuffle"`
	Fletcher32          bool   `mapstructure:"fletcher32" yaml:"fletcher32"`
}

type RenderConfig struct {
	Samples    int    `mapstructure:"samples" yaml:"samples"`
	Device     string `mapstructure:"device" yaml:"device"`
	Camera     string `mapstructure:"camera" yaml:"camera"`
	ViewLayer  string `mapstructure:"view_layer" yaml:"view_layer"`
	Blender    string `mapstructure:"blender" yaml:"blender"`
	BlurSteps  int    `mapstructure:"motion_blur_steps" yaml:"motion_blur_steps"`
	LowRes     bool   `mapstructure:"low_res" yaml:"low_res"`
	MotionBlur bool   `mapstructure:"motion_blur" yaml:"motion_blur"`
}

// EnvPrefix prefixes environment overrides, e.g. ORCA_RENDER_SAMPLES.
const EnvPrefix = "ORCA"

// Load reads path (skipped when empty) over the defaults. Flags of fs named
// in keys override the file when they were set on the command line; keys
// maps flag names to config keys such as "package.frames_per_sequence".
func Load(path string, fs *flag.FlagSet, keys map[string]string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if fs != nil {
		if err := bindFlags(v, fs, keys); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in settings.
func Default() *Config {
	cfg, err := Load("", nil, nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("package.frames_per_sequence", 100)
	v.SetDefault("package.frame_index_digits", 3)
	v.SetDefault("package.sequence_index_digits", 3)
	v.SetDefault("package.source_digits", 4)
	v.SetDefault("package.view_layer", "ViewLayer")
	v.SetDefault("package.compression", 0)
	v.SetDefault("package.shuffle", false)
	v.SetDefault("package.fletcher32", false)

	v.SetDefault("render.samples", 1024)
	v.SetDefault("render.device", "OPTIX")
	v.SetDefault("render.camera", "Camera")
	v.SetDefault("render.view_layer", "ViewLayer")
	v.SetDefault("render.blender", "blender")
	v.SetDefault("render.motion_blur_steps", 16)
	v.SetDefault("render.low_res", false)
	v.SetDefault("render.motion_blur", false)
}
