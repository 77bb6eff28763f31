// Package config loads the renderer settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/oliverbestmann/stereorizer/stereo"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Window  Window  `yaml:"window"`
	Stereo  Stereo  `yaml:"stereo"`
	XR      XR      `yaml:"xr"`
	Shaders Shaders `yaml:"shaders"`
	Log     Log     `yaml:"log"`
	Profile Profile `yaml:"profile"`
}

type Window struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type Stereo struct {
	IPD  float32 `yaml:"ipd"`
	Near float32 `yaml:"near"`
	Far  float32 `yaml:"far"`

	// vertical field of view of the desktop cameras in degrees
	Fov float32 `yaml:"fov"`

	LeftMode  stereo.DisplayMode `yaml:"leftMode"`
	RightMode stereo.DisplayMode `yaml:"rightMode"`

	// 0 renders as fast as possible
	TargetFPS int `yaml:"targetFPS"`
}

type XR struct {
	Enabled         bool     `yaml:"enabled"`
	ApplicationName string   `yaml:"applicationName"`
	Extensions      []string `yaml:"extensions"`
}

type Shaders struct {
	// Directory overrides the embedded shaders. Shaders loaded from disk are
	// reloaded when they change.
	Directory string `yaml:"directory"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Profile struct {
	CPU    bool `yaml:"cpu"`
	Memory bool `yaml:"memory"`
}

func Default() Config {
	return Config{
		Window: Window{
			Width:  1920,
			Height: 1080,
			Title:  "stereorizer",
			VSync:  false,
		},

		Stereo: Stereo{
			IPD:       0.064,
			Near:      0.1,
			Far:       100,
			Fov:       45,
			LeftMode:  stereo.DisplayColor,
			RightMode: stereo.DisplayColor,
			TargetFPS: 90,
		},

		XR: XR{
			Enabled:         false,
			ApplicationName: "stereorizer",
		},

		Log: Log{Level: "info"},
	}
}

// Parse reads a config from r. Values missing in the document keep their
// defaults, unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	config := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	config, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("load %q: %w", path, err)
	}

	slog.Info("Loaded config", slog.String("path", path))

	return config, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("%w: window size must not be zero", ErrInvalid))
	}

	if c.Stereo.Near <= 0 {
		errs = append(errs, fmt.Errorf("%w: near plane must be positive", ErrInvalid))
	}

	if c.Stereo.Far <= c.Stereo.Near {
		errs = append(errs, fmt.Errorf("%w: far plane must be beyond near plane", ErrInvalid))
	}

	if c.Stereo.IPD < 0 {
		errs = append(errs, fmt.Errorf("%w: ipd must not be negative", ErrInvalid))
	}

	if c.Stereo.Fov <= 0 || c.Stereo.Fov >= 180 {
		errs = append(errs, fmt.Errorf("%w: fov must be within (0, 180)", ErrInvalid))
	}

	if !c.Stereo.LeftMode.AllowedFor(stereo.EyeLeft) {
		errs = append(errs, fmt.Errorf("%w: left eye cannot use %s mode", ErrInvalid, c.Stereo.LeftMode))
	}

	if fps := c.Stereo.TargetFPS; fps != 0 && (fps < 5 || fps > 240) {
		errs = append(errs, fmt.Errorf("%w: target fps must be 0 or within [5, 240]", ErrInvalid))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the configured log level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}

	return level, nil
}
