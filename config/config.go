// Package config handles matrix.toml host configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
)

// FileName is the conventional config file name.
const FileName = "matrix.toml"

// Output kinds.
const (
	OutputTerminal = "terminal"
	OutputWire     = "wire"
	OutputNull     = "null"
)

// Config represents a matrix.toml file.
type Config struct {
	Module ModuleConfig `toml:"module"`
	Grid   GridConfig   `toml:"grid"`
	Timing TimingConfig `toml:"timing"`
	Output OutputConfig `toml:"output"`
	Log    LogConfig    `toml:"log"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// ModuleConfig selects the guest and its memory budget.
type ModuleConfig struct {
	Path             string `toml:"path"`
	MemoryLimitPages uint32 `toml:"memory-limit-pages"`
	ReservePages     uint32 `toml:"reserve-pages"`
}

// GridConfig is the logical matrix size.
type GridConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// TimingConfig is the time base.
type TimingConfig struct {
	TicksPerSecond uint64   `toml:"ticks-per-second"`
	TargetFPS      uint64   `toml:"target-fps"`
	Yield          Duration `toml:"yield"`
}

// OutputConfig selects and tunes the sink.
type OutputConfig struct {
	Kind        string `toml:"kind"`
	Device      string `toml:"device"`
	Order       string `toml:"order"`
	CapturePath string `toml:"capture-path"`
	Brightness  uint8  `toml:"brightness"`
	Gamma       bool   `toml:"gamma"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Duration is a time.Duration written as a Go duration string ("1ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the reference configuration: a 16x16 grid at 256 ticks
// per second, 60 fps animation, brightness 100 and a 1ms yield.
func Default() *Config {
	return &Config{
		Grid:   GridConfig{Width: 16, Height: 16},
		Timing: TimingConfig{TicksPerSecond: 256, TargetFPS: 60, Yield: Duration{time.Millisecond}},
		Output: OutputConfig{Kind: OutputTerminal, Order: "grb", Brightness: 100, Gamma: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load parses path on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "cannot read "+path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "cannot resolve "+path)
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse error")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Value(undecoded[0].String()).
			Detail("unknown key %q", undecoded[0].String()).
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if err := c.GridSize().Validate(); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "grid")
	}
	if c.Timing.TicksPerSecond == 0 {
		return errors.InvalidInput(errors.PhaseConfig, "timing.ticks-per-second must be positive")
	}
	if c.Timing.TargetFPS == 0 {
		return errors.InvalidInput(errors.PhaseConfig, "timing.target-fps must be positive")
	}
	if c.Timing.Yield.Duration < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "timing.yield must not be negative")
	}
	switch c.Output.Kind {
	case OutputTerminal, OutputNull:
	case OutputWire:
		if c.Output.Device == "" {
			return errors.InvalidInput(errors.PhaseConfig, "output.device is required for wire output")
		}
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown output.kind %q", c.Output.Kind))
	}
	switch c.Output.Order {
	case "", "rgb", "grb":
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown output.order %q", c.Output.Order))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	return nil
}

// GridSize returns the configured grid.
func (c *Config) GridSize() wasmmatrix.Grid {
	return wasmmatrix.Grid{Width: c.Grid.Width, Height: c.Grid.Height}
}

// ModulePath resolves the guest path relative to the config file.
func (c *Config) ModulePath() string {
	if c.Module.Path == "" || filepath.IsAbs(c.Module.Path) || c.Dir == "" {
		return c.Module.Path
	}
	return filepath.Join(c.Dir, c.Module.Path)
}

// BuildLogger creates the process logger described by the log section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
