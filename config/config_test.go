package config

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.GridSize() != wasmmatrix.DefaultGrid {
		t.Errorf("grid = %v", cfg.GridSize())
	}
	if cfg.Timing.TicksPerSecond != 256 || cfg.Timing.TargetFPS != 60 {
		t.Errorf("timing = %+v", cfg.Timing)
	}
	if cfg.Timing.Yield.Duration != time.Millisecond {
		t.Errorf("yield = %v", cfg.Timing.Yield)
	}
	if cfg.Output.Brightness != 100 {
		t.Errorf("brightness = %d", cfg.Output.Brightness)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[module]
path = "guest.wasm"
memory-limit-pages = 64

[grid]
width = 32
height = 8

[timing]
ticks-per-second = 1000
yield = "5ms"

[output]
kind = "wire"
device = "/dev/ttyUSB0"
brightness = 40

[log]
level = "debug"
development = true
`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Module.Path != "guest.wasm" || cfg.Module.MemoryLimitPages != 64 {
		t.Errorf("module = %+v", cfg.Module)
	}
	if cfg.GridSize() != (wasmmatrix.Grid{Width: 32, Height: 8}) {
		t.Errorf("grid = %v", cfg.GridSize())
	}
	if cfg.Timing.TicksPerSecond != 1000 {
		t.Errorf("tps = %d", cfg.Timing.TicksPerSecond)
	}
	if cfg.Timing.TargetFPS != 60 {
		t.Errorf("unset target-fps should keep its default, got %d", cfg.Timing.TargetFPS)
	}
	if cfg.Timing.Yield.Duration != 5*time.Millisecond {
		t.Errorf("yield = %v", cfg.Timing.Yield)
	}
	if cfg.Output.Kind != OutputWire || cfg.Output.Brightness != 40 || !cfg.Output.Gamma {
		t.Errorf("output = %+v", cfg.Output)
	}

	log, err := cfg.BuildLogger()
	if err != nil {
		t.Fatal(err)
	}
	if !log.Core().Enabled(-1) {
		t.Error("debug level not enabled")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
		kind errors.Kind
	}{
		{"syntax", `[grid`, errors.KindInvalidData},
		{"unknown key", "[grid]\ndepth = 3", errors.KindInvalidData},
		{"bad duration", "[timing]\nyield = \"soon\"", errors.KindInvalidData},
		{"zero width", "[grid]\nwidth = 0", errors.KindInvalidInput},
		{"zero tps", "[timing]\nticks-per-second = 0", errors.KindInvalidInput},
		{"zero fps", "[timing]\ntarget-fps = 0", errors.KindInvalidInput},
		{"negative yield", "[timing]\nyield = \"-1ms\"", errors.KindInvalidInput},
		{"unknown output", "[output]\nkind = \"laser\"", errors.KindInvalidInput},
		{"wire without device", "[output]\nkind = \"wire\"", errors.KindInvalidInput},
		{"bad order", "[output]\norder = \"bgr\"", errors.KindInvalidInput},
		{"bad level", "[log]\nlevel = \"loud\"", errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: tt.kind}) {
				t.Errorf("err = %v, want config/%s", err, tt.kind)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[module]\npath = \"guests/demo.wasm\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "guests", "demo.wasm"); cfg.ModulePath() != want {
		t.Errorf("ModulePath = %q, want %q", cfg.ModulePath(), want)
	}

	cfg.Module.Path = "/abs/guest.wasm"
	if cfg.ModulePath() != "/abs/guest.wasm" {
		t.Errorf("absolute path rewritten to %q", cfg.ModulePath())
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindIO}) {
		t.Errorf("err = %v", err)
	}
}
