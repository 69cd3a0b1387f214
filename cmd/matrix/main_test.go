package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-matrix/animation"
	"github.com/wippyai/wasm-matrix/colorspace"
	"github.com/wippyai/wasm-matrix/config"
	"github.com/wippyai/wasm-matrix/render"
	"github.com/wippyai/wasm-matrix/sink"
)

func TestParseTicks(t *testing.T) {
	got, err := parseTicks("48, 32,16")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 48 || got[1] != 32 || got[2] != 16 {
		t.Errorf("parseTicks = %v", got)
	}
	if _, err := parseTicks("48,x"); err == nil {
		t.Error("expected error for non-numeric tick")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg, err := applyFlags(config.Default(), options{
		wasmFile:   "demo.wasm",
		output:     config.OutputNull,
		brightness: 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ModulePath() != "demo.wasm" || cfg.Output.Kind != config.OutputNull || cfg.Output.Brightness != 0 {
		t.Errorf("flags not applied: %+v %+v", cfg.Module, cfg.Output)
	}

	if _, err := applyFlags(config.Default(), options{brightness: 300}); err == nil {
		t.Error("brightness 300 accepted")
	}
	if _, err := applyFlags(config.Default(), options{brightness: -1, output: "laser"}); err == nil {
		t.Error("unknown output accepted")
	}
}

func TestViewer(t *testing.T) {
	cfg := config.Default()
	grid := cfg.GridSize()
	src := render.NewNativeSource(grid, animation.DefaultTimeline(grid, animation.DefaultTimebase))

	m, err := newViewerModel(context.Background(), cfg, src, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if !m.clock.Paused() {
		t.Fatal("space should pause")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if s := m.loop.Stats(); s.Frames != 2 {
		t.Errorf("frames after two steps = %d, want 2", s.Frames)
	}
	if !m.view.valid || len(m.view.last.Pixels) != grid.Pixels() {
		t.Error("viewer sink holds no frame")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	if m.clock.Rate() != 2 {
		t.Errorf("rate = %g, want 2", m.clock.Rate())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	if m.brightness != 100-16 {
		t.Errorf("brightness = %d", m.brightness)
	}

	if m.View() == "" {
		t.Error("empty view")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}
}

func TestOpenSink_WireAndCaptureCloseCleanly(t *testing.T) {
	dir := t.TempDir()
	device := filepath.Join(dir, "strip")
	if err := os.WriteFile(device, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Output.Kind = config.OutputWire
	cfg.Output.Device = device
	cfg.Output.CapturePath = filepath.Join(dir, "run.capture")
	cfg.Output.Gamma = false
	cfg.Output.Brightness = 255

	out, err := openSink(cfg, options{})
	if err != nil {
		t.Fatal(err)
	}
	px := make([]colorspace.RGB, cfg.GridSize().Pixels())
	px[0] = colorspace.RGB{R: 255}
	if err := out.Write(context.Background(), sink.Frame{Pixels: px, Brightness: 255}); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close = %v, want nil", err)
	}

	raw, err := os.ReadFile(device)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != cfg.GridSize().BufferSize() {
		t.Fatalf("wire wrote %d bytes", len(raw))
	}
	if raw[0] != 0 || raw[1] != 255 || raw[2] != 0 {
		t.Errorf("wire bytes = %v, want grb red first", raw[:3])
	}

	f, err := os.Open(cfg.Output.CapturePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rp, err := sink.OpenReplay(f)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := rp.Next()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Pixels[0] != (colorspace.RGB{R: 255}) {
		t.Errorf("captured pixel = %v", frame.Pixels[0])
	}
}
