package sink

import (
	"bytes"
	"context"
	goerrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
)

var small = wasmmatrix.Grid{Width: 4, Height: 3}

func testFrame(n uint64) Frame {
	px := make([]colorspace.RGB, small.Pixels())
	for i := range px {
		px[i] = colorspace.RGB{R: uint8(i), G: uint8(n), B: uint8(255 - i)}
	}
	return Frame{Number: n, Ticks: n * 4, Brightness: 100, Pixels: px}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := &Recorder{}

	f := testFrame(1)
	if err := r.Write(ctx, f); err != nil {
		t.Fatal(err)
	}
	f.Pixels[0] = colorspace.White

	last, ok := r.Last()
	if !ok {
		t.Fatal("no frame recorded")
	}
	if last.Pixels[0] == colorspace.White {
		t.Error("recorder retained the caller's pixel slice")
	}
	if len(r.Frames()) != 1 {
		t.Errorf("Frames = %d", len(r.Frames()))
	}
	_ = r.Close()
	if !r.Closed() {
		t.Error("Closed should be true")
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, Frame) error { return io.ErrClosedPipe }
func (failingSink) Close() error                       { return io.ErrClosedPipe }

func TestMulti(t *testing.T) {
	ctx := context.Background()
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b}
	if err := m.Write(ctx, testFrame(1)); err != nil {
		t.Fatal(err)
	}
	if len(a.Frames()) != 1 || len(b.Frames()) != 1 {
		t.Error("frame not fanned out")
	}

	c := &Recorder{}
	bad := Multi{&failingSink{}, c}
	if err := bad.Write(ctx, testFrame(2)); !goerrors.Is(err, io.ErrClosedPipe) {
		t.Errorf("err = %v", err)
	}
	if len(c.Frames()) != 0 {
		t.Error("write continued past a failing sink")
	}
	if err := bad.Close(); !goerrors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Close err = %v", err)
	}
	if !c.Closed() {
		t.Error("Close should reach every sink")
	}
}

func TestNull(t *testing.T) {
	var s Sink = Null{}
	if err := s.Write(context.Background(), testFrame(0)); err != nil {
		t.Error(err)
	}
}

func TestWire(t *testing.T) {
	tests := []struct {
		name   string
		order  ChannelOrder
		gamma  bool
		bright uint8
		want   []byte
	}{
		{"grb full", OrderGRB, false, 255, []byte{20, 10, 30}},
		{"rgb full", OrderRGB, false, 255, []byte{10, 20, 30}},
		{"default order", "", false, 255, []byte{20, 10, 30}},
		{"off", OrderRGB, false, 0, []byte{0, 0, 0}},
		{"gamma", OrderRGB, true, 255, []byte{0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWire(&buf, tt.order, tt.gamma)
			if err != nil {
				t.Fatal(err)
			}
			f := Frame{Brightness: tt.bright, Pixels: []colorspace.RGB{{R: 10, G: 20, B: 30}}}
			if err := w.Write(context.Background(), f); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(buf.Bytes(), tt.want) {
				t.Errorf("wire bytes = %v, want %v", buf.Bytes(), tt.want)
			}
		})
	}

	if _, err := NewWire(io.Discard, "bgr", false); err == nil {
		t.Error("unknown order accepted")
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term, err := NewTerminal(&buf, small, WithStatusLine())
	if err != nil {
		t.Fatal(err)
	}
	if !term.Fits() {
		t.Error("non-terminal writer should always fit")
	}
	if err := term.Write(context.Background(), testFrame(7)); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if strings.Contains(out, cursorHome) {
		t.Error("cursor control written to a non-terminal")
	}
	// 3 rows render as 2 text rows, then the status line.
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	if n := strings.Count(lines[0], upperHalf); n != small.Width {
		t.Errorf("first row has %d cells, want %d", n, small.Width)
	}
	if lines[2] != "frame 7  ticks 28" {
		t.Errorf("status = %q", lines[2])
	}

	if err := term.Write(context.Background(), Frame{Pixels: make([]colorspace.RGB, 2)}); err == nil {
		t.Error("short frame accepted")
	}
}

func TestRender_TrueColor(t *testing.T) {
	r := lipgloss.NewRenderer(io.Discard)
	term := &Terminal{renderer: r}
	WithTrueColor()(term)

	grid := wasmmatrix.Grid{Width: 1, Height: 2}
	out := Render(r, grid, []colorspace.RGB{colorspace.Red, colorspace.Blue}, 255)
	if !strings.Contains(out, "38;2;") || !strings.Contains(out, "48;2;") {
		t.Errorf("expected 24-bit foreground and background codes, got %q", out)
	}
}

func TestHex(t *testing.T) {
	tests := []struct {
		c    colorspace.RGB
		want string
	}{
		{colorspace.Black, "#000000"},
		{colorspace.White, "#ffffff"},
		{colorspace.Yellow, "#c8c800"},
		{colorspace.RGB{R: 1, G: 2, B: 3}, "#010203"},
	}
	for _, tt := range tests {
		if got := Hex(tt.c); got != tt.want {
			t.Errorf("Hex(%v) = %s, want %s", tt.c, got, tt.want)
		}
	}
}

func TestCaptureReplay(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	c, err := NewCapture(&buf, small, 256)
	if err != nil {
		t.Fatal(err)
	}
	for n := uint64(0); n < 3; n++ {
		if err := c.Write(ctx, testFrame(n)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReplay(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if r.Grid() != small || r.TicksPerSecond() != 256 {
		t.Errorf("header = %v @ %d", r.Grid(), r.TicksPerSecond())
	}
	for n := uint64(0); n < 3; n++ {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
		want := testFrame(n)
		if got.Number != want.Number || got.Ticks != want.Ticks || got.Brightness != want.Brightness {
			t.Errorf("frame %d metadata = %+v", n, got)
		}
		for i := range want.Pixels {
			if got.Pixels[i] != want.Pixels[i] {
				t.Fatalf("frame %d pixel %d = %v, want %v", n, i, got.Pixels[i], want.Pixels[i])
			}
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCapture_RejectsWrongSize(t *testing.T) {
	c, err := NewCapture(io.Discard, small, 256)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Write(context.Background(), Frame{Pixels: make([]colorspace.RGB, 3)}); err == nil {
		t.Error("expected error")
	}
}

func TestOpenReplay_BadHeader(t *testing.T) {
	if _, err := OpenReplay(strings.NewReader("")); err == nil {
		t.Error("empty stream accepted")
	}

	var buf bytes.Buffer
	_ = captureEncMode.NewEncoder(&buf).Encode(captureHeader{Version: 99, Width: 1, Height: 1})
	if _, err := OpenReplay(&buf); err == nil {
		t.Error("unknown version accepted")
	}
}
