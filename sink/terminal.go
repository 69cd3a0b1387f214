package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
	"github.com/wippyai/wasm-matrix/serpentine"
)

const (
	upperHalf  = "▀"
	cursorHome = "\x1b[H"
	clearEOS   = "\x1b[J"
)

// Terminal previews frames with coloured half blocks, two matrix rows per
// text row. On a TTY each frame redraws in place.
type Terminal struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	mapper   *serpentine.Mapper
	logical  []colorspace.RGB
	tty      bool
	status   bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithTrueColor forces 24-bit colour output regardless of detection.
func WithTrueColor() TerminalOption {
	return func(t *Terminal) { t.renderer.SetColorProfile(termenv.TrueColor) }
}

// WithStatusLine prints frame number and ticks under the matrix.
func WithStatusLine() TerminalOption {
	return func(t *Terminal) { t.status = true }
}

// NewTerminal creates a terminal preview for grid writing to w.
func NewTerminal(w io.Writer, grid wasmmatrix.Grid, opts ...TerminalOption) (*Terminal, error) {
	mapper, err := serpentine.NewMapper(grid)
	if err != nil {
		return nil, err
	}
	t := &Terminal{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		mapper:   mapper,
		logical:  make([]colorspace.RGB, grid.Pixels()),
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.tty = true
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Fits reports whether the attached terminal is large enough for the
// preview. Non-terminal writers always fit.
func (t *Terminal) Fits() bool {
	f, ok := t.w.(*os.File)
	if !ok || !t.tty {
		return true
	}
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return true
	}
	g := t.mapper.Grid()
	return cols >= g.Width && rows >= (g.Height+1)/2+1
}

func (t *Terminal) Write(_ context.Context, f Frame) error {
	if err := t.mapper.Unmap(f.Pixels, t.logical); err != nil {
		return err
	}
	var b strings.Builder
	if t.tty {
		b.WriteString(cursorHome)
	}
	b.WriteString(Render(t.renderer, t.mapper.Grid(), t.logical, f.Brightness))
	if t.status {
		fmt.Fprintf(&b, "\nframe %d  ticks %d", f.Number, f.Ticks)
	}
	b.WriteByte('\n')
	if t.tty {
		b.WriteString(clearEOS)
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *Terminal) Close() error {
	return nil
}

// Render draws logical (row-major) pixels as half blocks. Each text cell
// shows row y in the foreground and row y+1 in the background. Brightness
// scales the preview like the LEDs would.
func Render(r *lipgloss.Renderer, grid wasmmatrix.Grid, logical []colorspace.RGB, brightness uint8) string {
	var b strings.Builder
	for y := 0; y < grid.Height; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < grid.Width; x++ {
			top := colorspace.Brightness(logical[y*grid.Width+x], brightness)
			style := r.NewStyle().Foreground(lipgloss.Color(Hex(top)))
			if y+1 < grid.Height {
				bottom := colorspace.Brightness(logical[(y+1)*grid.Width+x], brightness)
				style = style.Background(lipgloss.Color(Hex(bottom)))
			}
			b.WriteString(style.Render(upperHalf))
		}
	}
	return b.String()
}

// Hex formats c as #rrggbb.
func Hex(c colorspace.RGB) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}
