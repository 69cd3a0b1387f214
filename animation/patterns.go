package animation

import (
	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
)

// Fill paints every pixel one color.
type Fill struct {
	Color colorspace.RGB
}

func (p Fill) Render(_, _ uint64, work Frame) Frame {
	work.Fill(p.Color)
	return work
}

// White is the full-brightness fill used at boot and as the fallback.
var White Pattern = Fill{Color: colorspace.White}

// Corners is the orientation test card: black with a marker in each corner.
type Corners struct{}

func (Corners) Render(_, _ uint64, work Frame) Frame {
	w, h := work.Grid.Width, work.Grid.Height
	work.Clear()
	work.Set(0, 0, colorspace.Red)
	work.Set(w-1, 0, colorspace.Green)
	work.Set(0, h-1, colorspace.Blue)
	work.Set(w-1, h-1, colorspace.Yellow)
	return work
}

// HueSweep is a diagonal rainbow that scrolls two hue steps per frame.
type HueSweep struct {
	Timebase Timebase
}

func (p HueSweep) Render(ticks, _ uint64, work Frame) Frame {
	derived := p.Timebase.DerivedFrame(ticks)
	for y := 0; y < work.Grid.Height; y++ {
		for x := 0; x < work.Grid.Width; x++ {
			hue := (uint64(x+y)*8 + derived*2) % 256
			work.Set(x, y, colorspace.HueToRGB(uint8(hue)))
		}
	}
	return work
}

// Checker lights cells with odd x and odd y, hue following the column and
// the frame. It draws into its own buffer and never touches the other
// cells, so they keep whatever they held before (black from construction).
type Checker struct {
	buf      Frame
	timebase Timebase
}

// NewChecker allocates the checker's private buffer.
func NewChecker(grid wasmmatrix.Grid, tb Timebase) *Checker {
	return &Checker{buf: NewFrame(grid), timebase: tb}
}

func (p *Checker) Render(ticks, _ uint64, _ Frame) Frame {
	derived := p.timebase.DerivedFrame(ticks)
	for y := 1; y < p.buf.Grid.Height; y += 2 {
		for x := 1; x < p.buf.Grid.Width; x += 2 {
			p.buf.Set(x, y, colorspace.HueToRGB(uint8((uint64(x)+derived)%256)))
		}
	}
	return p.buf
}

// Sequence cycles through stored frames, holding each for Slowdown derived
// frames. The stored frame is returned as is.
type Sequence struct {
	Frames   []Frame
	Timebase Timebase
	Slowdown uint64
}

func (p Sequence) Render(ticks, frame uint64, work Frame) Frame {
	if len(p.Frames) == 0 {
		return White.Render(ticks, frame, work)
	}
	slowdown := p.Slowdown
	if slowdown == 0 {
		slowdown = 1
	}
	idx := p.Timebase.DerivedFrame(ticks) / slowdown % uint64(len(p.Frames))
	return p.Frames[idx]
}
