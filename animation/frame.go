package animation

import (
	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
)

// Frame is a row-major RGB pixel buffer for a grid. It is a view: copying a
// Frame value shares Pix.
type Frame struct {
	Pix  []byte
	Grid wasmmatrix.Grid
}

// NewFrame allocates a black frame.
func NewFrame(grid wasmmatrix.Grid) Frame {
	return Frame{Grid: grid, Pix: make([]byte, grid.BufferSize())}
}

// FrameOf wraps pix, which must be exactly one buffer long.
func FrameOf(grid wasmmatrix.Grid, pix []byte) Frame {
	return Frame{Grid: grid, Pix: pix[:grid.BufferSize():grid.BufferSize()]}
}

// Set writes c at (x, y). Writes outside the grid are dropped.
func (f Frame) Set(x, y int, c colorspace.RGB) {
	if !f.Grid.Contains(x, y) {
		return
	}
	o := f.Grid.Offset(x, y)
	f.Pix[o] = c.R
	f.Pix[o+1] = c.G
	f.Pix[o+2] = c.B
}

// At returns the color at (x, y), or black outside the grid.
func (f Frame) At(x, y int) colorspace.RGB {
	if !f.Grid.Contains(x, y) {
		return colorspace.Black
	}
	o := f.Grid.Offset(x, y)
	return colorspace.RGB{R: f.Pix[o], G: f.Pix[o+1], B: f.Pix[o+2]}
}

// Fill sets every pixel to c.
func (f Frame) Fill(c colorspace.RGB) {
	if c.R == c.G && c.G == c.B {
		for i := range f.Pix {
			f.Pix[i] = c.R
		}
		return
	}
	for i := 0; i+2 < len(f.Pix); i += wasmmatrix.PixelChannels {
		f.Pix[i] = c.R
		f.Pix[i+1] = c.G
		f.Pix[i+2] = c.B
	}
}

// Clear fills the frame with black.
func (f Frame) Clear() {
	f.Fill(colorspace.Black)
}

// CopyFrom copies src into f. Both frames must share a grid.
func (f Frame) CopyFrom(src Frame) {
	copy(f.Pix, src.Pix)
}
