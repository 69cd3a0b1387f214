package wasmmatrix

import "fmt"

// PixelChannels is the number of bytes per pixel (R, G, B).
const PixelChannels = 3

// Grid is the fixed logical size of the matrix. It never changes during a run.
type Grid struct {
	Width  int
	Height int
}

// DefaultGrid is the 16x16 reference panel.
var DefaultGrid = Grid{Width: 16, Height: 16}

// Pixels returns the number of pixels on the grid.
func (g Grid) Pixels() int {
	return g.Width * g.Height
}

// BufferSize returns the size in bytes of one row-major RGB pixel buffer.
func (g Grid) BufferSize() int {
	return g.Width * g.Height * PixelChannels
}

// Offset returns the byte offset of pixel (x, y) inside a pixel buffer.
func (g Grid) Offset(x, y int) int {
	return (y*g.Width + x) * PixelChannels
}

// Contains reports whether (x, y) is a valid coordinate.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Validate rejects empty grids and grids whose buffer cannot be addressed
// with a 32-bit guest offset.
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("grid %dx%d: dimensions must be positive", g.Width, g.Height)
	}
	if uint64(g.Width)*uint64(g.Height)*PixelChannels > 1<<31 {
		return fmt.Errorf("grid %dx%d: pixel buffer too large", g.Width, g.Height)
	}
	return nil
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}
