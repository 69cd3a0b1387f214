// Package serpentine maps logical matrix coordinates to positions on a
// serpentine-wired LED strip.
//
// The first LED sits at the panel's bottom-left corner. The strip runs
// right along the bottom row, up one row, back left, and so on. For a 16x16
// panel the top-left logical pixel is therefore strip position 255:
//
//	255 254 253 ... 241 240
//	224 225 226 ... 238 239
//	...
//	 31  30  29 ...  17  16
//	  0   1   2 ...  14  15
package serpentine

import (
	"fmt"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
	"github.com/wippyai/wasm-matrix/errors"
)

// Index returns the strip position of logical pixel (x, y) on a
// width x height panel. Logical origin is top-left; physical origin is
// bottom-left with alternating scan direction per row.
func Index(x, y, width, height int) (int, error) {
	if x < 0 || y < 0 || x >= width || y >= height {
		return 0, errors.InvalidInput(errors.PhaseRender,
			fmt.Sprintf("coordinate (%d, %d) outside %dx%d grid", x, y, width, height))
	}
	return index(x, y, width, height), nil
}

func index(x, y, width, height int) int {
	py := height - 1 - y // flip: logical top-left -> physical bottom-left
	if py%2 == 0 {
		return py*width + x // even rows run left to right
	}
	return py*width + (width - 1 - x) // odd rows run right to left
}

// Mapper reorders whole frames using a precomputed index table.
type Mapper struct {
	grid  wasmmatrix.Grid
	table []int // logical pixel -> strip position
}

// NewMapper precomputes the strip position of every pixel of grid.
func NewMapper(grid wasmmatrix.Grid) (*Mapper, error) {
	if err := grid.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "serpentine grid")
	}
	m := &Mapper{grid: grid, table: make([]int, grid.Pixels())}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			m.table[y*grid.Width+x] = index(x, y, grid.Width, grid.Height)
		}
	}
	return m, nil
}

// Grid returns the grid the mapper was built for.
func (m *Mapper) Grid() wasmmatrix.Grid {
	return m.grid
}

// Map converts a row-major RGB buffer into strip order. Channel bytes are
// passed through untouched.
func (m *Mapper) Map(src []byte, dst []colorspace.RGB) error {
	if len(src) != m.grid.BufferSize() || len(dst) != m.grid.Pixels() {
		return errors.InvalidInput(errors.PhaseRender,
			fmt.Sprintf("map %s: got %d source bytes and %d strip pixels", m.grid, len(src), len(dst)))
	}
	for i, pos := range m.table {
		o := i * wasmmatrix.PixelChannels
		dst[pos] = colorspace.RGB{R: src[o], G: src[o+1], B: src[o+2]}
	}
	return nil
}

// Unmap converts strip-ordered pixels back into a row-major grid, for
// previews that draw the panel as it is seen.
func (m *Mapper) Unmap(strip []colorspace.RGB, dst []colorspace.RGB) error {
	if len(strip) != m.grid.Pixels() || len(dst) != m.grid.Pixels() {
		return errors.InvalidInput(errors.PhaseRender,
			fmt.Sprintf("unmap %s: got %d strip pixels and %d grid pixels", m.grid, len(strip), len(dst)))
	}
	for i, pos := range m.table {
		dst[i] = strip[pos]
	}
	return nil
}
