package animation

import (
	"math"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
)

// PulseFrameCount is the length of the built-in pulse sequence.
const PulseFrameCount = 6

// PulseFrames builds square rings growing out from the centre, one ring per
// frame, each a sixth of the hue wheel further along.
func PulseFrames(grid wasmmatrix.Grid) []Frame {
	frames := make([]Frame, PulseFrameCount)
	cx, cy := (grid.Width-1)/2, (grid.Height-1)/2
	maxR := max(grid.Width, grid.Height) / 2
	for i := range frames {
		f := NewFrame(grid)
		r := (i + 1) * maxR / PulseFrameCount
		c := colorspace.HueToRGB(uint8(i * 43))
		for y := 0; y < grid.Height; y++ {
			for x := 0; x < grid.Width; x++ {
				if max(abs(x-cx), abs(y-cy)) == r {
					f.Set(x, y, c)
				}
			}
		}
		frames[i] = f
	}
	return frames
}

// spinnerTicks are the per-frame durations of the built-in sprite sheet.
var spinnerTicks = []uint64{48, 32, 32, 48, 32, 32}

// SpinnerSheet builds a vertical sprite sheet of a bar rotating through
// half a turn, with the horizontal and vertical frames held longest.
func SpinnerSheet(grid wasmmatrix.Grid) ([]byte, []SheetEntry) {
	size := grid.BufferSize()
	data := make([]byte, size*len(spinnerTicks))
	entries := make([]SheetEntry, len(spinnerTicks))

	cx := float64(grid.Width-1) / 2
	cy := float64(grid.Height-1) / 2
	reach := float64(min(grid.Width, grid.Height)) / 2

	var end uint64
	for i, d := range spinnerTicks {
		f := FrameOf(grid, data[i*size:(i+1)*size])
		angle := float64(i) * math.Pi / float64(len(spinnerTicks))
		dx, dy := math.Cos(angle), math.Sin(angle)
		c := colorspace.HueToRGB(uint8(128 + i*21))
		for s := -reach; s <= reach; s += 0.5 {
			f.Set(int(math.Round(cx+s*dx)), int(math.Round(cy+s*dy)), c)
		}
		end += d
		entries[i] = SheetEntry{Offset: i * size, EndTick: end}
	}
	return data, entries
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
