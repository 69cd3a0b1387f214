package animation

import wasmmatrix "github.com/wippyai/wasm-matrix"

const (
	// BootTicks is how long the boot test cards play.
	BootTicks = 512
	// CycleTicks is the length of the looping program.
	CycleTicks = 4096
	// SequenceSlowdown holds each sequence frame for this many derived frames.
	SequenceSlowdown = 16
)

// DefaultTimeline is the reference program: two seconds of test cards
// (white, then corner markers), then a 16 second loop of hue sweep,
// checker, pulse sequence and spinner sprite sheet.
func DefaultTimeline(grid wasmmatrix.Grid, tb Timebase) *Timeline {
	data, entries := SpinnerSheet(grid)
	sheet, err := NewSpriteSheet(grid, data, entries)
	if err != nil {
		panic(err)
	}
	return NewTimeline(grid, tb, sheet)
}

// NewTimeline is DefaultTimeline with the final segment replaced by sprite.
func NewTimeline(grid wasmmatrix.Grid, tb Timebase, sprite Pattern) *Timeline {
	boot := MustTable(BootTicks,
		Segment{Name: "white", Start: 0, End: 256, Pattern: White},
		Segment{Name: "corners", Start: 256, End: BootTicks, Pattern: Corners{}},
	)
	cycle := MustTable(CycleTicks,
		Segment{Name: "hue-sweep", Start: 0, End: 1024, Pattern: HueSweep{Timebase: tb}},
		Segment{Name: "checker", Start: 1024, End: 2048, Pattern: NewChecker(grid, tb)},
		Segment{Name: "pulse", Start: 2048, End: 3072, Pattern: Sequence{
			Frames:   PulseFrames(grid),
			Timebase: tb,
			Slowdown: SequenceSlowdown,
		}},
		Segment{Name: "sprite", Start: 3072, End: Open, Pattern: sprite},
	)
	return &Timeline{
		BootTicks: BootTicks,
		Boot:      boot,
		Cycle:     cycle,
		Fallback:  White,
	}
}
