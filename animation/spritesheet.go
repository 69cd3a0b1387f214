package animation

import (
	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
)

// SheetEntry locates one frame of a sprite sheet. Offset is the byte offset
// of the frame inside the sheet; EndTick is the cumulative tick at which
// the frame stops showing.
type SheetEntry struct {
	Offset  int
	EndTick uint64
}

// SpriteSheet plays frames sliced out of one contiguous asset, each for its
// own duration.
type SpriteSheet struct {
	Fallback Pattern
	data     []byte
	entries  []SheetEntry
	grid     wasmmatrix.Grid
}

// NewSpriteSheet validates the duration table against data. End ticks must
// be strictly increasing and every frame must lie inside data.
func NewSpriteSheet(grid wasmmatrix.Grid, data []byte, entries []SheetEntry) (*SpriteSheet, error) {
	if len(entries) == 0 {
		return nil, tableError("sprite sheet has no frames")
	}
	size := grid.BufferSize()
	var prev uint64
	for i, e := range entries {
		if e.EndTick <= prev {
			return nil, tableError("sprite frame %d ends at tick %d, not after %d", i, e.EndTick, prev)
		}
		if e.Offset < 0 || e.Offset+size > len(data) {
			return nil, errors.New(errors.PhaseConfig, errors.KindOutOfBounds).
				Value(e.Offset).
				Detail("sprite frame %d at byte %d overruns %d byte sheet", i, e.Offset, len(data)).
				Build()
		}
		prev = e.EndTick
	}
	return &SpriteSheet{
		data:     data,
		entries:  append([]SheetEntry(nil), entries...),
		grid:     grid,
		Fallback: White,
	}, nil
}

// Duration is the total length of one loop in ticks.
func (p *SpriteSheet) Duration() uint64 {
	if len(p.entries) == 0 {
		return 0
	}
	return p.entries[len(p.entries)-1].EndTick
}

// Frames returns the number of frames in the sheet.
func (p *SpriteSheet) Frames() int {
	return len(p.entries)
}

// Render scans the table for the first frame whose end lies after
// ticks mod Duration. The frame is a view into the sheet.
func (p *SpriteSheet) Render(ticks, frame uint64, work Frame) Frame {
	if total := p.Duration(); total > 0 {
		t := ticks % total
		for _, e := range p.entries {
			if t < e.EndTick {
				return FrameOf(p.grid, p.data[e.Offset:e.Offset+p.grid.BufferSize()])
			}
		}
	}
	fallback := p.Fallback
	if fallback == nil {
		fallback = White
	}
	return fallback.Render(ticks, frame, work)
}
