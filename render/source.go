package render

import (
	"context"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/animation"
	"github.com/wippyai/wasm-matrix/engine"
)

// Source produces one row-major frame for (ticks, frame). The returned
// slice is valid until the next call.
type Source interface {
	Render(ctx context.Context, ticks, frame uint64) ([]byte, error)
	Grid() wasmmatrix.Grid
}

// GuestSource drives a sandboxed guest: update, then copy the frame out
// before anything else touches guest memory.
type GuestSource struct {
	inst *engine.Instance
	buf  []byte
}

// NewGuestSource wraps an initialized instance.
func NewGuestSource(inst *engine.Instance) *GuestSource {
	return &GuestSource{inst: inst, buf: make([]byte, inst.Grid().BufferSize())}
}

func (s *GuestSource) Render(ctx context.Context, ticks, frame uint64) ([]byte, error) {
	offset, err := s.inst.Update(ctx, ticks, frame)
	if err != nil {
		return nil, err
	}
	if err := s.inst.ReadFrame(offset, s.buf); err != nil {
		return nil, err
	}
	return s.buf, nil
}

func (s *GuestSource) Grid() wasmmatrix.Grid {
	return s.inst.Grid()
}

// NativeSource runs a timeline in-process. It still copies each frame out
// so stored pattern frames are never handed downstream.
type NativeSource struct {
	timeline *animation.Timeline
	work     animation.Frame
	out      []byte
}

// NewNativeSource renders tl on grid.
func NewNativeSource(grid wasmmatrix.Grid, tl *animation.Timeline) *NativeSource {
	return &NativeSource{
		timeline: tl,
		work:     animation.NewFrame(grid),
		out:      make([]byte, grid.BufferSize()),
	}
}

func (s *NativeSource) Render(_ context.Context, ticks, frame uint64) ([]byte, error) {
	f := s.timeline.Render(ticks, frame, s.work)
	copy(s.out, f.Pix)
	return s.out, nil
}

func (s *NativeSource) Grid() wasmmatrix.Grid {
	return s.work.Grid
}

// Segment names the timeline segment active at ticks.
func (s *NativeSource) Segment(ticks uint64) string {
	seg, _, ok := s.timeline.Select(ticks)
	if !ok {
		return "fallback"
	}
	return seg.Name
}
