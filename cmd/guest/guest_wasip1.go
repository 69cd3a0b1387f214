//go:build wasip1

package main

import (
	"unsafe"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/animation"
)

// The guest owns its frames: update returns a pointer into its own heap
// and never touches the host buffer region. Go's allocator grows memory
// past whatever the host reserved, so the two never overlap.
var (
	timeline *animation.Timeline
	work     animation.Frame
	current  animation.Frame
)

//go:wasmexport init
func guestInit() {
	grid := wasmmatrix.DefaultGrid
	timeline = animation.DefaultTimeline(grid, animation.DefaultTimebase)
	work = animation.NewFrame(grid)
}

//go:wasmexport update
func guestUpdate(ticks, frame uint64, hostBufferOffset uint32) uint32 {
	_ = hostBufferOffset
	if timeline == nil {
		guestInit()
	}
	// current keeps the returned frame reachable until the host copies it.
	current = timeline.Render(ticks, frame, work)
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(current.Pix))))
}

func main() {}
