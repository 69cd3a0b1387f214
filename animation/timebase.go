package animation

import "github.com/wippyai/wasm-matrix/errors"

const (
	DefaultTicksPerSecond = 256
	DefaultTargetFPS      = 60
)

// Timebase converts ticks into the frame numbers patterns animate on.
type Timebase struct {
	TicksPerSecond uint64
	TargetFPS      uint64
}

// DefaultTimebase is 256 ticks per second animated at 60 frames per second.
var DefaultTimebase = Timebase{TicksPerSecond: DefaultTicksPerSecond, TargetFPS: DefaultTargetFPS}

// DerivedFrame returns ticks * TargetFPS / TicksPerSecond without
// overflowing the intermediate product.
func (tb Timebase) DerivedFrame(ticks uint64) uint64 {
	if tb.TicksPerSecond == 0 {
		return 0
	}
	whole := ticks / tb.TicksPerSecond
	rem := ticks % tb.TicksPerSecond
	return whole*tb.TargetFPS + rem*tb.TargetFPS/tb.TicksPerSecond
}

// Validate rejects a zero tick rate or frame rate.
func (tb Timebase) Validate() error {
	if tb.TicksPerSecond == 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Detail("ticks per second must be positive").Build()
	}
	if tb.TargetFPS == 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Detail("target fps must be positive").Build()
	}
	return nil
}
