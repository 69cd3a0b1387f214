package animation

// Timeline plays Boot while ticks < BootTicks and loops Cycle afterwards.
// The cycle table sees ticks measured from the end of boot.
//
// Patterns receive ticks local to their segment within the current cycle,
// so every cycle restarts them from phase zero. Patterns that expect ticks
// since boot (growing across cycles) must add the cycle offset themselves.
type Timeline struct {
	Boot      *Table
	Cycle     *Table
	Fallback  Pattern
	BootTicks uint64
}

// Select returns the segment active at ticks and the ticks local to it.
func (tl *Timeline) Select(ticks uint64) (Segment, uint64, bool) {
	if ticks < tl.BootTicks {
		return tl.Boot.Lookup(ticks)
	}
	return tl.Cycle.Lookup(ticks - tl.BootTicks)
}

// Render draws the frame for ticks. A lookup that finds no pattern renders
// the fallback instead.
func (tl *Timeline) Render(ticks, frame uint64, work Frame) Frame {
	seg, local, ok := tl.Select(ticks)
	if !ok || seg.Pattern == nil {
		return tl.fallback().Render(ticks, frame, work)
	}
	return seg.Pattern.Render(local, frame, work)
}

func (tl *Timeline) fallback() Pattern {
	if tl.Fallback == nil {
		return White
	}
	return tl.Fallback
}
