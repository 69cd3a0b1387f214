package render

import (
	"sync"
	"time"
)

// Clock reports time elapsed since the start of the run. Implementations
// must be monotonic.
type Clock interface {
	Elapsed() time.Duration
}

// SystemClock reads the monotonic wall clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock starts a clock at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// ManualClock only moves when told to. It is meant for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set moves the clock to d. Setting it backwards is allowed so tests can
// provoke clock errors.
func (c *ManualClock) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d
}

// VirtualClock runs on top of a base clock at an adjustable rate and can be
// paused. Changing the rate or pausing never moves it backwards.
type VirtualClock struct {
	base   Clock
	mu     sync.Mutex
	acc    time.Duration
	anchor time.Duration
	rate   float64
	paused bool
}

// NewVirtualClock starts a running clock at rate 1.
func NewVirtualClock(base Clock) *VirtualClock {
	return &VirtualClock{base: base, anchor: base.Elapsed(), rate: 1}
}

func (c *VirtualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *VirtualClock) elapsedLocked() time.Duration {
	if c.paused {
		return c.acc
	}
	return c.acc + time.Duration(float64(c.base.Elapsed()-c.anchor)*c.rate)
}

// rebase folds time elapsed so far into acc.
func (c *VirtualClock) rebase() {
	c.acc = c.elapsedLocked()
	c.anchor = c.base.Elapsed()
}

// SetRate changes the speed multiplier. Rates at or below zero are ignored.
func (c *VirtualClock) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.rate = rate
}

// Rate returns the speed multiplier.
func (c *VirtualClock) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// SetPaused stops or resumes the clock.
func (c *VirtualClock) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if paused == c.paused {
		return
	}
	c.rebase()
	c.paused = paused
}

// Paused reports whether the clock is stopped.
func (c *VirtualClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Advance moves the clock forward by d. Negative values are ignored.
func (c *VirtualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.acc += d
}

// Ticks converts elapsed time to ticks: elapsed_ms * tps / 1000.
func Ticks(elapsed time.Duration, ticksPerSecond uint64) uint64 {
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed.Milliseconds()) * ticksPerSecond / 1000
}

// TickDuration is the wall time of one tick.
func TickDuration(ticksPerSecond uint64) time.Duration {
	if ticksPerSecond == 0 {
		return 0
	}
	return time.Second / time.Duration(ticksPerSecond)
}
