// Package render is the host render loop: clock to ticks, ticks to a frame
// from a Source, frame through the serpentine mapper, out to a sink.
package render

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-matrix/animation"
	"github.com/wippyai/wasm-matrix/colorspace"
	"github.com/wippyai/wasm-matrix/errors"
	"github.com/wippyai/wasm-matrix/serpentine"
	"github.com/wippyai/wasm-matrix/sink"
)

const (
	// FPSWindow is the number of frames the rolling FPS is measured over.
	FPSWindow = 60
	// DefaultYield is the pause between render cycles.
	DefaultYield = time.Millisecond
	// DefaultBrightness is the brightness scalar attached to every frame.
	DefaultBrightness = 100
)

// Config holds render loop settings.
type Config struct {
	Logger         *zap.Logger
	TicksPerSecond uint64
	Yield          time.Duration
	MaxFrames      uint64
	// StatsEvery logs FPS every n frames. 0 disables the log.
	StatsEvery uint64
	Brightness uint8
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		TicksPerSecond: animation.DefaultTicksPerSecond,
		Yield:          DefaultYield,
		Brightness:     DefaultBrightness,
		StatsEvery:     10 * FPSWindow,
	}
}

// Stats is a snapshot of loop progress.
type Stats struct {
	Frames uint64
	Ticks  uint64
	FPS    float64
}

// Loop runs render cycles strictly one after another.
type Loop struct {
	src    Source
	out    sink.Sink
	clock  Clock
	mapper *serpentine.Mapper
	log    *zap.Logger
	strip  []colorspace.RGB
	fps    fpsWindow
	cfg    Config

	frame     uint64
	lastTicks uint64
	err       error
}

// New builds a loop over src writing to out.
func New(src Source, out sink.Sink, clock Clock, cfg Config) (*Loop, error) {
	if cfg.TicksPerSecond == 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "ticks per second must be positive")
	}
	mapper, err := serpentine.NewMapper(src.Grid())
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Loop{
		src:    src,
		out:    out,
		clock:  clock,
		mapper: mapper,
		log:    cfg.Logger,
		strip:  make([]colorspace.RGB, src.Grid().Pixels()),
		cfg:    cfg,
	}, nil
}

// Step runs one render cycle. Any error is fatal for the run; nothing from
// a failed cycle reaches the sink and the frame counter does not move.
// Once a cycle has failed every later Step returns the same error without
// rendering.
func (l *Loop) Step(ctx context.Context) error {
	if l.err != nil {
		return l.err
	}
	if err := l.step(ctx); err != nil {
		l.err = err
		return err
	}
	return nil
}

func (l *Loop) step(ctx context.Context) error {
	elapsed := l.clock.Elapsed()
	ticks := Ticks(elapsed, l.cfg.TicksPerSecond)
	if ticks < l.lastTicks {
		return errors.New(errors.PhaseRender, errors.KindClock).
			Value(ticks).
			Detail("clock went backwards: ticks %d after %d", ticks, l.lastTicks).
			Build()
	}

	pix, err := l.src.Render(ctx, ticks, l.frame)
	if err != nil {
		return err
	}
	if err := l.mapper.Map(pix, l.strip); err != nil {
		return errors.Wrap(errors.PhaseRender, errors.KindContract, err, "map frame to strip")
	}

	f := sink.Frame{
		Number:     l.frame,
		Ticks:      ticks,
		Brightness: l.cfg.Brightness,
		Pixels:     l.strip,
	}
	if err := l.out.Write(ctx, f); err != nil {
		return errors.Wrap(errors.PhaseOutput, errors.KindIO, err, "write frame")
	}

	l.frame++
	l.lastTicks = ticks
	l.fps.add(elapsed)
	return nil
}

// Run steps until ctx is done, MaxFrames frames were written, or a cycle
// fails. Cancellation is a clean stop and returns nil. A loop that already
// failed returns its error immediately.
func (l *Loop) Run(ctx context.Context) error {
	if l.err != nil {
		return l.err
	}
	l.log.Info("render loop started",
		zap.Uint64("ticks_per_second", l.cfg.TicksPerSecond),
		zap.Stringer("grid", l.src.Grid()),
		zap.Uint64("max_frames", l.cfg.MaxFrames))

	var timer *time.Timer
	if l.cfg.Yield > 0 {
		timer = time.NewTimer(l.cfg.Yield)
		defer timer.Stop()
	}

	for {
		if ctx.Err() != nil {
			l.logStopped("context done")
			return nil
		}
		if err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				l.logStopped("context done")
				return nil
			}
			l.log.Error("render cycle failed",
				zap.Uint64("frame", l.frame),
				zap.Uint64("ticks", l.lastTicks),
				zap.Bool("fatal", errors.IsFatal(err)),
				zap.Error(err))
			return err
		}
		if l.cfg.StatsEvery > 0 && l.frame%l.cfg.StatsEvery == 0 {
			s := l.Stats()
			l.log.Info("render stats",
				zap.Uint64("frames", s.Frames),
				zap.Uint64("ticks", s.Ticks),
				zap.Float64("fps", s.FPS))
		}
		if l.cfg.MaxFrames > 0 && l.frame >= l.cfg.MaxFrames {
			l.logStopped("frame limit reached")
			return nil
		}
		if timer != nil {
			timer.Reset(l.cfg.Yield)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		}
	}
}

func (l *Loop) logStopped(reason string) {
	s := l.Stats()
	l.log.Info("render loop stopped",
		zap.String("reason", reason),
		zap.Uint64("frames", s.Frames),
		zap.Float64("fps", s.FPS))
}

// Err returns the error that stopped the loop, if any.
func (l *Loop) Err() error {
	return l.err
}

// Stats returns the frame count, the ticks of the last frame and the FPS
// over the last FPSWindow frames.
func (l *Loop) Stats() Stats {
	return Stats{Frames: l.frame, Ticks: l.lastTicks, FPS: l.fps.rate()}
}

// fpsWindow keeps the timestamps of the last FPSWindow frames.
type fpsWindow struct {
	at   [FPSWindow]time.Duration
	next int
	n    int
}

func (w *fpsWindow) add(t time.Duration) {
	w.at[w.next] = t
	w.next = (w.next + 1) % FPSWindow
	if w.n < FPSWindow {
		w.n++
	}
}

func (w *fpsWindow) rate() float64 {
	if w.n < 2 {
		return 0
	}
	newest := w.at[(w.next+FPSWindow-1)%FPSWindow]
	oldest := w.at[(w.next+FPSWindow-w.n)%FPSWindow]
	span := newest - oldest
	if span <= 0 {
		return 0
	}
	return float64(w.n-1) / span.Seconds()
}
