package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-matrix/config"
	"github.com/wippyai/wasm-matrix/render"
	"github.com/wippyai/wasm-matrix/sink"
)

// runReplay plays a capture back on the configured output at its recorded
// pace.
func runReplay(ctx context.Context, cfg *config.Config, o options, log *zap.Logger) error {
	f, err := os.Open(o.replay)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	rp, err := sink.OpenReplay(f)
	if err != nil {
		return err
	}
	tps := rp.TicksPerSecond()
	if tps == 0 {
		tps = cfg.Timing.TicksPerSecond
	}

	cfg.Grid = config.GridConfig{Width: rp.Grid().Width, Height: rp.Grid().Height}
	cfg.Output.CapturePath = ""
	out, err := openSink(cfg, o)
	if err != nil {
		return err
	}
	defer out.Close()

	log.Info("replaying capture", zap.String("path", o.replay), zap.Stringer("grid", rp.Grid()))

	clock := render.NewSystemClock()
	tick := render.TickDuration(tps)
	var n uint64
	for {
		frame, err := rp.Next()
		if errors.Is(err, io.EOF) {
			log.Info("replay finished", zap.Uint64("frames", n))
			return nil
		}
		if err != nil {
			return err
		}

		due := time.Duration(frame.Ticks) * tick
		if wait := due - clock.Elapsed(); wait > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}
		if err := out.Write(ctx, frame); err != nil {
			return err
		}
		n++
		if o.frames > 0 && n >= o.frames {
			return nil
		}
	}
}
