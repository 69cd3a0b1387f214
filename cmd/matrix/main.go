package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-matrix/animation"
	"github.com/wippyai/wasm-matrix/asset"
	"github.com/wippyai/wasm-matrix/config"
	"github.com/wippyai/wasm-matrix/engine"
	"github.com/wippyai/wasm-matrix/render"
	"github.com/wippyai/wasm-matrix/sink"
)

type options struct {
	configFile  string
	wasmFile    string
	sheetFile   string
	sheetTicks  string
	capture     string
	replay      string
	output      string
	frames      uint64
	brightness  int
	list        bool
	interactive bool
	native      bool
	trueColor   bool
}

func main() {
	var o options
	flag.StringVar(&o.configFile, "config", "", "Path to "+config.FileName+" (default: ./"+config.FileName+" if present)")
	flag.StringVar(&o.wasmFile, "wasm", "", "Path to guest wasm module (overrides module.path)")
	flag.BoolVar(&o.native, "native", false, "Run the built-in animation in-process instead of a guest")
	flag.StringVar(&o.sheetFile, "sheet", "", "Sprite sheet (image or .sheet file) replacing the built-in spinner (native only)")
	flag.StringVar(&o.sheetTicks, "sheet-ticks", "48,32,32,48,32,32", "Per-frame durations in ticks when -sheet is an image")
	flag.StringVar(&o.output, "output", "", "Output kind: terminal, wire or null (overrides output.kind)")
	flag.StringVar(&o.capture, "capture", "", "Also record frames to this file")
	flag.StringVar(&o.replay, "replay", "", "Play back a capture file instead of running an animation")
	flag.Uint64Var(&o.frames, "frames", 0, "Stop after this many frames (0 runs until interrupted)")
	flag.IntVar(&o.brightness, "brightness", -1, "Brightness 0-255 (overrides output.brightness)")
	flag.BoolVar(&o.list, "list", false, "List guest exports and imports, check the ABI and exit")
	flag.BoolVar(&o.interactive, "i", false, "Interactive viewer with TUI")
	flag.BoolVar(&o.trueColor, "truecolor", false, "Force 24-bit colour in the terminal preview")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() error {
	fmt.Fprintln(os.Stderr, "Usage: matrix -wasm <guest.wasm> [-frames n] [-capture file]")
	fmt.Fprintln(os.Stderr, "       matrix -native [-sheet image.png]")
	fmt.Fprintln(os.Stderr, "       matrix -wasm <guest.wasm> -list")
	fmt.Fprintln(os.Stderr, "       matrix -replay <capture>")
	fmt.Fprintln(os.Stderr, "       matrix -wasm <guest.wasm> -i  (interactive mode)")
	return fmt.Errorf("no guest module given")
}

func loadConfig(o options) (*config.Config, error) {
	path := o.configFile
	if path == "" {
		if _, err := os.Stat(config.FileName); err != nil {
			return applyFlags(config.Default(), o)
		}
		path = config.FileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return applyFlags(cfg, o)
}

func applyFlags(cfg *config.Config, o options) (*config.Config, error) {
	if o.wasmFile != "" {
		cfg.Module.Path = o.wasmFile
		cfg.Dir = ""
	}
	if o.output != "" {
		cfg.Output.Kind = o.output
	}
	if o.capture != "" {
		cfg.Output.CapturePath = o.capture
	}
	if o.brightness >= 0 {
		if o.brightness > 255 {
			return nil, fmt.Errorf("brightness %d out of range 0-255", o.brightness)
		}
		cfg.Output.Brightness = uint8(o.brightness)
	}
	return cfg, cfg.Validate()
}

func run(o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	log, err := cfg.BuildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if o.interactive {
		// The TUI owns the terminal.
		log = log.WithOptions(zap.IncreaseLevel(zap.ErrorLevel))
	}
	engine.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.replay != "" {
		return runReplay(ctx, cfg, o, log)
	}
	if o.list {
		return list(ctx, cfg)
	}
	if !o.native && cfg.ModulePath() == "" {
		return usage()
	}

	src, closeSrc, err := openSource(ctx, cfg, o, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	if o.interactive {
		return runInteractive(ctx, cfg, src, log)
	}

	out, err := openSink(cfg, o)
	if err != nil {
		return err
	}
	defer out.Close()

	rc := render.DefaultConfig()
	rc.Logger = log.Named("render")
	rc.TicksPerSecond = cfg.Timing.TicksPerSecond
	rc.Yield = cfg.Timing.Yield.Duration
	rc.Brightness = cfg.Output.Brightness
	rc.MaxFrames = o.frames

	loop, err := render.New(src, out, render.NewSystemClock(), rc)
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}

// openSource builds either the in-process timeline or a guest instance.
func openSource(ctx context.Context, cfg *config.Config, o options, log *zap.Logger) (render.Source, func(), error) {
	grid := cfg.GridSize()
	tb := animation.Timebase{TicksPerSecond: cfg.Timing.TicksPerSecond, TargetFPS: cfg.Timing.TargetFPS}

	if o.native {
		tl := animation.DefaultTimeline(grid, tb)
		if o.sheetFile != "" {
			durations, err := parseTicks(o.sheetTicks)
			if err != nil {
				return nil, nil, err
			}
			sheet, err := asset.Load(o.sheetFile, grid, asset.Vertical, durations)
			if err != nil {
				return nil, nil, err
			}
			if sheet.Grid() != grid {
				return nil, nil, fmt.Errorf("sprite sheet is %s, grid is %s", sheet.Grid(), grid)
			}
			pat, err := sheet.Pattern()
			if err != nil {
				return nil, nil, err
			}
			tl = animation.NewTimeline(grid, tb, pat)
		}
		log.Info("running built-in animation", zap.Stringer("grid", grid))
		return render.NewNativeSource(grid, tl), func() {}, nil
	}

	wasm, err := os.ReadFile(cfg.ModulePath())
	if err != nil {
		return nil, nil, fmt.Errorf("read guest: %w", err)
	}

	eng, err := engine.New(ctx, &engine.Config{
		Logger:           log.Named("engine"),
		Grid:             grid,
		MemoryLimitPages: cfg.Module.MemoryLimitPages,
		ReservePages:     cfg.Module.ReservePages,
	})
	if err != nil {
		return nil, nil, err
	}
	closeEngine := func() { _ = eng.Close(context.Background()) }

	mod, err := eng.Load(ctx, wasm)
	if err != nil {
		closeEngine()
		return nil, nil, err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		closeEngine()
		return nil, nil, err
	}
	log.Info("guest loaded", zap.String("path", cfg.ModulePath()), zap.Bool("wasi", mod.NeedsWASI()))

	return render.NewGuestSource(inst), func() {
		_ = inst.Close(context.Background())
		closeEngine()
	}, nil
}

// openSink builds the configured output plus an optional capture.
func openSink(cfg *config.Config, o options) (sink.Sink, error) {
	var out sink.Sink
	switch cfg.Output.Kind {
	case config.OutputNull:
		out = sink.Null{}
	case config.OutputWire:
		f, err := os.OpenFile(cfg.Output.Device, os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("open output device: %w", err)
		}
		w, err := sink.NewWire(f, sink.ChannelOrder(cfg.Output.Order), cfg.Output.Gamma)
		if err != nil {
			f.Close()
			return nil, err
		}
		out = w
	default:
		var opts []sink.TerminalOption
		if o.trueColor {
			opts = append(opts, sink.WithTrueColor())
		}
		t, err := sink.NewTerminal(os.Stdout, cfg.GridSize(), append(opts, sink.WithStatusLine())...)
		if err != nil {
			return nil, err
		}
		if !t.Fits() {
			fmt.Fprintln(os.Stderr, "warning: terminal is smaller than the matrix preview")
		}
		out = t
	}

	if cfg.Output.CapturePath == "" {
		return out, nil
	}
	f, err := os.Create(cfg.Output.CapturePath)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("create capture: %w", err)
	}
	c, err := sink.NewCapture(f, cfg.GridSize(), cfg.Timing.TicksPerSecond)
	if err != nil {
		f.Close()
		out.Close()
		return nil, err
	}
	return sink.Multi{out, c}, nil
}

func parseTicks(s string) ([]uint64, error) {
	var out []uint64
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sheet tick %q: %w", field, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func list(ctx context.Context, cfg *config.Config) error {
	if cfg.ModulePath() == "" {
		return usage()
	}
	wasm, err := os.ReadFile(cfg.ModulePath())
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}
	eng, err := engine.New(ctx, &engine.Config{Grid: cfg.GridSize()})
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	r, err := eng.Inspect(ctx, wasm)
	if err != nil {
		return err
	}

	fmt.Printf("Guest: %s\n", cfg.ModulePath())
	fmt.Printf("\nExported functions:\n")
	for _, e := range r.Exports {
		fmt.Printf("  %s%s\n", e.Name, e.Signature)
	}
	fmt.Printf("\nExported memories:\n")
	for _, m := range r.Memories {
		fmt.Printf("  %s\n", m)
	}
	if len(r.Imports) > 0 {
		fmt.Printf("\nImported functions:\n")
		for _, i := range r.Imports {
			fmt.Printf("  %s#%s%s\n", i.Module, i.Name, i.Signature)
		}
	}

	fmt.Printf("\nContract:%s\n", engine.GuestWIT)
	if r.Conforms() {
		fmt.Printf("\nOK: guest conforms\n")
		return nil
	}
	fmt.Printf("\nProblems:\n")
	for _, p := range r.Problems {
		fmt.Printf("  - %v\n", p)
	}
	return fmt.Errorf("guest does not conform (%d problem(s))", len(r.Problems))
}
