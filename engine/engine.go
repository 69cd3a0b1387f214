package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
	"github.com/wippyai/wasm-matrix/framebuf"
)

// Config holds configuration for engine creation.
type Config struct {
	// Logger receives engine and guest output. nil uses Logger().
	Logger *zap.Logger

	// Grid fixes the pixel buffer size. Zero uses wasmmatrix.DefaultGrid.
	Grid wasmmatrix.Grid

	// MemoryLimitPages caps guest memory in 64 KiB pages. 0 leaves the
	// wazero default of 65536 pages.
	MemoryLimitPages uint32

	// ReservePages is how far memory grows for the host buffer region.
	// 0 means the smallest page count covering one pixel buffer.
	ReservePages uint32
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Logger == nil {
		out.Logger = Logger()
	}
	if out.Grid == (wasmmatrix.Grid{}) {
		out.Grid = wasmmatrix.DefaultGrid
	}
	if out.ReservePages == 0 {
		out.ReservePages = framebuf.PagesFor(out.Grid.BufferSize())
	}
	return out
}

// Engine owns a wazero runtime and hosts at most one live guest instance.
type Engine struct {
	runtime wazero.Runtime
	cfg     Config
	log     *zap.Logger

	hostMu sync.Mutex
	env    api.Module
	wasi   api.Module
	active *Instance
}

// New creates an engine. It validates the grid and builds the runtime.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	c := cfg.withDefaults()
	if err := c.Grid.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "grid")
	}
	if reserve := uint64(c.ReservePages) * wasmmatrix.PageSize; reserve < uint64(c.Grid.BufferSize()) {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(c.ReservePages).
			Detail("reserve of %d page(s) cannot hold a %d byte pixel buffer", c.ReservePages, c.Grid.BufferSize()).
			Build()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cfg:     c,
		log:     c.Logger,
	}, nil
}

// Grid returns the grid every instance of this engine renders.
func (e *Engine) Grid() wasmmatrix.Grid {
	return e.cfg.Grid
}

// Load compiles wasm and validates it against the guest contract.
func (e *Engine) Load(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile guest module", err)
	}

	if problems := checkExports(compiled.ExportedFunctions(), compiled.ExportedMemories()); len(problems) > 0 {
		_ = compiled.Close(ctx)
		return nil, problems[0]
	}

	needs, err := checkImports(compiled.ImportedFunctions(), compiled.ImportedMemories())
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	_, reactor := compiled.ExportedFunctions()["_initialize"]
	e.log.Debug("guest module loaded",
		zap.Bool("env", needs.env),
		zap.Bool("wasi", needs.wasi),
		zap.Bool("reactor", reactor))

	return &Module{
		engine:   e,
		compiled: compiled,
		needs:    needs,
		reactor:  reactor,
	}, nil
}

// Inspect compiles wasm and reports its exports, imports and every contract
// problem without instantiating it.
func (e *Engine) Inspect(ctx context.Context, wasm []byte) (*Report, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile guest module", err)
	}
	defer compiled.Close(ctx)
	return newReport(compiled), nil
}

// linkHosts instantiates the host modules a guest needs, once per engine.
func (e *Engine) linkHosts(ctx context.Context, needs hostImports) error {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()

	if needs.env && e.env == nil {
		mod, err := instantiateEnv(ctx, e.runtime, e.log.Named("guest"))
		if err != nil {
			return errors.Instantiation(fmt.Errorf("env host module: %w", err))
		}
		e.env = mod
	}
	if needs.wasi && e.wasi == nil {
		mod, err := instantiateWASI(ctx, e.runtime)
		if err != nil {
			return errors.Instantiation(fmt.Errorf("wasi host module: %w", err))
		}
		e.wasi = mod
	}
	return nil
}

func (e *Engine) acquire(inst *Instance) error {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()
	if e.active != nil {
		return errors.Contract(errors.PhaseInstantiate, "a guest instance is already active")
	}
	e.active = inst
	return nil
}

func (e *Engine) release(inst *Instance) {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()
	if e.active == inst {
		e.active = nil
	}
}

// Close releases the runtime and everything instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
