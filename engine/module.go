package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/wippyai/wasm-matrix/errors"
)

const guestName = "guest"

// Module is a compiled guest that passed ABI validation.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	needs    hostImports
	reactor  bool
}

// NeedsWASI reports whether the guest imports WASI preview1.
func (m *Module) NeedsWASI() bool {
	return m.needs.wasi
}

// Instantiate runs the setup protocol and returns a ready instance. init
// has been called exactly once when it returns without error.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	e := m.engine
	if err := e.linkHosts(ctx, m.needs); err != nil {
		return nil, err
	}

	log := e.log.Named(guestName)
	stdout := &zapio.Writer{Log: log, Level: zapcore.InfoLevel}
	stderr := &zapio.Writer{Log: log, Level: zapcore.WarnLevel}

	modCfg := wazero.NewModuleConfig().
		WithName(guestName).
		WithStdout(stdout).
		WithStderr(stderr).
		WithSysNanotime().
		WithSysWalltime()
	if m.reactor {
		modCfg = modCfg.WithStartFunctions("_initialize")
	} else {
		modCfg = modCfg.WithStartFunctions()
	}

	inst := &Instance{
		grid:   e.cfg.Grid,
		log:    e.log,
		stdout: stdout,
		stderr: stderr,
		engine: e,
		stack:  make([]uint64, 3),
	}
	if err := e.acquire(inst); err != nil {
		return nil, err
	}

	mod, err := e.runtime.InstantiateModule(ctx, m.compiled, modCfg)
	if err != nil {
		e.release(inst)
		return nil, errors.Instantiation(err)
	}
	inst.module = mod
	inst.init = mod.ExportedFunction(ExportInit)
	inst.update = mod.ExportedFunction(ExportUpdate)
	inst.memory = &Memory{mem: mod.ExportedMemory(ExportMemory)}

	if err := inst.setup(ctx, e.cfg.ReservePages); err != nil {
		_ = inst.Close(ctx)
		return nil, err
	}

	e.log.Info("guest ready",
		zap.Uint32("host_buffer_offset", inst.hostOffset),
		zap.Uint32("memory_size", inst.memory.Size()),
		zap.Stringer("grid", inst.grid))
	return inst, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
