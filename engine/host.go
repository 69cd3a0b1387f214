package engine

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-matrix/errors"
)

const (
	EnvModule  = "env"
	WASIModule = wasi_snapshot_preview1.ModuleName
)

// envFunctions is the host surface offered under module "env".
var envFunctions = map[string]Signature{
	"output": {Params: []api.ValueType{api.ValueTypeI64}},
	"log":    {Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
}

// hostImports records which host modules a guest needs.
type hostImports struct {
	env  bool
	wasi bool
}

// checkImports resolves every function import against the host surface.
// Unresolved imports are collected into a single MissingImportsError.
func checkImports(funcs []api.FunctionDefinition, mems []api.MemoryDefinition) (hostImports, error) {
	var (
		needs   hostImports
		missing []string
	)
	for _, def := range funcs {
		mod, name, _ := def.Import()
		switch mod {
		case WASIModule:
			needs.wasi = true
		case EnvModule:
			want, ok := envFunctions[name]
			if !ok || !SignatureOf(def).Equal(want) {
				missing = append(missing, mod+"#"+name)
				continue
			}
			needs.env = true
		default:
			missing = append(missing, mod+"#"+name)
		}
	}
	for _, def := range mems {
		mod, name, _ := def.Import()
		missing = append(missing, mod+"#"+name)
	}
	if len(missing) > 0 {
		return needs, errors.NewMissingImportsError(missing)
	}
	return needs, nil
}

// instantiateEnv links the env host module into r.
func instantiateEnv(ctx context.Context, r wazero.Runtime, log *zap.Logger) (api.Module, error) {
	builder := r.NewHostModuleBuilder(EnvModule)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			log.Info("guest output", zap.Uint64("value", stack[0]))
		}), envFunctions["output"].Params, nil).
		Export("output")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			ptr := api.DecodeU32(stack[0])
			length := api.DecodeU32(stack[1])
			mem := mod.Memory()
			if mem == nil {
				panic(errors.MissingMemory(ExportMemory))
			}
			if uint64(ptr)+uint64(length) > uint64(mem.Size()) {
				panic(errors.OutOfBounds(errors.PhaseHost, ptr, uint64(length), mem.Size()))
			}
			data, _ := mem.Read(ptr, length)
			log.Info("guest log", zap.String("message", strings.ToValidUTF8(string(data), "\uFFFD")))
		}), envFunctions["log"].Params, nil).
		Export("log")

	return builder.Instantiate(ctx)
}

// instantiateWASI links WASI preview1 into r.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(WASIModule)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}
