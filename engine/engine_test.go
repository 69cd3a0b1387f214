package engine

import (
	"bytes"
	"context"
	goerrors "errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
	"github.com/wippyai/wasm-matrix/internal/guesttest"
)

var bufferSize = wasmmatrix.DefaultGrid.BufferSize()

func newEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func instantiate(t *testing.T, e *Engine, wasm []byte) *Instance {
	t.Helper()
	ctx := context.Background()
	mod, err := e.Load(ctx, wasm)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close(ctx) })
	return inst
}

func wantError(t *testing.T, err error, phase errors.Phase, kind errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s/%s error, got nil", phase, kind)
	}
	if !goerrors.Is(err, &errors.Error{Phase: phase, Kind: kind}) {
		t.Fatalf("expected %s/%s error, got %v", phase, kind, err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg     *Config
		name    string
		wantErr bool
	}{
		{nil, "nil config", false},
		{&Config{}, "default config", false},
		{&Config{MemoryLimitPages: 256}, "16MB limit", false},
		{&Config{Grid: wasmmatrix.Grid{Width: 32, Height: 8}}, "strip grid", false},
		{&Config{Grid: wasmmatrix.Grid{Width: 0, Height: 16}}, "empty grid", true},
		{&Config{Grid: wasmmatrix.Grid{Width: 200, Height: 200}, ReservePages: 1}, "reserve too small", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(ctx, tt.cfg)
			if tt.wantErr {
				wantError(t, err, errors.PhaseConfig, errors.KindInvalidInput)
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer e.Close(ctx)
			if e.runtime == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func TestNew_DefaultReserve(t *testing.T) {
	e := newEngine(t, nil)
	if e.cfg.ReservePages != 1 {
		t.Errorf("ReservePages = %d, want 1 for a 16x16 grid", e.cfg.ReservePages)
	}
	if e.Grid() != wasmmatrix.DefaultGrid {
		t.Errorf("Grid = %v, want %v", e.Grid(), wasmmatrix.DefaultGrid)
	}

	big := newEngine(t, &Config{Grid: wasmmatrix.Grid{Width: 200, Height: 200}})
	if big.cfg.ReservePages != 2 {
		t.Errorf("ReservePages = %d, want 2 for 120000 bytes", big.cfg.ReservePages)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		wasm  []byte
		phase errors.Phase
		kind  errors.Kind
	}{
		{"missing init", guesttest.HostFill(bufferSize, guesttest.WithoutInit()), errors.PhaseValidate, errors.KindMissingExport},
		{"missing update", guesttest.HostFill(bufferSize, guesttest.WithoutUpdate()), errors.PhaseValidate, errors.KindMissingExport},
		{"wrong update signature", guesttest.HostFill(bufferSize, guesttest.WithWrongUpdateSignature()), errors.PhaseValidate, errors.KindSignatureMismatch},
		{"memory not exported", guesttest.HostFill(bufferSize, guesttest.WithoutMemory()), errors.PhaseValidate, errors.KindMissingMemory},
		{"memory misnamed", guesttest.HostFill(bufferSize, guesttest.WithMemoryName("mem")), errors.PhaseValidate, errors.KindMissingMemory},
		{"not wasm", []byte("definitely not wasm"), errors.PhaseLoad, errors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, nil)
			_, err := e.Load(context.Background(), tt.wasm)
			wantError(t, err, tt.phase, tt.kind)
			if !errors.IsFatal(err) {
				t.Error("load errors must be fatal")
			}
		})
	}
}

func TestLoad_MissingExportNamesExport(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Load(context.Background(), guesttest.HostFill(bufferSize, guesttest.WithoutUpdate()))
	var ee *errors.Error
	if !goerrors.As(err, &ee) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if ee.Export != ExportUpdate {
		t.Errorf("Export = %q, want %q", ee.Export, ExportUpdate)
	}
}

func TestLoad_UnknownImport(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Load(context.Background(), guesttest.HostFill(bufferSize, guesttest.WithImport("custom", "tick")))

	var missing *errors.MissingImportsError
	if !goerrors.As(err, &missing) {
		t.Fatalf("expected MissingImportsError, got %v", err)
	}
	if len(missing.Imports) != 1 || missing.Imports[0].Module != "custom" || missing.Imports[0].Function != "tick" {
		t.Errorf("Imports = %+v", missing.Imports)
	}
}

func TestLoad_EnvImportWithWrongSignature(t *testing.T) {
	e := newEngine(t, nil)
	// env.output is (i64) -> (); the guest asks for () -> ().
	_, err := e.Load(context.Background(), guesttest.HostFill(bufferSize, guesttest.WithImport("env", "output")))
	if !goerrors.Is(err, &errors.MissingImportsError{}) {
		t.Fatalf("expected MissingImportsError, got %v", err)
	}
}

func TestInstantiate_SetupProtocol(t *testing.T) {
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	if got := inst.HostBufferOffset(); got != wasmmatrix.PageSize {
		t.Errorf("HostBufferOffset = %d, want %d (memory size before growth)", got, wasmmatrix.PageSize)
	}
	if got := inst.Memory().Size(); got != 2*wasmmatrix.PageSize {
		t.Errorf("memory size = %d, want %d", got, 2*wasmmatrix.PageSize)
	}
	if uint64(inst.HostBufferOffset())+uint64(bufferSize) > uint64(inst.Memory().Size()) {
		t.Error("host region does not fit in memory")
	}
}

func TestInstantiate_InitCalledOnce(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	for tick := uint64(0); tick < 5; tick++ {
		if _, err := inst.Update(ctx, tick, tick); err != nil {
			t.Fatalf("Update(%d) failed: %v", tick, err)
		}
	}

	count, err := inst.Memory().ReadU8(guesttest.CounterAddr)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("init ran %d times, want 1", count)
	}
}

func TestInstantiate_InitTrap(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	mod, err := e.Load(ctx, guesttest.HostFill(bufferSize, guesttest.WithTrapInit()))
	if err != nil {
		t.Fatal(err)
	}

	_, err = mod.Instantiate(ctx)
	wantError(t, err, errors.PhaseInit, errors.KindTrap)

	// The failed instance released its slot.
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))
	if inst == nil {
		t.Fatal("expected a fresh instance")
	}
}

func TestInstantiate_GrowthFailure(t *testing.T) {
	tests := []struct {
		cfg  *Config
		name string
		wasm []byte
	}{
		{nil, "declared max", guesttest.HostFill(bufferSize, guesttest.WithMemoryLimits(1, 1))},
		{&Config{MemoryLimitPages: 1}, "engine limit", guesttest.HostFill(bufferSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t, tt.cfg)
			mod, err := e.Load(ctx, tt.wasm)
			if err != nil {
				t.Fatal(err)
			}
			_, err = mod.Instantiate(ctx)
			wantError(t, err, errors.PhaseInstantiate, errors.KindAllocation)
		})
	}
}

func TestInstantiate_OneActiveInstance(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	mod, err := e.Load(ctx, guesttest.HostFill(bufferSize))
	if err != nil {
		t.Fatal(err)
	}

	first, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, err = mod.Instantiate(ctx)
	wantError(t, err, errors.PhaseInstantiate, errors.KindContract)

	if err := first.Close(ctx); err != nil {
		t.Fatal(err)
	}
	second, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate after Close failed: %v", err)
	}
	_ = second.Close(ctx)
}

func TestUpdate_HostProvidedBuffer(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	offset, err := inst.Update(ctx, 0x1AB, 7)
	if err != nil {
		t.Fatal(err)
	}
	if offset != inst.HostBufferOffset() {
		t.Errorf("offset = %d, want host buffer offset %d", offset, inst.HostBufferOffset())
	}

	frame := make([]byte, bufferSize)
	if err := inst.ReadFrame(offset, frame); err != nil {
		t.Fatal(err)
	}
	if want := bytes.Repeat([]byte{0xAB}, bufferSize); !bytes.Equal(frame, want) {
		t.Errorf("frame not filled with low byte of ticks: % x...", frame[:6])
	}
}

func TestUpdate_GuestOwnedBuffer(t *testing.T) {
	ctx := context.Background()
	want := make([]byte, bufferSize)
	for i := range want {
		want[i] = byte(i * 7)
	}

	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.StaticFrame(1024, want))

	offset, err := inst.Update(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 1024 {
		t.Errorf("offset = %d, want 1024", offset)
	}

	got := make([]byte, bufferSize)
	if err := inst.ReadFrame(offset, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("guest-owned frame was not copied byte-exact")
	}
}

func TestReadFrame_Bounds(t *testing.T) {
	// After setup the 1-page guest has 2 pages.
	const memSize = 2 * wasmmatrix.PageSize

	tests := []struct {
		name    string
		offset  uint32
		wantErr bool
	}{
		{"last valid offset", memSize - uint32(bufferSize), false},
		{"one byte past", memSize - uint32(bufferSize) + 1, true},
		{"at memory end", memSize, true},
		{"near 2^32", 0xFFFFFFF0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t, nil)
			inst := instantiate(t, e, guesttest.ReturnOffset(tt.offset))

			offset, err := inst.Update(ctx, 0, 0)
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if offset != tt.offset {
				t.Fatalf("offset = %d, want %d", offset, tt.offset)
			}

			err = inst.ReadFrame(offset, make([]byte, bufferSize))
			if tt.wantErr {
				wantError(t, err, errors.PhaseReadback, errors.KindOutOfBounds)
				return
			}
			if err != nil {
				t.Errorf("ReadFrame failed: %v", err)
			}
		})
	}
}

func TestUpdate_TrapPoisonsInstance(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize, guesttest.WithTrapUpdate()))

	_, first := inst.Update(ctx, 1, 0)
	wantError(t, first, errors.PhaseUpdate, errors.KindTrap)

	_, second := inst.Update(ctx, 2, 0)
	if second != first {
		t.Errorf("second call returned %v, want the original error", second)
	}
	if inst.Err() != first {
		t.Errorf("Err() = %v", inst.Err())
	}
	if err := inst.ReadFrame(inst.HostBufferOffset(), make([]byte, bufferSize)); err != first {
		t.Errorf("ReadFrame after trap returned %v", err)
	}
}

func TestReadFrame_BoundsBreachPoisonsInstance(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.ReturnOffset(0xFFFFFF00))

	offset, err := inst.Update(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	breach := inst.ReadFrame(offset, make([]byte, bufferSize))
	wantError(t, breach, errors.PhaseReadback, errors.KindOutOfBounds)

	if inst.Err() != breach {
		t.Errorf("Err() = %v, want the bounds error", inst.Err())
	}
	if _, err := inst.Update(ctx, 1, 1); err != breach {
		t.Errorf("Update after breach returned %v, want the bounds error", err)
	}
	if err := inst.ReadFrame(inst.HostBufferOffset(), make([]byte, bufferSize)); err != breach {
		t.Errorf("ReadFrame after breach returned %v", err)
	}
}

func TestReadFrame_ShortBufferDoesNotPoison(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	offset, err := inst.Update(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	wantError(t, inst.ReadFrame(offset, make([]byte, 3)), errors.PhaseReadback, errors.KindInvalidInput)
	if inst.Err() != nil {
		t.Errorf("host-side error poisoned the instance: %v", inst.Err())
	}
	if err := inst.ReadFrame(offset, make([]byte, bufferSize)); err != nil {
		t.Errorf("ReadFrame failed: %v", err)
	}
}

func TestInstance_NotInitialized(t *testing.T) {
	var inst Instance
	_, err := inst.Update(context.Background(), 0, 0)
	wantError(t, err, errors.PhaseUpdate, errors.KindNotInitialized)
	wantError(t, inst.ReadFrame(0, nil), errors.PhaseReadback, errors.KindNotInitialized)
}

func TestUpdate_RejectsConcurrentCall(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	inst.inFlight.Store(true)
	_, err := inst.Update(ctx, 0, 0)
	wantError(t, err, errors.PhaseUpdate, errors.KindContract)

	err = inst.WriteHostBuffer(make([]byte, bufferSize))
	wantError(t, err, errors.PhaseRender, errors.KindContract)

	inst.inFlight.Store(false)
	if _, err := inst.Update(ctx, 0, 0); err != nil {
		t.Errorf("Update after release failed: %v", err)
	}
}

func TestUpdate_AfterClose(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	if err := inst.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	_, err := inst.Update(ctx, 0, 0)
	wantError(t, err, errors.PhaseUpdate, errors.KindClosed)
}

func TestWriteHostBuffer(t *testing.T) {
	e := newEngine(t, nil)
	inst := instantiate(t, e, guesttest.HostFill(bufferSize))

	pattern := make([]byte, bufferSize)
	for i := range pattern {
		pattern[i] = byte(255 - i%256)
	}
	if err := inst.WriteHostBuffer(pattern); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, bufferSize)
	if err := inst.ReadFrame(inst.HostBufferOffset(), got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pattern) {
		t.Error("host region does not hold the written pattern")
	}

	err := inst.WriteHostBuffer(pattern[:10])
	wantError(t, err, errors.PhaseRender, errors.KindInvalidInput)
}

func TestHostFunctions(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	e := newEngine(t, &Config{Logger: zap.New(core)})
	inst := instantiate(t, e, guesttest.HostLogger())

	entries := logs.FilterMessage("guest log").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 guest log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["message"]; got != guesttest.LogMessage {
		t.Errorf("message = %v, want %q", got, guesttest.LogMessage)
	}

	if _, err := inst.Update(ctx, 42, 0); err != nil {
		t.Fatal(err)
	}
	outputs := logs.FilterMessage("guest output").All()
	if len(outputs) != 1 {
		t.Fatalf("expected 1 guest output entry, got %d", len(outputs))
	}
	if got := outputs[0].ContextMap()["value"]; got != uint64(42) {
		t.Errorf("value = %v, want 42", got)
	}
}

func TestHostFunctions_LogOutOfBounds(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	mod, err := e.Load(ctx, guesttest.BadLogger())
	if err != nil {
		t.Fatal(err)
	}
	_, err = mod.Instantiate(ctx)
	wantError(t, err, errors.PhaseInit, errors.KindTrap)
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)

	t.Run("conforming guest", func(t *testing.T) {
		r, err := e.Inspect(ctx, guesttest.HostLogger())
		if err != nil {
			t.Fatal(err)
		}
		if !r.Conforms() {
			t.Errorf("problems: %v", r.Problems)
		}
		if len(r.Exports) != 2 || r.Exports[0].Name != ExportInit || r.Exports[1].Name != ExportUpdate {
			t.Errorf("Exports = %+v", r.Exports)
		}
		if len(r.Imports) != 2 || r.Imports[0].Module != EnvModule {
			t.Errorf("Imports = %+v", r.Imports)
		}
		if len(r.Memories) != 1 || r.Memories[0] != ExportMemory {
			t.Errorf("Memories = %v", r.Memories)
		}
	})

	t.Run("every problem is reported", func(t *testing.T) {
		wasm := guesttest.HostFill(bufferSize,
			guesttest.WithoutInit(),
			guesttest.WithoutMemory(),
			guesttest.WithImport("custom", "tick"))
		r, err := e.Inspect(ctx, wasm)
		if err != nil {
			t.Fatal(err)
		}
		if len(r.Problems) != 3 {
			t.Errorf("expected 3 problems, got %d: %v", len(r.Problems), r.Problems)
		}
	})
}
