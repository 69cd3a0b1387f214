package engine

import (
	"context"
	goerrors "errors"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
	"github.com/wippyai/wasm-matrix/framebuf"
)

// Instance is a live guest. Calls into it are strictly sequential: a call
// made while another is in flight is rejected, never queued.
type Instance struct {
	module api.Module
	init   api.Function
	update api.Function
	memory *Memory
	engine *Engine
	log    *zap.Logger
	stdout *zapio.Writer
	stderr *zapio.Writer

	grid       wasmmatrix.Grid
	hostOffset uint32
	stack      []uint64

	inFlight atomic.Bool
	closed   atomic.Bool
	failed   atomic.Pointer[errors.Error]
}

// setup reserves the host region and calls init.
func (i *Instance) setup(ctx context.Context, reservePages uint32) error {
	offset, err := i.memory.Grow(reservePages)
	if err != nil {
		return err
	}
	i.hostOffset = offset

	if end := uint64(offset) + uint64(i.grid.BufferSize()); end > uint64(i.memory.Size()) {
		return errors.New(errors.PhaseInstantiate, errors.KindContract).
			Value(offset).
			Detail("host region [%d, %d) exceeds memory size %d", offset, end, i.memory.Size()).
			Build()
	}

	if err := i.enter(errors.PhaseInit); err != nil {
		return err
	}
	defer i.leave()

	if _, err := i.init.Call(ctx); err != nil {
		return i.poison(errors.Trap(errors.PhaseInit, ExportInit, err))
	}
	return nil
}

func (i *Instance) enter(phase errors.Phase) error {
	if i.module == nil {
		return errors.NotInitialized(phase, "guest instance")
	}
	if i.closed.Load() {
		return errors.New(phase, errors.KindClosed).Detail("guest instance is closed").Build()
	}
	if !i.inFlight.CompareAndSwap(false, true) {
		return errors.Contract(phase, "guest call already in flight")
	}
	if failed := i.failed.Load(); failed != nil {
		i.inFlight.Store(false)
		return failed
	}
	return nil
}

// poison records the first fatal error. Every later call returns it.
func (i *Instance) poison(err *errors.Error) error {
	i.failed.CompareAndSwap(nil, err)
	return i.failed.Load()
}

func (i *Instance) leave() {
	i.inFlight.Store(false)
}

// Update calls update(ticks, frame, host_buffer_offset) and returns the
// offset of the frame the guest rendered. The frame at that offset is valid
// until the next call into the guest.
func (i *Instance) Update(ctx context.Context, ticks, frame uint64) (uint32, error) {
	if err := i.enter(errors.PhaseUpdate); err != nil {
		return 0, err
	}
	defer i.leave()

	i.stack[0] = ticks
	i.stack[1] = frame
	i.stack[2] = api.EncodeU32(i.hostOffset)
	if err := i.update.CallWithStack(ctx, i.stack); err != nil {
		i.log.Error("guest update failed",
			zap.Uint64("ticks", ticks),
			zap.Uint64("frame", frame),
			zap.Error(err))
		return 0, i.poison(errors.Trap(errors.PhaseUpdate, ExportUpdate, err))
	}
	return api.DecodeU32(i.stack[0]), nil
}

// HostBufferOffset is the base of the region reserved for the host-provided
// buffer variant.
func (i *Instance) HostBufferOffset() uint32 {
	return i.hostOffset
}

// Grid returns the grid the instance renders.
func (i *Instance) Grid() wasmmatrix.Grid {
	return i.grid
}

// Memory returns the bounds-checked view of guest memory.
func (i *Instance) Memory() wasmmatrix.Memory {
	return i.memory
}

// WriteHostBuffer writes one pixel buffer into the reserved region. It is
// rejected while a guest call is in flight.
func (i *Instance) WriteHostBuffer(src []byte) error {
	if err := i.enter(errors.PhaseRender); err != nil {
		return err
	}
	defer i.leave()
	return framebuf.WriteRegion(i.memory, i.grid, i.hostOffset, src)
}

// ReadFrame copies the frame at offset into dst. An offset outside guest
// memory breaks the ABI and poisons the instance.
func (i *Instance) ReadFrame(offset uint32, dst []byte) error {
	if err := i.enter(errors.PhaseReadback); err != nil {
		return err
	}
	defer i.leave()
	err := framebuf.CopyOut(i.memory, i.grid, offset, dst)
	var e *errors.Error
	if goerrors.As(err, &e) && e.Kind == errors.KindOutOfBounds {
		i.log.Error("guest returned frame outside memory", zap.Uint32("offset", offset), zap.Error(err))
		return i.poison(e)
	}
	return err
}

// Err returns the error that poisoned the instance, if any.
func (i *Instance) Err() error {
	if failed := i.failed.Load(); failed != nil {
		return failed
	}
	return nil
}

// Close tears the instance down. It is safe to call more than once.
func (i *Instance) Close(ctx context.Context) error {
	if !i.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer i.engine.release(i)
	_ = i.stdout.Close()
	_ = i.stderr.Close()
	if i.module == nil {
		return nil
	}
	return i.module.Close(ctx)
}
