package engine

import (
	"github.com/tetratelabs/wazero/api"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
)

// Memory is the only path through which the host touches guest memory.
// Every access is range-checked in 64-bit arithmetic before wazero sees it.
type Memory struct {
	mem api.Memory
}

func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

func (m *Memory) check(phase errors.Phase, offset uint32, length int) error {
	if uint64(offset)+uint64(length) > uint64(m.mem.Size()) {
		return errors.OutOfBounds(phase, offset, uint64(length), m.mem.Size())
	}
	return nil
}

// Read returns a view of guest memory. The view aliases guest memory and is
// only valid until the next guest call.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(errors.PhaseReadback, offset, int(length)); err != nil {
		return nil, err
	}
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseReadback, offset, uint64(length), m.mem.Size())
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if err := m.check(errors.PhaseHost, offset, len(data)); err != nil {
		return err
	}
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseHost, offset, uint64(len(data)), m.mem.Size())
	}
	return nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	data, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (m *Memory) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

// Grow adds pages to guest memory and returns the previous size in bytes.
func (m *Memory) Grow(pages uint32) (uint32, error) {
	prev, ok := m.mem.Grow(pages)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseInstantiate, pages, nil)
	}
	return prev * wasmmatrix.PageSize, nil
}

var _ wasmmatrix.Memory = (*Memory)(nil)
