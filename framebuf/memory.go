package framebuf

import (
	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
)

// SliceMemory is a fixed-size in-process linear memory. It backs native
// (non-sandboxed) frame sources and tests with the same bounds-checked
// access path as guest memory.
type SliceMemory struct {
	data []byte
}

// NewSliceMemory allocates size bytes of zeroed memory.
func NewSliceMemory(size int) *SliceMemory {
	return &SliceMemory{data: make([]byte, size)}
}

func (m *SliceMemory) Size() uint32 {
	return uint32(len(m.data))
}

func (m *SliceMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := checkRange(errors.PhaseReadback, offset, int(length), m.Size()); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *SliceMemory) Write(offset uint32, data []byte) error {
	if err := checkRange(errors.PhaseRender, offset, len(data), m.Size()); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *SliceMemory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *SliceMemory) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

var _ wasmmatrix.Memory = (*SliceMemory)(nil)
