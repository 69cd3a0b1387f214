package framebuf

import (
	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/errors"
)

// checkRange verifies offset+length <= size in 64-bit arithmetic so that
// offsets near 2^32 cannot wrap around.
func checkRange(phase errors.Phase, offset uint32, length int, size uint32) error {
	if length < 0 || uint64(offset)+uint64(length) > uint64(size) {
		return errors.OutOfBounds(phase, offset, uint64(length), size)
	}
	return nil
}

// CheckBounds reports whether a full pixel buffer for grid fits at offset
// inside mem. It performs no reads.
func CheckBounds(mem wasmmatrix.MemorySizer, grid wasmmatrix.Grid, offset uint32) error {
	return checkRange(errors.PhaseReadback, offset, grid.BufferSize(), mem.Size())
}

// CopyOut copies the pixel buffer at offset into dst. dst must be exactly
// one buffer long. The bounds check happens before any byte is read; a
// failing check is an ABI contract breach.
func CopyOut(mem wasmmatrix.Memory, grid wasmmatrix.Grid, offset uint32, dst []byte) error {
	size := grid.BufferSize()
	if len(dst) != size {
		return errors.InvalidInput(errors.PhaseReadback, "destination is not one pixel buffer long")
	}
	if err := CheckBounds(mem, grid, offset); err != nil {
		return err
	}
	view, err := mem.Read(offset, uint32(size))
	if err != nil {
		return errors.Wrap(errors.PhaseReadback, errors.KindOutOfBounds, err, "read pixel buffer")
	}
	copy(dst, view)
	return nil
}

// WriteRegion writes one pixel buffer into guest memory at offset. Callers
// must only do this between guest calls.
func WriteRegion(mem wasmmatrix.Memory, grid wasmmatrix.Grid, offset uint32, src []byte) error {
	if len(src) != grid.BufferSize() {
		return errors.InvalidInput(errors.PhaseRender, "source is not one pixel buffer long")
	}
	if err := checkRange(errors.PhaseRender, offset, len(src), mem.Size()); err != nil {
		return err
	}
	if err := mem.Write(offset, src); err != nil {
		return errors.Wrap(errors.PhaseRender, errors.KindOutOfBounds, err, "write host region")
	}
	return nil
}

// PagesFor returns the number of 64 KiB pages needed to hold size bytes,
// at least one.
func PagesFor(size int) uint32 {
	if size <= 0 {
		return 1
	}
	return uint32((size + wasmmatrix.PageSize - 1) / wasmmatrix.PageSize)
}

// Reader owns the host-local copy of the live frame and reuses it across
// cycles. It is not safe for concurrent use; the render loop is its only
// owner.
type Reader struct {
	grid wasmmatrix.Grid
	buf  []byte
}

// NewReader allocates a host-local buffer for grid.
func NewReader(grid wasmmatrix.Grid) *Reader {
	return &Reader{grid: grid, buf: make([]byte, grid.BufferSize())}
}

// Read copies the frame at offset out of mem and returns the host-local
// buffer. The returned slice is overwritten by the next Read.
func (r *Reader) Read(mem wasmmatrix.Memory, offset uint32) ([]byte, error) {
	if err := CopyOut(mem, r.grid, offset, r.buf); err != nil {
		return nil, err
	}
	return r.buf, nil
}

// Grid returns the grid the reader was built for.
func (r *Reader) Grid() wasmmatrix.Grid {
	return r.grid
}
