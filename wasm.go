package wasmmatrix

// Memory is a bounds-checked view of a guest's linear memory.
// Implementations validate offset+length against Size before touching
// memory; a failed check never reads or writes a byte.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	WriteU8(offset uint32, value uint8) error
	MemorySizer
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// PageSize is the WebAssembly linear memory page size.
const PageSize = 65536
