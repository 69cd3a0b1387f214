package guesttest

const (
	opUnreachable = 0x00
	opEnd         = 0x0B
	opCall        = 0x10
	opDrop        = 0x1A
	opLocalGet    = 0x20
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load8U   = 0x2D
	opI32Store8   = 0x3A
	opMemorySize  = 0x3F
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32Add      = 0x6A
	opI32WrapI64  = 0xA7
	opMiscPrefix  = 0xFC
	opMemoryFill  = 0x0B
)

func appendU32(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func appendS64(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func Unreachable() []byte { return []byte{opUnreachable} }
func Drop() []byte        { return []byte{opDrop} }
func I32Add() []byte      { return []byte{opI32Add} }
func I32WrapI64() []byte  { return []byte{opI32WrapI64} }
func MemorySize() []byte  { return []byte{opMemorySize, 0x00} }

func I32Const(v int32) []byte { return appendS64([]byte{opI32Const}, int64(v)) }
func I64Const(v int64) []byte { return appendS64([]byte{opI64Const}, v) }

func LocalGet(i uint32) []byte  { return appendU32([]byte{opLocalGet}, i) }
func GlobalGet(i uint32) []byte { return appendU32([]byte{opGlobalGet}, i) }
func GlobalSet(i uint32) []byte { return appendU32([]byte{opGlobalSet}, i) }
func Call(i uint32) []byte      { return appendU32([]byte{opCall}, i) }

// I32Load8U loads one byte from the address on the stack plus offset.
func I32Load8U(offset uint32) []byte {
	return appendU32([]byte{opI32Load8U, 0x00}, offset)
}

// I32Store8 stores the low byte of the value on the stack.
func I32Store8(offset uint32) []byte {
	return appendU32([]byte{opI32Store8, 0x00}, offset)
}

// MemoryFill consumes (dest, value, length) from the stack.
func MemoryFill() []byte {
	return []byte{opMiscPrefix, opMemoryFill, 0x00}
}
