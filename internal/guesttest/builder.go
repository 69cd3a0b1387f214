// Package guesttest assembles small WebAssembly guest modules in memory so
// the host can be tested against the exact ABI without a guest toolchain.
package guesttest

import (
	"bytes"
	"encoding/binary"
)

// ValType is a core WebAssembly value type.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02
)

type funcType struct {
	params  []ValType
	results []ValType
}

type importFunc struct {
	module string
	name   string
	typ    uint32
}

type function struct {
	typ    uint32
	locals []ValType
	body   []byte
}

type export struct {
	name  string
	kind  byte
	index uint32
}

type dataSegment struct {
	offset uint32
	data   []byte
}

type memoryLimits struct {
	min    uint32
	max    uint32
	hasMax bool
}

// Module accumulates sections and encodes them in canonical order.
// Imports must be declared before any function so indices stay stable.
type Module struct {
	types   []funcType
	imports []importFunc
	funcs   []function
	memory  *memoryLimits
	globals []int32
	exports []export
	data    []dataSegment
}

// New returns an empty module.
func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	for i, t := range m.types {
		if bytes.Equal(valBytes(t.params), valBytes(params)) && bytes.Equal(valBytes(t.results), valBytes(results)) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *Module) Import(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("guesttest: imports must be declared before functions")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typ: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its index. body is the instruction
// stream without the trailing end opcode.
func (m *Module) Func(params, results, locals []ValType, body ...[]byte) uint32 {
	m.funcs = append(m.funcs, function{
		typ:    m.typeIndex(params, results),
		locals: locals,
		body:   bytes.Join(body, nil),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the single linear memory with a minimum page count.
func (m *Module) Memory(min uint32) *Module {
	m.memory = &memoryLimits{min: min}
	return m
}

// MemoryMax declares the linear memory with both limits.
func (m *Module) MemoryMax(min, max uint32) *Module {
	m.memory = &memoryLimits{min: min, max: max, hasMax: true}
	return m
}

// Global declares a mutable i32 global and returns its index.
func (m *Module) Global(init int32) uint32 {
	m.globals = append(m.globals, init)
	return uint32(len(m.globals) - 1)
}

// ExportFunc exports function index under name.
func (m *Module) ExportFunc(name string, index uint32) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, index: index})
	return m
}

// ExportMemory exports memory 0 under name.
func (m *Module) ExportMemory(name string) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindMemory})
	return m
}

// Data places an active data segment at offset in memory 0.
func (m *Module) Data(offset uint32, data []byte) *Module {
	m.data = append(m.data, dataSegment{offset: offset, data: data})
	return m
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	out := &writer{}
	out.raw([]byte{0x00, 0x61, 0x73, 0x6D})
	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], 1)
	out.raw(version[:])

	if len(m.types) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.types)))
		for _, t := range m.types {
			sec.byte(0x60)
			sec.vals(t.params)
			sec.vals(t.results)
		}
		out.section(sectionType, sec)
	}

	if len(m.imports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.byte(kindFunc)
			sec.u32(imp.typ)
		}
		out.section(sectionImport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.u32(f.typ)
		}
		out.section(sectionFunction, sec)
	}

	if m.memory != nil {
		sec := &writer{}
		sec.u32(1)
		if m.memory.hasMax {
			sec.byte(0x01)
			sec.u32(m.memory.min)
			sec.u32(m.memory.max)
		} else {
			sec.byte(0x00)
			sec.u32(m.memory.min)
		}
		out.section(sectionMemory, sec)
	}

	if len(m.globals) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.byte(byte(I32))
			sec.byte(0x01)
			sec.raw(I32Const(g))
			sec.byte(opEnd)
		}
		out.section(sectionGlobal, sec)
	}

	if len(m.exports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.name(e.name)
			sec.byte(e.kind)
			sec.u32(e.index)
		}
		out.section(sectionExport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			body := &writer{}
			body.u32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.u32(1)
				body.byte(byte(l))
			}
			body.raw(f.body)
			body.byte(opEnd)
			sec.u32(uint32(body.buf.Len()))
			sec.raw(body.buf.Bytes())
		}
		out.section(sectionCode, sec)
	}

	if len(m.data) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.data)))
		for _, d := range m.data {
			sec.byte(0x00)
			sec.raw(I32Const(int32(d.offset)))
			sec.byte(opEnd)
			sec.u32(uint32(len(d.data)))
			sec.raw(d.data)
		}
		out.section(sectionData, sec)
	}

	return out.buf.Bytes()
}

func valBytes(types []ValType) []byte {
	b := make([]byte, len(types))
	for i, t := range types {
		b[i] = byte(t)
	}
	return b
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) raw(b []byte) {
	w.buf.Write(b)
}

func (w *writer) u32(v uint32) {
	w.raw(appendU32(nil, v))
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) vals(types []ValType) {
	w.u32(uint32(len(types)))
	w.raw(valBytes(types))
}

func (w *writer) section(id byte, body *writer) {
	w.byte(id)
	w.u32(uint32(body.buf.Len()))
	w.raw(body.buf.Bytes())
}
