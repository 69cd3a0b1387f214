package guesttest

import (
	"bytes"
	"testing"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"u32 zero", appendU32(nil, 0), []byte{0x00}},
		{"u32 127", appendU32(nil, 127), []byte{0x7F}},
		{"u32 128", appendU32(nil, 128), []byte{0x80, 0x01}},
		{"u32 768", appendU32(nil, 768), []byte{0x80, 0x06}},
		{"s64 -1", appendS64(nil, -1), []byte{0x7F}},
		{"s64 63", appendS64(nil, 63), []byte{0x3F}},
		{"s64 64", appendS64(nil, 64), []byte{0xC0, 0x00}},
		{"s64 768", appendS64(nil, 768), []byte{0x80, 0x06}},
		{"s64 -128", appendS64(nil, -128), []byte{0x80, 0x7F}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("got % x, want % x", tt.got, tt.want)
			}
		})
	}
}

func TestEmptyModule(t *testing.T) {
	want := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	if got := New().Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestMinimalExport(t *testing.T) {
	m := New()
	m.ExportFunc("f", m.Func(nil, nil, nil))
	got := m.Bytes()
	want := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x04, 0x01, 0x60, 0x00, 0x00, // type: () -> ()
		0x03, 0x02, 0x01, 0x00, // func 0 uses type 0
		0x07, 0x05, 0x01, 0x01, 'f', 0x00, 0x00, // export "f" func 0
		0x0A, 0x04, 0x01, 0x02, 0x00, 0x0B, // body: no locals, end
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x\nwant % x", got, want)
	}
}

func TestTypeDeduplication(t *testing.T) {
	m := New()
	m.Func([]ValType{I32}, nil, nil)
	m.Func([]ValType{I32}, nil, nil)
	m.Func([]ValType{I64}, nil, nil)
	if len(m.types) != 2 {
		t.Errorf("types = %d, want 2", len(m.types))
	}
}

func TestImportAfterFuncPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m := New()
	m.Func(nil, nil, nil)
	m.Import("env", "late", nil, nil)
}

func TestFunctionIndexSpace(t *testing.T) {
	m := New()
	if idx := m.Import("env", "a", nil, nil); idx != 0 {
		t.Errorf("import index = %d", idx)
	}
	if idx := m.Import("env", "b", nil, nil); idx != 1 {
		t.Errorf("import index = %d", idx)
	}
	if idx := m.Func(nil, nil, nil); idx != 2 {
		t.Errorf("func index = %d, want 2", idx)
	}
}
