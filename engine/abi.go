package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-matrix/errors"
)

const (
	ExportInit   = "init"
	ExportUpdate = "update"
	ExportMemory = "memory"
)

// GuestWIT is the export contract every guest must satisfy.
const GuestWIT = `
	init: func();
	update: func(ticks: u64, frame: u64, host-buffer-offset: u32) -> u32;
`

// contractOrder fixes the order in which exports are validated and listed.
var contractOrder = []string{ExportInit, ExportUpdate}

// Signature is a core WebAssembly function type.
type Signature struct {
	Params  []api.ValueType
	Results []api.ValueType
}

func (s Signature) String() string {
	return "(" + valueTypeList(s.Params) + ") -> (" + valueTypeList(s.Results) + ")"
}

// Equal reports whether both signatures have identical parameter and result
// types.
func (s Signature) Equal(o Signature) bool {
	return sameTypes(s.Params, o.Params) && sameTypes(s.Results, o.Results)
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func valueTypeList(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}

// SignatureOf returns the core signature of a compiled function definition.
func SignatureOf(def api.FunctionDefinition) Signature {
	return Signature{Params: def.ParamTypes(), Results: def.ResultTypes()}
}

var guestContract = mustParseContract(GuestWIT)

// Contract returns the lowered guest contract keyed by export name.
func Contract() map[string]Signature {
	out := make(map[string]Signature, len(guestContract))
	for k, v := range guestContract {
		out[k] = v
	}
	return out
}

func mustParseContract(text string) map[string]Signature {
	c, err := parseContract(text)
	if err != nil {
		panic(err)
	}
	return c
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseContract reads `name: func(params) -> result;` declarations and lowers
// each to its core signature.
func parseContract(text string) (map[string]Signature, error) {
	out := make(map[string]Signature)
	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		var sig Signature
		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				typ := strings.TrimSpace(p)
				if idx := strings.LastIndex(typ, ":"); idx != -1 {
					typ = strings.TrimSpace(typ[idx+1:])
				}
				vt, err := lowerWIT(typ)
				if err != nil {
					return nil, err
				}
				sig.Params = append(sig.Params, vt)
			}
		}
		if result := strings.TrimSpace(match[3]); result != "" {
			vt, err := lowerWIT(result)
			if err != nil {
				return nil, err
			}
			sig.Results = []api.ValueType{vt}
		}
		out[match[1]] = sig
	}
	if len(out) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "no functions found in WIT text")
	}
	return out, nil
}

// lowerWIT maps a scalar WIT type to its flat core type.
func lowerWIT(s string) (api.ValueType, error) {
	t, err := wit.ParseType(s)
	if err != nil {
		return 0, fmt.Errorf("parse WIT type %q: %w", s, err)
	}
	switch t.(type) {
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("WIT type %q has no single core representation", s)
	}
}

// checkExports validates the export surface of a compiled module. Problems
// are returned in contract order, memory last.
func checkExports(funcs map[string]api.FunctionDefinition, mems map[string]api.MemoryDefinition) []error {
	var problems []error
	for _, name := range contractOrder {
		want := guestContract[name]
		def, ok := funcs[name]
		if !ok {
			problems = append(problems, errors.MissingExport(name))
			continue
		}
		if got := SignatureOf(def); !got.Equal(want) {
			problems = append(problems, errors.SignatureMismatch(name, want.String(), got.String()))
		}
	}
	if _, ok := mems[ExportMemory]; !ok {
		problems = append(problems, errors.MissingMemory(ExportMemory))
	}
	return problems
}
