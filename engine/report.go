package engine

import (
	"sort"

	"github.com/tetratelabs/wazero"
)

// ExportInfo describes one exported function.
type ExportInfo struct {
	Name      string
	Signature Signature
}

// ImportInfo describes one imported function.
type ImportInfo struct {
	Module    string
	Name      string
	Signature Signature
}

// Report is the static view of a guest produced by Engine.Inspect.
type Report struct {
	Exports  []ExportInfo
	Imports  []ImportInfo
	Memories []string
	Problems []error
}

// Conforms reports whether the guest satisfies the ABI.
func (r *Report) Conforms() bool {
	return len(r.Problems) == 0
}

func newReport(compiled wazero.CompiledModule) *Report {
	r := &Report{}

	funcs := compiled.ExportedFunctions()
	for name, def := range funcs {
		r.Exports = append(r.Exports, ExportInfo{Name: name, Signature: SignatureOf(def)})
	}
	sort.Slice(r.Exports, func(a, b int) bool { return r.Exports[a].Name < r.Exports[b].Name })

	imports := compiled.ImportedFunctions()
	for _, def := range imports {
		mod, name, _ := def.Import()
		r.Imports = append(r.Imports, ImportInfo{Module: mod, Name: name, Signature: SignatureOf(def)})
	}

	mems := compiled.ExportedMemories()
	for name := range mems {
		r.Memories = append(r.Memories, name)
	}
	sort.Strings(r.Memories)

	r.Problems = checkExports(funcs, mems)
	if _, err := checkImports(imports, compiled.ImportedMemories()); err != nil {
		r.Problems = append(r.Problems, err)
	}
	return r
}
