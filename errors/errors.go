package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in the render pipeline the error occurred
type Phase string

const (
	PhaseConfig      Phase = "config"      // configuration loading
	PhaseLoad        Phase = "load"        // module compilation
	PhaseValidate    Phase = "validate"    // export ABI validation
	PhaseInstantiate Phase = "instantiate" // instantiation and memory reservation
	PhaseInit        Phase = "init"        // guest init call
	PhaseUpdate      Phase = "update"      // guest update call
	PhaseReadback    Phase = "readback"    // pixel buffer copy-out
	PhaseRender      Phase = "render"      // host render loop
	PhaseOutput      Phase = "output"      // output sink
	PhaseHost        Phase = "host"        // host functions called by the guest
)

// Kind categorizes the error
type Kind string

const (
	KindMissingExport     Kind = "missing_export"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindMissingMemory     Kind = "missing_memory"
	KindMissingImport     Kind = "missing_import"
	KindInvalidData       Kind = "invalid_data"
	KindAllocation        Kind = "allocation"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindTrap              Kind = "trap"
	KindContract          Kind = "contract"
	KindClock             Kind = "clock"
	KindInvalidInput      Kind = "invalid_input"
	KindNotInitialized    Kind = "not_initialized"
	KindInstantiation     Kind = "instantiation"
	KindClosed            Kind = "closed"
	KindIO                Kind = "io"
)

// Error is the structured error type used throughout the host
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Export string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Export != "" {
		b.WriteString(" at export ")
		b.WriteString(e.Export)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Export sets the guest export the error refers to
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MissingExport reports a required guest export that is absent
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindMissingExport,
		Export: name,
		Detail: "required export not found",
	}
}

// SignatureMismatch reports an export whose core signature differs from the contract
func SignatureMismatch(name, want, got string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindSignatureMismatch,
		Export: name,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// MissingMemory reports a guest that does not export its linear memory
func MissingMemory(name string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindMissingMemory,
		Export: name,
		Detail: "guest must export its linear memory",
	}
}

// AllocationFailed reports a failed memory growth
func AllocationFailed(phase Phase, pages uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to grow guest memory by %d page(s)", pages),
		Value:  pages,
		Cause:  cause,
	}
}

// OutOfBounds reports a memory access that would leave guest memory
func OutOfBounds(phase Phase, offset uint32, length uint64, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) exceeds memory size %d", offset, uint64(offset)+length, size),
		Value:  offset,
	}
}

// Trap wraps a failed guest call
func Trap(phase Phase, export string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrap,
		Export: export,
		Detail: "guest call failed",
		Cause:  cause,
	}
}

// Contract reports a violation of the host/guest calling contract
func Contract(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindContract,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsFatal reports whether err belongs to the fatal taxonomy: configuration
// errors, resource exhaustion and runtime contract violations. The host has
// no mid-run recovery path for any of them.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind != KindInvalidInput
	}
	var m *MissingImportsError
	return errors.As(err, &m)
}

// MissingImport represents a single unresolved guest import
type MissingImport struct {
	Module   string // e.g., "env"
	Function string // e.g., "set_pixel"
}

// MissingImportsError is returned when a guest imports functions the host does not provide
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func parseImportKey(key string) (module, function string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

// demangleRust attempts to extract a readable function name from a mangled
// Rust symbol. Rust guests built without #[no_mangle] on imports produce these.
func demangleRust(name string) string {
	if !strings.HasPrefix(name, "_ZN") {
		return name
	}

	// Format: _ZN<len><name><len><name>...E
	s := name[3:]
	var parts []string

	for len(s) > 0 && s[0] != 'E' {
		lenEnd := 0
		for lenEnd < len(s) && s[lenEnd] >= '0' && s[lenEnd] <= '9' {
			lenEnd++
		}
		if lenEnd == 0 {
			break
		}

		length := 0
		for i := 0; i < lenEnd; i++ {
			length = length*10 + int(s[i]-'0')
		}
		s = s[lenEnd:]

		if length > len(s) {
			break
		}

		part := s[:length]
		s = s[length:]

		// Skip 17 char hash suffixes starting with 'h'
		if len(part) == 17 && part[0] == 'h' && isHex(part[1:]) {
			continue
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return name
	}

	return strings.Join(parts, "::")
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[validate] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[validate] missing_import: host does not provide %d import(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byMod := make(map[string][]string)
	for _, imp := range e.Imports {
		byMod[imp.Module] = append(byMod[imp.Module], demangleRust(imp.Function))
	}
	mods := make([]string, 0, len(byMod))
	for mod := range byMod {
		mods = append(mods, mod)
	}
	sort.Strings(mods)

	for _, mod := range mods {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byMod[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
