package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which binding operation produced the error
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // native library discovery
	PhaseLoad     Phase = "load"     // module or symbol loading
	PhaseCreate   Phase = "create"   // session construction
	PhaseProcess  Phase = "process"  // per-frame processing
	PhaseDestroy  Phase = "destroy"  // handle release
	PhaseValidate Phase = "validate" // configuration validation
)

// Kind categorizes the error
type Kind string

const (
	KindLibraryNotFound    Kind = "library_not_found"
	KindInitFailed         Kind = "init_failed"
	KindLoadFailed         Kind = "load_failed"
	KindInvalidSampleRate  Kind = "invalid_sample_rate"
	KindInvalidFrameLength Kind = "invalid_frame_length"
	KindInvalidMode        Kind = "invalid_mode"
	KindUninitialized      Kind = "uninitialized"
	KindProcessError       Kind = "process_error"
	KindInvalidParameter   Kind = "invalid_parameter"
	KindInvalidArgument    Kind = "invalid_argument"
	KindInternalError      Kind = "internal_error"
	KindUnexpectedStatus   Kind = "unexpected_status"
	KindMissingImport      Kind = "missing_import"
	KindAllocation         Kind = "allocation"
	KindOutOfBounds        Kind = "out_of_bounds"
)

// Class groups kinds by who is at fault.
type Class string

const (
	ClassMisuse      Class = "misuse"      // caller passed bad input or used a closed session
	ClassEngine      Class = "engine"      // the native core reported a failure
	ClassEnvironment Class = "environment" // the native module could not be found or loaded
)

// Class returns the fault class of the kind.
func (k Kind) Class() Class {
	switch k {
	case KindInvalidParameter, KindInvalidArgument, KindUninitialized:
		return ClassMisuse
	case KindLibraryNotFound, KindLoadFailed, KindMissingImport:
		return ClassEnvironment
	default:
		return ClassEngine
	}
}

// Error is the structured error type used throughout the bindings
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Code   int32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("tenvad: ")
	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
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

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is. They match any phase.
var (
	ErrLibraryNotFound    = &Error{Kind: KindLibraryNotFound}
	ErrInitFailed         = &Error{Kind: KindInitFailed}
	ErrLoadFailed         = &Error{Kind: KindLoadFailed}
	ErrInvalidSampleRate  = &Error{Kind: KindInvalidSampleRate}
	ErrInvalidFrameLength = &Error{Kind: KindInvalidFrameLength}
	ErrInvalidMode        = &Error{Kind: KindInvalidMode}
	ErrUninitialized      = &Error{Kind: KindUninitialized}
	ErrProcessError       = &Error{Kind: KindProcessError}
	ErrInvalidParameter   = &Error{Kind: KindInvalidParameter}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrInternalError      = &Error{Kind: KindInternalError}
	ErrUnexpectedStatus   = &Error{Kind: KindUnexpectedStatus}
)

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	var mi *MissingImportsError
	if stderrors.As(err, &mi) {
		return KindMissingImport
	}
	return ""
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

// Code sets the native status code
func (b *Builder) Code(code int32) *Builder {
	b.err.Code = code
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

// InvalidParameter creates a construction-time parameter error
func InvalidParameter(detail string, value any) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindInvalidParameter,
		Detail: detail,
		Value:  value,
	}
}

// FrameLength creates a call-time frame length mismatch error
func FrameLength(got, want int) *Error {
	return &Error{
		Phase:  PhaseProcess,
		Kind:   KindInvalidArgument,
		Detail: fmt.Sprintf("frame length %d does not match hop size %d", got, want),
		Value:  got,
	}
}

// Uninitialized creates an error for an operation on a destroyed session
func Uninitialized(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUninitialized,
		Detail: messages[KindUninitialized],
	}
}

// LibraryNotFound creates a resolution failure listing every probed location
func LibraryNotFound(probed []string, cause error) *Error {
	detail := "no native library found"
	if len(probed) > 0 {
		detail = fmt.Sprintf("no native library found (probed %s)", strings.Join(probed, ", "))
	}
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindLibraryNotFound,
		Detail: detail,
		Cause:  cause,
	}
}

// AllocationFailed creates a guest allocation failure error
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// OutOfBounds creates a guest memory access error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory access out of bounds: offset=%d, length=%d", offset, length),
		Value:  offset,
	}
}

// Load creates an error for a library or module that was found but could
// not be bound
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailed,
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

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module   string // e.g., "env"
	Function string // e.g., "emscripten_asm_const_int"
}

// MissingImportsError is returned when a WASM module imports functions the host does not provide
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module.function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn, _ := strings.Cut(imp, ".")
		result.Imports = append(result.Imports, MissingImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[load] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d host function(s):\n", len(e.Imports))

	// Group by module for cleaner output
	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp.Function)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Kind == KindMissingImport
	}
	return false
}
