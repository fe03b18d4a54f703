package tenvad

import "context"

// Handle is an opaque reference to one native VAD instance.
// Handle 0 is reserved and always means "no instance".
// Its bit pattern carries no meaning outside the Core that issued it.
type Handle uint64

// Native status codes returned by the core entry points.
const (
	StatusOK                 int32 = 0
	StatusVoice              int32 = 1
	StatusInitFailed         int32 = -1
	StatusInvalidSampleRate  int32 = -2
	StatusInvalidFrameLength int32 = -3
	StatusInvalidMode        int32 = -4
	StatusUninitialized      int32 = -5
	StatusProcessError       int32 = -6
	StatusInvalidParameter   int32 = -7
	StatusInternalError      int32 = -100
)

// Native entry point names as exported by the shared library.
const (
	SymbolCreate     = "ten_vad_create"
	SymbolProcess    = "ten_vad_process"
	SymbolDestroy    = "ten_vad_destroy"
	SymbolGetVersion = "ten_vad_get_version"
)

// Output holds the two scalars written by one process call.
// Callers keep one Output per stream and pass it to every call so the
// streaming path does not allocate per frame.
type Output struct {
	Probability float32
	Flag        int32
}

// Result is the outcome of processing one frame.
type Result struct {
	Probability float32
	Flag        int32
}

// Voice reports whether the core flagged the frame as voice.
func (r Result) Voice() bool {
	return r.Flag == 1
}

// Core is the fixed native call surface of the VAD engine.
// Every host adapter (dynamic library, static cgo, WebAssembly, test stub)
// implements it. Implementations return raw native status codes; mapping to
// errors happens in the session layer.
//
// A Core may be shared by many sessions, but a single Handle must only be
// used by one goroutine at a time.
type Core interface {
	// Create allocates a native instance for frames of hopSize samples.
	Create(ctx context.Context, hopSize int, threshold float32) (Handle, int32)

	// Process runs one frame. frame is borrowed for the duration of the call
	// and out receives the probability and flag.
	Process(ctx context.Context, h Handle, frame []int16, out *Output) int32

	// Destroy releases the native instance and clears *h.
	Destroy(ctx context.Context, h *Handle) int32

	// Version returns the engine version. No instance is required.
	Version(ctx context.Context) string
}

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	ReadF32(offset uint32) (float32, error)
	Size() uint32
}

// Allocator allocates memory in WASM linear memory through the guest's own
// allocator exports.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32)
}
