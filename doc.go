// Package tenvad provides Go bindings for the TEN voice activity detector.
//
// The detector itself (feature extraction and neural inference) is a closed
// native component reachable only through four C entry points: create,
// process, destroy and get_version. This module implements the layer around
// them: handle lifecycle, the streaming frame contract, status code mapping,
// native library discovery and the WebAssembly memory ownership model.
//
// # Architecture Overview
//
//	tenvad/          Root package with the Core call surface and shared types
//	├── vad/         High-level API: New, Process, Close
//	├── session/     Session state machine over one native handle
//	├── errors/      Structured error taxonomy for native status codes
//	├── resolver/    Platform library table and one-time library loading
//	├── native/      Dynamic (purego) and static (cgo) native cores
//	├── engine/      wazero-backed WebAssembly core
//	├── resource/    Opaque handle token table
//	├── metrics/     Prometheus collectors
//	├── config/      YAML configuration for the CLI
//	├── mock/        Call-counting stub core for tests
//	├── internal/    WASM stub module generator, WAV file I/O
//	└── cmd/tenvad/  Command line demo: version, resolve, run, watch
//
// # Quick Start
//
//	v, err := vad.New(256, 0.5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Close()
//
//	prob, voice, err := v.Process(frame) // len(frame) == 256
//
// # Thread Safety
//
// A Core may be shared by many sessions. A Session serializes its own calls,
// so concurrent Process calls on one Session are safe but run one at a time.
// Frames are borrowed for the duration of a call and never retained.
//
// # Memory Model
//
// Native handles are owned by exactly one Session. Close releases the handle;
// a runtime cleanup releases it if the Session becomes unreachable first.
// Exactly one of the two reaches the native destroy entry point.
//
// For the WebAssembly core, every call copies the frame into guest memory
// allocated with the guest's malloc and frees it before returning. WASM linear
// memory can only grow, never shrink.
package tenvad
