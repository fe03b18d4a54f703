// Package engine hosts the VAD core compiled to WebAssembly.
//
// This package wraps wazero to run an emscripten build of the core and
// expose it as a tenvad.Core. The host serves the WASI preview1 imports and
// the small set of emscripten env imports a standalone build references;
// anything else fails at load time with *errors.MissingImportsError.
//
// # Architecture
//
//	WazeroEngine   - Owns the wazero runtime and the shared host modules
//	WazeroModule   - A compiled module whose imports have been checked
//	WazeroInstance - A running module; implements tenvad.Core
//	Loader         - Exactly-once instantiation with a cached result
//
// # Memory Ownership
//
// Every guest call follows the same protocol:
//
//	create:  malloc(4) handle slot -> create(slot, hop, threshold) -> read slot -> free
//	process: malloc(2*hop) frame, malloc(4) probability, malloc(4) flag
//	         -> copy samples little-endian -> process(...) -> read outputs -> free all
//	destroy: malloc(4) slot <- guest handle -> destroy(slot) -> free
//
// Scratch buffers never outlive the call that allocated them. Guest handles
// are addresses in linear memory and stay inside the instance; callers see
// only an opaque token from a resource.Table.
//
// # Thread Safety
//
// A wasm instance is single-threaded. WazeroInstance serializes all guest
// calls with a mutex, so it may be shared by many sessions.
//
// # Export Names
//
// Emscripten prefixes C symbols with an underscore. Use PrefixedExports or
// set InstanceConfig.Exports for builds that name them differently.
package engine
