// Package wasmstub emits a small WebAssembly module that exposes the VAD
// core exports with emscripten naming. Tests use it to drive the wazero
// host without a real inference build.
//
// The stub keeps a bump allocator behind _malloc/_free, issues handles
// from a counter, and computes a deterministic output from the last
// sample of each frame:
//
//	probability = sample / 32768
//	flag        = sample > 16383
//
// It exports the globals live_allocs, destroy_count and process_count so
// tests can check scratch buffers are freed and destroy runs once.
package wasmstub

import "strings"

// Options configures the generated module.
type Options struct {
	// Version is the string returned by get_version. Defaults to "stub-1.0.0".
	Version string

	// Prefix is prepended to every function export. Defaults to "_".
	// Set NoPrefix to export bare names.
	Prefix   string
	NoPrefix bool

	// CreateStatus, if non-zero, makes create return it without writing a handle.
	CreateStatus int32

	// ProcessStatus is returned by every process call that passes its checks.
	ProcessStatus int32

	// Initialize adds an _initialize export that sets the initialized global.
	Initialize bool

	// Imports lists "module.name" functions of type (i32) -> () to import.
	Imports []string
}

const (
	DefaultVersion = "stub-1.0.0"
	versionOffset  = 16
	heapBase       = 1024
)

// Exported global names.
const (
	GlobalLiveAllocs   = "live_allocs"
	GlobalDestroyCount = "destroy_count"
	GlobalProcessCount = "process_count"
	GlobalInitialized  = "initialized"
)

const (
	gHeap uint32 = iota
	gLive
	gNextHandle
	gDestroyCount
	gProcessCount
	gInitialized
)

// type indexes
const (
	tI32ToI32 uint32 = iota
	tI32ToVoid
	tCreate
	tProcess
	tVoidToI32
	tVoidToVoid
)

const (
	i32 = 0x7f
	f32 = 0x7d
)

// Build returns the encoded module.
func Build(opts Options) []byte {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	prefix := "_"
	if opts.Prefix != "" {
		prefix = opts.Prefix
	}
	if opts.NoPrefix {
		prefix = ""
	}

	w := &writer{}
	w.u32le(0x6d736100) // \0asm
	w.u32le(1)

	types := &writer{}
	sigs := [][2][]byte{
		{{i32}, {i32}},
		{{i32}, nil},
		{{i32, i32, f32}, {i32}},
		{{i32, i32, i32, i32, i32}, {i32}},
		{nil, {i32}},
		{nil, nil},
	}
	types.u32(uint32(len(sigs)))
	for _, s := range sigs {
		types.byte(0x60)
		types.u32(uint32(len(s[0])))
		types.byte(s[0]...)
		types.u32(uint32(len(s[1])))
		types.byte(s[1]...)
	}
	w.section(1, types)

	if len(opts.Imports) > 0 {
		imports := &writer{}
		imports.u32(uint32(len(opts.Imports)))
		for _, imp := range opts.Imports {
			mod, name, _ := strings.Cut(imp, ".")
			imports.name(mod)
			imports.name(name)
			imports.byte(0x00)
			imports.u32(tI32ToVoid)
		}
		w.section(2, imports)
	}

	type fn struct {
		name string
		typ  uint32
		body func(*writer)
		// extra i32 locals
		locals uint32
	}
	fns := []fn{
		{"malloc", tI32ToI32, emitMalloc, 1},
		{"free", tI32ToVoid, emitFree, 0},
		{"ten_vad_create", tCreate, func(c *writer) { emitCreate(c, opts.CreateStatus) }, 0},
		{"ten_vad_process", tProcess, func(c *writer) { emitProcess(c, opts.ProcessStatus) }, 1},
		{"ten_vad_destroy", tI32ToI32, emitDestroy, 0},
		{"ten_vad_get_version", tVoidToI32, emitVersion, 0},
	}
	if opts.Initialize {
		fns = append(fns, fn{"initialize", tVoidToVoid, emitInitialize, 0})
	}

	funcs := &writer{}
	funcs.u32(uint32(len(fns)))
	for _, f := range fns {
		funcs.u32(f.typ)
	}
	w.section(3, funcs)

	mem := &writer{}
	mem.u32(1)
	mem.byte(0x00)
	mem.u32(1)
	w.section(5, mem)

	globals := &writer{}
	inits := []int32{heapBase, 0, 1, 0, 0, 0}
	globals.u32(uint32(len(inits)))
	for _, v := range inits {
		globals.byte(i32, 0x01)
		globals.i32Const(v)
		globals.end()
	}
	w.section(6, globals)

	base := uint32(len(opts.Imports))
	exports := &writer{}
	exports.u32(uint32(len(fns) + 5))
	exports.name("memory")
	exports.byte(0x02)
	exports.u32(0)
	for i, f := range fns {
		exports.name(prefix + f.name)
		exports.byte(0x00)
		exports.u32(base + uint32(i))
	}
	for _, g := range []struct {
		name string
		idx  uint32
	}{
		{GlobalLiveAllocs, gLive},
		{GlobalDestroyCount, gDestroyCount},
		{GlobalProcessCount, gProcessCount},
		{GlobalInitialized, gInitialized},
	} {
		exports.name(g.name)
		exports.byte(0x03)
		exports.u32(g.idx)
	}
	w.section(7, exports)

	code := &writer{}
	code.u32(uint32(len(fns)))
	for _, f := range fns {
		body := &writer{}
		if f.locals > 0 {
			body.u32(1)
			body.u32(f.locals)
			body.byte(i32)
		} else {
			body.u32(0)
		}
		f.body(body)
		code.u32(uint32(body.buf.Len()))
		code.byte(body.bytes()...)
	}
	w.section(10, code)

	data := &writer{}
	data.u32(1)
	data.u32(0)
	data.i32Const(versionOffset)
	data.end()
	data.u32(uint32(len(opts.Version) + 1))
	data.byte([]byte(opts.Version)...)
	data.byte(0)
	w.section(11, data)

	return w.bytes()
}

// malloc(size) -> ptr: 8-aligned bump allocation, growing memory as needed.
func emitMalloc(c *writer) {
	c.globalGet(gHeap)
	c.i32Const(7)
	c.byte(opI32Add)
	c.i32Const(-8)
	c.byte(opI32And)
	c.localTee(1)
	c.localGet(0)
	c.byte(opI32Add)
	c.globalSet(gHeap)

	c.block()
	c.globalGet(gHeap)
	c.memorySize()
	c.i32Const(16)
	c.byte(opI32Shl)
	c.byte(opI32LeU)
	c.brIf(0)
	c.globalGet(gHeap)
	c.memorySize()
	c.i32Const(16)
	c.byte(opI32Shl)
	c.byte(opI32Sub)
	c.i32Const(0xffff)
	c.byte(opI32Add)
	c.i32Const(16)
	c.byte(opI32ShrU)
	c.memoryGrow()
	c.i32Const(-1)
	c.byte(opI32Eq)
	c.ifEmpty()
	c.i32Const(0)
	c.ret()
	c.end()
	c.end()

	c.incGlobal(gLive, 1)
	c.localGet(1)
	c.end()
}

// free(ptr): the heap resets once every allocation has been released.
func emitFree(c *writer) {
	c.localGet(0)
	c.byte(opI32Eqz)
	c.ifEmpty()
	c.ret()
	c.end()

	c.incGlobal(gLive, -1)
	c.globalGet(gLive)
	c.byte(opI32Eqz)
	c.ifEmpty()
	c.i32Const(heapBase)
	c.globalSet(gHeap)
	c.end()
	c.end()
}

// create(handle*, hop, threshold) -> status
func emitCreate(c *writer, status int32) {
	if status != 0 {
		c.i32Const(status)
		c.end()
		return
	}
	c.returnIfZero(0, -7)
	c.localGet(0)
	c.globalGet(gNextHandle)
	c.i32Store()
	c.incGlobal(gNextHandle, 1)
	c.i32Const(0)
	c.end()
}

// process(handle, frame*, len, prob*, flag*) -> status
func emitProcess(c *writer, status int32) {
	c.returnIfZero(0, -5)
	c.returnIfZero(2, -3)

	// sample = frame[len-1]
	c.localGet(1)
	c.localGet(2)
	c.i32Const(1)
	c.byte(opI32Shl)
	c.byte(opI32Add)
	c.i32Const(2)
	c.byte(opI32Sub)
	c.i32Load16S()
	c.localSet(5)

	c.localGet(3)
	c.localGet(5)
	c.byte(opF32ConvertI32S)
	c.f32Const(1.0 / 32768)
	c.byte(opF32Mul)
	c.f32Store()

	c.localGet(4)
	c.localGet(5)
	c.i32Const(16383)
	c.byte(opI32GtS)
	c.i32Store()

	c.incGlobal(gProcessCount, 1)
	c.i32Const(status)
	c.end()
}

// destroy(handle*) -> status
func emitDestroy(c *writer) {
	c.returnIfZero(0, -7)
	c.localGet(0)
	c.i32Load()
	c.byte(opI32Eqz)
	c.ifEmpty()
	c.i32Const(-5)
	c.ret()
	c.end()

	c.localGet(0)
	c.i32Const(0)
	c.i32Store()
	c.incGlobal(gDestroyCount, 1)
	c.i32Const(0)
	c.end()
}

func emitVersion(c *writer) {
	c.i32Const(versionOffset)
	c.end()
}

func emitInitialize(c *writer) {
	c.i32Const(1)
	c.globalSet(gInitialized)
	c.end()
}
