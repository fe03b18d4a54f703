package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

const (
	wasiModuleName = wasi_snapshot_preview1.ModuleName
	envModuleName  = "env"
	pageSize       = 65536
)

// envFuncs are the emscripten runtime imports the host serves.
var envFuncs = map[string]bool{
	"emscripten_notify_memory_growth": true,
	"emscripten_memcpy_js":            true,
	"emscripten_memcpy_big":           true,
	"emscripten_resize_heap":          true,
}

// unservedImports lists function and memory imports no host module provides.
func unservedImports(compiled wazero.CompiledModule) []string {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		switch {
		case mod == wasiModuleName:
		case mod == envModuleName && envFuncs[name]:
		default:
			missing = append(missing, mod+"."+name)
		}
	}
	for _, def := range compiled.ImportedMemories() {
		mod, name, _ := def.Import()
		missing = append(missing, mod+"."+name)
	}
	return missing
}

func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasiModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// instantiateEnv serves the emscripten imports a standalone VAD build
// may reference.
func instantiateEnv(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	i32 := api.ValueTypeI32

	return r.NewHostModuleBuilder(envModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			Logger().Debug("guest memory grew", zap.Uint32("bytes", mod.Memory().Size()))
		}), []api.ValueType{i32}, nil).
		Export("emscripten_notify_memory_growth").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			memmove(mod.Memory(), uint32(stack[0]), uint32(stack[1]), uint32(stack[2]))
		}), []api.ValueType{i32, i32, i32}, nil).
		Export("emscripten_memcpy_js").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			memmove(mod.Memory(), uint32(stack[0]), uint32(stack[1]), uint32(stack[2]))
			// returns dest
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export("emscripten_memcpy_big").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			if resizeHeap(mod.Memory(), uint32(stack[0])) {
				stack[0] = 1
			} else {
				stack[0] = 0
			}
		}), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("emscripten_resize_heap").
		Instantiate(ctx)
}

// memmove copies n bytes within guest memory; the ranges may overlap.
// Out-of-range copies are ignored.
//
// Only the two windows are read. Both views alias the same linear memory,
// and copy handles overlapping slices.
func memmove(mem api.Memory, dst, src, n uint32) {
	if n == 0 {
		return
	}
	to, okDst := mem.Read(dst, n)
	from, okSrc := mem.Read(src, n)
	if !okDst || !okSrc {
		Logger().Warn("memcpy out of bounds",
			zap.Uint32("dst", dst), zap.Uint32("src", src), zap.Uint32("n", n))
		return
	}
	copy(to, from)
}

// resizeHeap grows memory to at least requested bytes.
func resizeHeap(mem api.Memory, requested uint32) bool {
	cur := mem.Size()
	if requested <= cur {
		return true
	}
	delta := (uint64(requested) - uint64(cur) + pageSize - 1) / pageSize
	_, ok := mem.Grow(uint32(delta))
	return ok
}
