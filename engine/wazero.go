package engine

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/resource"
)

// WazeroEngine compiles and instantiates VAD core modules on a wazero runtime.
type WazeroEngine struct {
	runtime      wazero.Runtime
	cache        wazero.CompilationCache
	hostInitMu   sync.Mutex
	hostInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// CacheDir, if set, persists compiled modules across processes.
	CacheDir string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	e := &WazeroEngine{}

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CacheDir != "" {
			cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
			if err != nil {
				return nil, errors.Load("open compilation cache", err)
			}
			e.cache = cache
			runtimeCfg = runtimeCfg.WithCompilationCache(cache)
		}
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return e, nil
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Name    string
	Exports Exports
}

// LoadModule compiles a core module and checks that every import can be
// served by the host. Unserved imports fail with *errors.MissingImportsError
// before anything is instantiated.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}

	if missing := unservedImports(compiled); len(missing) > 0 {
		compiled.Close(ctx)
		return nil, errors.NewMissingImportsError(missing)
	}

	return &WazeroModule{
		engine:   e,
		compiled: compiled,
	}, nil
}

// Close releases the runtime and every module instantiated from it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		if cerr := e.cache.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

// InitHostModules instantiates the WASI and emscripten env host modules for
// this engine's runtime. Safe for concurrent calls from multiple modules
// sharing the same engine.
func (e *WazeroEngine) InitHostModules(ctx context.Context) error {
	if e.hostInitDone.Load() {
		return nil
	}

	e.hostInitMu.Lock()
	defer e.hostInitMu.Unlock()

	if e.hostInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasiModuleName) == nil {
		if _, err := instantiateWASI(ctx, e.runtime); err != nil {
			return errors.Load("instantiate WASI", err)
		}
	}
	if e.runtime.Module(envModuleName) == nil {
		if _, err := instantiateEnv(ctx, e.runtime); err != nil {
			return errors.Load("instantiate env", err)
		}
	}

	e.hostInitDone.Store(true)
	return nil
}

// WazeroModule is a compiled VAD core module
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// Imports returns the module's function imports as "module.name".
func (m *WazeroModule) Imports() []string {
	defs := m.compiled.ImportedFunctions()
	out := make([]string, 0, len(defs))
	for _, def := range defs {
		mod, name, _ := def.Import()
		out = append(out, mod+"."+name)
	}
	return out
}

// ExportNames returns the names of all exported functions.
func (m *WazeroModule) ExportNames() []string {
	defs := m.compiled.ExportedFunctions()
	out := make([]string, 0, len(defs))
	for name := range defs {
		out = append(out, name)
	}
	return out
}

func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig creates an instance with custom configuration.
// The optional initialize export runs once before the instance is returned.
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	if cfg == nil {
		cfg = &InstanceConfig{}
	}
	exports := cfg.Exports.withDefaults()

	if err := m.engine.InitHostModules(ctx); err != nil {
		return nil, err
	}

	// anonymous for parallel instantiation; reactor modules have no _start
	modConfig := wazero.NewModuleConfig().
		WithName(cfg.Name).
		WithStartFunctions()
	if cfg.Stdout != nil {
		modConfig = modConfig.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modConfig = modConfig.WithStderr(cfg.Stderr)
	}

	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Load("instantiate failed", err)
	}

	inst, err := newInstance(instance, exports)
	if err != nil {
		instance.Close(ctx)
		return nil, err
	}

	if initFn := instance.ExportedFunction(exports.Initialize); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			instance.Close(ctx)
			return nil, errors.Load(fmt.Sprintf("call %s", exports.Initialize), err)
		}
		Logger().Debug("module initialized", zap.String("export", exports.Initialize))
	}

	return inst, nil
}

func newInstance(mod api.Module, exports Exports) (*WazeroInstance, error) {
	mem := mod.ExportedMemory(exports.Memory)
	if mem == nil {
		mem = mod.Memory()
	}
	if mem == nil {
		return nil, errors.Load("module exports no memory", nil)
	}

	fns := map[string]*api.Function{}
	inst := &WazeroInstance{
		module:  mod,
		memory:  &WazeroMemory{mem: mem},
		handles: resource.NewTable[uint32](),
		stack:   make([]uint64, 8),
	}
	inst.handles.Subscribe(resource.ObserverFunc[uint32](inst.observe))
	var mallocFn, freeFn api.Function
	fns[exports.Malloc] = &mallocFn
	fns[exports.Free] = &freeFn
	fns[exports.Create] = &inst.createFn
	fns[exports.Process] = &inst.processFn
	fns[exports.Destroy] = &inst.destroyFn
	fns[exports.GetVersion] = &inst.versionFn

	var missing []string
	for name, dst := range fns {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			missing = append(missing, name)
			continue
		}
		*dst = fn
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, errors.Load(fmt.Sprintf("module is missing exports %v", missing), nil)
	}

	inst.alloc = &wazeroAllocator{
		mallocFn: mallocFn,
		freeFn:   freeFn,
		stack:    make([]uint64, 1),
	}
	return inst, nil
}
