package vad

import (
	"context"
	"sync"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/engine"
	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/native"
	"github.com/wippyai/tenvad/resolver"
)

// Backend selects the core implementation.
type Backend string

const (
	// Native loads the shared library at runtime through the resolver.
	Native Backend = "native"

	// Static uses the library linked at build time (tenvad_static tag).
	Static Backend = "static"

	// WASM runs a WebAssembly build of the core on wazero.
	WASM Backend = "wasm"
)

type lazyCore struct {
	once sync.Once
	core tenvad.Core
	err  error
}

func (l *lazyCore) get(load func() (tenvad.Core, error)) (tenvad.Core, error) {
	l.once.Do(func() {
		l.core, l.err = load()
	})
	return l.core, l.err
}

var (
	// native cores keyed by *resolver.Resolver
	nativeCores sync.Map
	staticCore  lazyCore

	// wasm loaders keyed by module path
	wasmLoaders sync.Map
)

func nativeCore(r *resolver.Resolver) (tenvad.Core, error) {
	if r == nil {
		r = resolver.Default()
	}
	v, _ := nativeCores.LoadOrStore(r, &lazyCore{})
	return v.(*lazyCore).get(func() (tenvad.Core, error) {
		c, err := native.Load(r)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

func linkedCore() (tenvad.Core, error) {
	return staticCore.get(func() (tenvad.Core, error) {
		c, err := native.Static()
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

var (
	_ handleReporter = (*native.Core)(nil)
	_ handleReporter = (*engine.WazeroInstance)(nil)
)

// Loader returns the process-wide loader for the module at path.
func Loader(path string) *engine.Loader {
	v, _ := wasmLoaders.LoadOrStore(path, engine.NewLoader(engine.File(path), nil, nil))
	return v.(*engine.Loader)
}

func wasmCore(ctx context.Context, o *options) (tenvad.Core, error) {
	l := o.loader
	if l == nil {
		if o.wasmPath == "" {
			return nil, errors.New(errors.PhaseResolve, errors.KindLibraryNotFound).
				Detail("wasm backend needs a module path or loader").
				Build()
		}
		l = Loader(o.wasmPath)
	}
	inst, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// resolveCore picks the core for o. An injected core wins over the backend choice.
func (o *options) resolveCore() (tenvad.Core, error) {
	if o.core != nil {
		return o.core, nil
	}
	switch o.backend {
	case Native, "":
		return nativeCore(o.resolver)
	case Static:
		return linkedCore()
	case WASM:
		return wasmCore(o.ctx, o)
	}
	return nil, errors.New(errors.PhaseResolve, errors.KindInvalidParameter).
		Value(string(o.backend)).
		Detail("unknown backend %q", o.backend).
		Build()
}
