package engine

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tenvad/errors"
)

// Source supplies module bytes to a Loader.
type Source func(ctx context.Context) ([]byte, error)

// Bytes returns a Source for an in-memory module.
func Bytes(b []byte) Source {
	return func(context.Context) ([]byte, error) {
		return b, nil
	}
}

// File returns a Source that reads the module from path.
func File(path string) Source {
	return func(context.Context) ([]byte, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseResolve, errors.KindLibraryNotFound, err, path)
		}
		return b, nil
	}
}

// Loader instantiates a module exactly once and hands the same instance, or
// the same error, to every caller.
type Loader struct {
	source Source
	cfg    *Config
	icfg   *InstanceConfig
	engine *WazeroEngine
	inst   *WazeroInstance
	err    error
	once   sync.Once
}

// NewLoader creates a loader. cfg and icfg may be nil.
func NewLoader(source Source, cfg *Config, icfg *InstanceConfig) *Loader {
	return &Loader{source: source, cfg: cfg, icfg: icfg}
}

// Load returns the cached instance, instantiating it on first use.
// The context of the first call governs the instantiation.
func (l *Loader) Load(ctx context.Context) (*WazeroInstance, error) {
	l.once.Do(func() {
		l.inst, l.err = l.load(ctx)
		if l.err != nil {
			Logger().Debug("module load failed", zap.Error(l.err))
		}
	})
	return l.inst, l.err
}

func (l *Loader) load(ctx context.Context) (*WazeroInstance, error) {
	wasm, err := l.source(ctx)
	if err != nil {
		return nil, err
	}

	eng, err := NewWazeroEngineWithConfig(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	mod, err := eng.LoadModule(ctx, wasm)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	inst, err := mod.InstantiateWithConfig(ctx, l.icfg)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}

	l.engine = eng
	Logger().Debug("module loaded", zap.Int("bytes", len(wasm)))
	return inst, nil
}

// Close releases the instance and its engine. The loader stays spent:
// later Load calls return the closed instance's cached result.
func (l *Loader) Close(ctx context.Context) error {
	l.once.Do(func() {
		l.err = errors.Load("loader closed before first load", nil)
	})
	if l.engine == nil {
		return nil
	}
	if err := l.inst.Close(ctx); err != nil {
		l.engine.Close(ctx)
		return err
	}
	return l.engine.Close(ctx)
}
