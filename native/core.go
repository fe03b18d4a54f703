package native

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/metrics"
	"github.com/wippyai/tenvad/resource"
)

// Funcs are the native entry points bound to Go functions. Handles are raw
// native pointers.
type Funcs struct {
	Create  func(handle *uintptr, hopSize uintptr, threshold float32) int32
	Process func(handle uintptr, audio *int16, length uintptr, probability *float32, flag *int32) int32
	Destroy func(handle *uintptr) int32
	Version func() string
}

func (f Funcs) validate() error {
	var missing []string
	if f.Create == nil {
		missing = append(missing, tenvad.SymbolCreate)
	}
	if f.Process == nil {
		missing = append(missing, tenvad.SymbolProcess)
	}
	if f.Destroy == nil {
		missing = append(missing, tenvad.SymbolDestroy)
	}
	if f.Version == nil {
		missing = append(missing, tenvad.SymbolGetVersion)
	}
	if len(missing) > 0 {
		return errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Detail("missing native entry points: %v", missing).
			Build()
	}
	return nil
}

// Core is a tenvad.Core over bound native functions.
type Core struct {
	funcs   Funcs
	handles *resource.Table[uintptr]
	closer  io.Closer
	metrics atomic.Pointer[metrics.Metrics]
	name    string
	mu      sync.RWMutex
	closed  bool
}

// New creates a core from already bound functions. closer, if non-nil, is
// closed by Close after every handle has been released.
func New(name string, funcs Funcs, closer io.Closer) (*Core, error) {
	if err := funcs.validate(); err != nil {
		return nil, err
	}
	c := &Core{
		funcs:   funcs,
		handles: resource.NewTable[uintptr](),
		closer:  closer,
		name:    name,
	}
	c.handles.Subscribe(resource.ObserverFunc[uintptr](c.observe))
	return c, nil
}

// SetMetrics reports this core's live instance count to m under the
// core's name.
func (c *Core) SetMetrics(m *metrics.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.SetHandles(c.name, c.handles.Len())
	c.metrics.Store(m)
}

func (c *Core) observe(e resource.Event[uintptr]) {
	Logger().Debug("native handle "+e.Type.String(),
		zap.String("core", c.name),
		zap.Uint64("token", uint64(e.Handle)),
	)
	switch e.Type {
	case resource.EventCreated:
		c.metrics.Load().HandleCreated(c.name)
	case resource.EventDropped:
		c.metrics.Load().HandleDropped(c.name)
	}
}

// Name identifies where the core was loaded from.
func (c *Core) Name() string {
	return c.name
}

// Create calls the native create and returns an opaque token for the new
// instance.
func (c *Core) Create(_ context.Context, hopSize int, threshold float32) (tenvad.Handle, int32) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || hopSize < 0 {
		return 0, tenvad.StatusInitFailed
	}

	var raw uintptr
	code := c.funcs.Create(&raw, uintptr(hopSize), threshold)
	if code != tenvad.StatusOK || raw == 0 {
		return 0, code
	}

	token, err := c.handles.Insert(raw)
	if err != nil {
		c.funcs.Destroy(&raw)
		return 0, tenvad.StatusInitFailed
	}
	return tenvad.Handle(token), code
}

// Process passes frame to the native process call without copying.
func (c *Core) Process(_ context.Context, h tenvad.Handle, frame []int16, out *tenvad.Output) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return tenvad.StatusUninitialized
	}
	raw, ok := c.handles.Get(resource.Handle(h))
	if !ok {
		return tenvad.StatusUninitialized
	}

	var audio *int16
	if len(frame) > 0 {
		audio = &frame[0]
	}
	return c.funcs.Process(raw, audio, uintptr(len(frame)), &out.Probability, &out.Flag)
}

// Destroy releases the native instance. *h is cleared even when the native
// call fails; a stale or zero token returns StatusUninitialized.
func (c *Core) Destroy(_ context.Context, h *tenvad.Handle) int32 {
	if h == nil {
		return tenvad.StatusInvalidParameter
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok := c.handles.Remove(resource.Handle(*h))
	if !ok {
		return tenvad.StatusUninitialized
	}
	*h = 0
	return c.funcs.Destroy(&raw)
}

// Version returns the native version string.
func (c *Core) Version(context.Context) string {
	return c.funcs.Version()
}

// LiveHandles returns the number of native instances not yet destroyed.
func (c *Core) LiveHandles() int {
	return c.handles.Len()
}

// Close destroys any remaining native instances and releases the library.
// The core must not be used afterwards.
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var leaked []uintptr
	c.handles.Each(func(_ resource.Handle, raw uintptr) bool {
		leaked = append(leaked, raw)
		return true
	})
	for _, raw := range leaked {
		c.funcs.Destroy(&raw)
	}
	if len(leaked) > 0 {
		Logger().Warn("core closed with live handles", zap.String("core", c.name), zap.Int("count", len(leaked)))
	}
	c.handles.Close()

	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

var _ tenvad.Core = (*Core)(nil)
