package engine

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/metrics"
	"github.com/wippyai/tenvad/resource"
)

// WazeroInstance is a running VAD core module. It implements tenvad.Core.
//
// Guest handles are addresses in the module's linear memory. They never
// leave the instance: callers receive an opaque token from the handle table.
// A wasm instance is single-threaded, so every guest call holds mu.
type WazeroInstance struct {
	module    api.Module
	memory    *WazeroMemory
	alloc     *wazeroAllocator
	handles   *resource.Table[uint32]
	createFn  api.Function
	processFn api.Function
	destroyFn api.Function
	versionFn api.Function
	metrics   atomic.Pointer[metrics.Metrics]
	stack     []uint64
	mu        sync.Mutex
	closed    bool
}

// MetricsCore labels this instance's series in the native_handles gauge.
const MetricsCore = "wasm"

// SetMetrics reports the instance's live handle count to m.
func (i *WazeroInstance) SetMetrics(m *metrics.Metrics) {
	i.mu.Lock()
	defer i.mu.Unlock()
	m.SetHandles(MetricsCore, i.handles.Len())
	i.metrics.Store(m)
}

func (i *WazeroInstance) observe(e resource.Event[uint32]) {
	Logger().Debug("instance "+e.Type.String(), zap.Uint32("guest_handle", e.Value))
	switch e.Type {
	case resource.EventCreated:
		i.metrics.Load().HandleCreated(MetricsCore)
	case resource.EventDropped:
		i.metrics.Load().HandleDropped(MetricsCore)
	}
}

// Create allocates a handle slot, calls create and stores the guest handle.
func (i *WazeroInstance) Create(ctx context.Context, hopSize int, threshold float32) (tenvad.Handle, int32) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, tenvad.StatusInitFailed
	}

	slot, err := i.alloc.Alloc(ctx, 4)
	if err != nil {
		Logger().Warn("create: allocate handle slot", zap.Error(err))
		return 0, tenvad.StatusInitFailed
	}
	defer i.alloc.Free(ctx, slot)

	if err := i.memory.WriteU32(slot, 0); err != nil {
		return 0, tenvad.StatusInitFailed
	}

	i.stack[0] = uint64(slot)
	i.stack[1] = uint64(uint32(hopSize))
	i.stack[2] = api.EncodeF32(threshold)
	if err := i.createFn.CallWithStack(ctx, i.stack[:3]); err != nil {
		Logger().Warn("create: guest call failed", zap.Error(err))
		return 0, tenvad.StatusInitFailed
	}
	code := int32(uint32(i.stack[0]))
	if code != tenvad.StatusOK {
		return 0, code
	}

	guest, err := i.memory.ReadU32(slot)
	if err != nil || guest == 0 {
		return 0, code
	}

	token, err := i.handles.Insert(guest)
	if err != nil {
		i.destroyGuest(ctx, guest)
		return 0, tenvad.StatusInitFailed
	}
	return tenvad.Handle(token), code
}

// Process copies frame into guest scratch memory, runs the guest process
// call and reads both outputs back. Every scratch buffer is freed before
// returning.
func (i *WazeroInstance) Process(ctx context.Context, h tenvad.Handle, frame []int16, out *tenvad.Output) int32 {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return tenvad.StatusUninitialized
	}
	guest, ok := i.handles.Get(resource.Handle(h))
	if !ok {
		return tenvad.StatusUninitialized
	}

	frameBytes := uint32(len(frame)) * 2
	framePtr, err := i.alloc.Alloc(ctx, frameBytes)
	if err != nil {
		Logger().Warn("process: allocate frame", zap.Error(err))
		return tenvad.StatusProcessError
	}
	defer i.alloc.Free(ctx, framePtr)

	probPtr, err := i.alloc.Alloc(ctx, 4)
	if err != nil {
		Logger().Warn("process: allocate probability slot", zap.Error(err))
		return tenvad.StatusProcessError
	}
	defer i.alloc.Free(ctx, probPtr)

	flagPtr, err := i.alloc.Alloc(ctx, 4)
	if err != nil {
		Logger().Warn("process: allocate flag slot", zap.Error(err))
		return tenvad.StatusProcessError
	}
	defer i.alloc.Free(ctx, flagPtr)

	// Read returns a view, so samples are encoded straight into guest memory.
	view, err := i.memory.Read(framePtr, frameBytes)
	if err != nil {
		return tenvad.StatusProcessError
	}
	for n, s := range frame {
		binary.LittleEndian.PutUint16(view[n*2:], uint16(s))
	}

	i.stack[0] = uint64(guest)
	i.stack[1] = uint64(framePtr)
	i.stack[2] = uint64(uint32(len(frame)))
	i.stack[3] = uint64(probPtr)
	i.stack[4] = uint64(flagPtr)
	if err := i.processFn.CallWithStack(ctx, i.stack[:5]); err != nil {
		Logger().Warn("process: guest call failed", zap.Error(err))
		return tenvad.StatusProcessError
	}
	code := int32(uint32(i.stack[0]))
	if code < 0 {
		return code
	}

	prob, err := i.memory.ReadF32(probPtr)
	if err != nil {
		return tenvad.StatusProcessError
	}
	flag, err := i.memory.ReadU32(flagPtr)
	if err != nil {
		return tenvad.StatusProcessError
	}
	out.Probability = prob
	out.Flag = int32(flag)
	return code
}

// Destroy removes the token and releases the guest instance. *h is cleared
// even when the guest reports failure; a stale or zero token returns
// StatusUninitialized without a guest call.
func (i *WazeroInstance) Destroy(ctx context.Context, h *tenvad.Handle) int32 {
	if h == nil {
		return tenvad.StatusInvalidParameter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	guest, ok := i.handles.Remove(resource.Handle(*h))
	if !ok {
		return tenvad.StatusUninitialized
	}
	*h = 0
	return i.destroyGuest(ctx, guest)
}

// destroyGuest must be called with mu held.
func (i *WazeroInstance) destroyGuest(ctx context.Context, guest uint32) int32 {
	slot, err := i.alloc.Alloc(ctx, 4)
	if err != nil {
		Logger().Warn("destroy: allocate handle slot", zap.Error(err))
		return tenvad.StatusInternalError
	}
	defer i.alloc.Free(ctx, slot)

	if err := i.memory.WriteU32(slot, guest); err != nil {
		return tenvad.StatusInternalError
	}
	i.stack[0] = uint64(slot)
	if err := i.destroyFn.CallWithStack(ctx, i.stack[:1]); err != nil {
		Logger().Warn("destroy: guest call failed", zap.Error(err))
		return tenvad.StatusInternalError
	}
	return int32(uint32(i.stack[0]))
}

// Version reads the guest's static version string. Returns "" if the guest
// call fails.
func (i *WazeroInstance) Version(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return ""
	}
	if err := i.versionFn.CallWithStack(ctx, i.stack[:1]); err != nil {
		Logger().Warn("version: guest call failed", zap.Error(err))
		return ""
	}
	v, err := i.memory.ReadCString(uint32(i.stack[0]), maxVersionLen)
	if err != nil {
		return ""
	}
	return v
}

// Memory returns the instance's linear memory.
func (i *WazeroInstance) Memory() *WazeroMemory {
	return i.memory
}

// Allocator returns the guest allocator. Callers must not use it
// concurrently with the instance's Core methods.
func (i *WazeroInstance) Allocator() tenvad.Allocator {
	return i.alloc
}

// LiveHandles returns the number of guest instances not yet destroyed.
func (i *WazeroInstance) LiveHandles() int {
	return i.handles.Len()
}

// Module returns the underlying wazero module.
func (i *WazeroInstance) Module() api.Module {
	return i.module
}

// Close destroys any remaining guest instances and closes the module.
func (i *WazeroInstance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	var leaked []uint32
	i.handles.Each(func(_ resource.Handle, guest uint32) bool {
		leaked = append(leaked, guest)
		return true
	})
	for _, guest := range leaked {
		i.destroyGuest(ctx, guest)
	}
	if len(leaked) > 0 {
		Logger().Warn("instance closed with live handles", zap.Int("count", len(leaked)))
	}

	i.closed = true
	i.handles.Close()
	return i.module.Close(ctx)
}

// Compile-time check that WazeroInstance implements tenvad.Core
var _ tenvad.Core = (*WazeroInstance)(nil)
