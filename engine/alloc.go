package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/errors"
)

// wazeroAllocator implements tenvad.Allocator with the guest's malloc and
// free exports. It is not safe for concurrent use; the owning instance
// serializes access.
type wazeroAllocator struct {
	mallocFn api.Function
	freeFn   api.Function
	stack    []uint64
}

func (a *wazeroAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	a.stack[0] = uint64(size)
	if err := a.mallocFn.CallWithStack(ctx, a.stack[:1]); err != nil {
		return 0, errors.AllocationFailed(errors.PhaseProcess, size, err)
	}
	ptr := uint32(a.stack[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseProcess, size, nil)
	}
	return ptr, nil
}

func (a *wazeroAllocator) Free(ctx context.Context, ptr uint32) {
	if ptr == 0 {
		return
	}
	a.stack[0] = uint64(ptr)
	if err := a.freeFn.CallWithStack(ctx, a.stack[:1]); err != nil {
		Logger().Warn("free: guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

// Compile-time check that wazeroAllocator implements tenvad.Allocator
var _ tenvad.Allocator = (*wazeroAllocator)(nil)
