// Package mock provides a call-counting stub of the native VAD core.
//
// Core implements tenvad.Core entirely in Go. It records every call, returns
// scripted (probability, flag) pairs keyed by frame index, and counts destroy
// calls per handle so tests can assert the native destroy entry point is
// reached at most once for each instance.
//
// Example:
//
//	core := &mock.Core{
//	    Results: []tenvad.Output{{Probability: 0.02}, {Probability: 0.91, Flag: 1}},
//	}
//	s, _ := session.New(ctx, core, 256, 0.5)
//	s.Process(ctx, frame)
//	core.ProcessCallCount() // 1
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/wippyai/tenvad"
)

// DefaultVersion is returned by Version when Core.VersionString is empty.
const DefaultVersion = "mock-1.0.0"

// CreateCall records a single invocation of Core.Create.
type CreateCall struct {
	HopSize   int
	Threshold float32
}

// ProcessCall records a single invocation of Core.Process.
type ProcessCall struct {
	// Handle is the handle the call was made with.
	Handle tenvad.Handle

	// Index is the zero-based position of this frame within its handle's stream.
	Index int

	// Frame is a copy of the samples passed to Process.
	Frame []int16
}

// Violation describes a call the real native layer would not survive.
type Violation struct {
	Op     string
	Handle tenvad.Handle
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s(%d): %s", v.Op, v.Handle, v.Reason)
}

// Core is a mock implementation of tenvad.Core.
type Core struct {
	mu sync.Mutex

	// Results are returned by Process in frame-index order, per handle. Once
	// exhausted the last entry repeats; when empty Process writes a zero Output.
	Results []tenvad.Output

	// ResultFunc, if non-nil, overrides Results. It receives the frame index
	// and the frame itself.
	ResultFunc func(index int, frame []int16) tenvad.Output

	// CreateStatus, if non-zero, is returned by Create with a zero handle.
	CreateStatus int32

	// NullHandle makes Create report success while returning a zero handle.
	NullHandle bool

	// ProcessStatus is returned by every successful Process call.
	ProcessStatus int32

	// ProcessStatusAt, if set, overrides ProcessStatus for specific frame indexes.
	ProcessStatusAt map[int]int32

	// DestroyStatus is returned by Destroy on a live handle.
	DestroyStatus int32

	// VersionString is returned by Version.
	VersionString string

	// --- Call records ---

	CreateCalls  []CreateCall
	ProcessCalls []ProcessCall
	DestroyCalls []tenvad.Handle
	VersionCalls int

	// Violations records destroy-after-destroy, process-after-destroy and
	// unknown-handle calls.
	Violations []Violation

	next      tenvad.Handle
	live      map[tenvad.Handle]int
	destroyed map[tenvad.Handle]int
}

// Create records the call and returns a fresh non-zero handle.
func (c *Core) Create(_ context.Context, hopSize int, threshold float32) (tenvad.Handle, int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CreateCalls = append(c.CreateCalls, CreateCall{HopSize: hopSize, Threshold: threshold})
	if c.CreateStatus != 0 {
		return 0, c.CreateStatus
	}
	if c.NullHandle {
		return 0, tenvad.StatusOK
	}
	if c.live == nil {
		c.live = make(map[tenvad.Handle]int)
		c.destroyed = make(map[tenvad.Handle]int)
	}
	c.next++
	h := c.next
	c.live[h] = 0
	return h, tenvad.StatusOK
}

// Process records the call and writes the scripted result for the frame index.
func (c *Core) Process(_ context.Context, h tenvad.Handle, frame []int16, out *tenvad.Output) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.live[h]
	if !ok {
		c.violate("process", h)
		return tenvad.StatusUninitialized
	}
	c.live[h] = idx + 1

	cp := make([]int16, len(frame))
	copy(cp, frame)
	c.ProcessCalls = append(c.ProcessCalls, ProcessCall{Handle: h, Index: idx, Frame: cp})

	switch {
	case c.ResultFunc != nil:
		*out = c.ResultFunc(idx, frame)
	case len(c.Results) == 0:
		*out = tenvad.Output{}
	case idx < len(c.Results):
		*out = c.Results[idx]
	default:
		*out = c.Results[len(c.Results)-1]
	}

	if code, ok := c.ProcessStatusAt[idx]; ok {
		return code
	}
	return c.ProcessStatus
}

// Destroy records the call, clears *h and counts the destroy for that handle.
func (c *Core) Destroy(_ context.Context, h *tenvad.Handle) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h == nil {
		c.violate("destroy", 0)
		return tenvad.StatusInvalidParameter
	}
	handle := *h
	c.DestroyCalls = append(c.DestroyCalls, handle)

	if _, ok := c.live[handle]; !ok {
		c.violate("destroy", handle)
		return tenvad.StatusUninitialized
	}
	delete(c.live, handle)
	c.destroyed[handle]++
	*h = 0
	return c.DestroyStatus
}

// Version records the call and returns VersionString or DefaultVersion.
func (c *Core) Version(context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VersionCalls++
	if c.VersionString != "" {
		return c.VersionString
	}
	return DefaultVersion
}

// violate must be called with mu held.
func (c *Core) violate(op string, h tenvad.Handle) {
	reason := "unknown handle"
	if h == 0 {
		reason = "null handle"
	} else if c.destroyed[h] > 0 {
		reason = "handle already destroyed"
	}
	c.Violations = append(c.Violations, Violation{Op: op, Handle: h, Reason: reason})
}

// ProcessCallCount returns the number of Process calls. Thread-safe.
func (c *Core) ProcessCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ProcessCalls)
}

// DestroyCount returns how many times h was successfully destroyed. Thread-safe.
func (c *Core) DestroyCount(h tenvad.Handle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed[h]
}

// LiveHandles returns the number of created but not yet destroyed handles. Thread-safe.
func (c *Core) LiveHandles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// ViolationList returns a copy of the recorded violations. Thread-safe.
func (c *Core) ViolationList() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Violation, len(c.Violations))
	copy(out, c.Violations)
	return out
}

// Reset clears all recorded calls and handle state. Thread-safe.
func (c *Core) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreateCalls = nil
	c.ProcessCalls = nil
	c.DestroyCalls = nil
	c.VersionCalls = 0
	c.Violations = nil
	c.live = nil
	c.destroyed = nil
}

// Ensure Core implements tenvad.Core at compile time.
var _ tenvad.Core = (*Core)(nil)
