package session

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/metrics"
)

// Session binds one native handle to one VAD stream.
//
// Process and Close are serialized by a per-session mutex, so a Session may
// be shared between goroutines; frames submitted from one goroutine are
// processed in program order.
type Session struct {
	slot      *slot
	cleanup   runtime.Cleanup
	logger    *zap.Logger
	metrics   *metrics.Metrics
	out       tenvad.Output
	mu        sync.Mutex
	state     atomic.Int32
	hopSize   int
	threshold float32
	strict    bool
}

// slot owns the native handle. It is a separate allocation with no
// reference back to the Session so the runtime cleanup can hold it.
type slot struct {
	core    tenvad.Core
	logger  *zap.Logger
	metrics *metrics.Metrics
	handle  atomic.Uint64
	hopSize int
}

// take clears the handle and returns its previous value.
// Only the caller that observes a non-zero value may destroy it.
func (s *slot) take() tenvad.Handle {
	return tenvad.Handle(s.handle.Swap(0))
}

// release is the cleanup safety net. It is a no-op once Close has run.
func (s *slot) release() {
	h := s.take()
	if h == 0 {
		return
	}
	code := s.core.Destroy(context.Background(), &h)
	s.metrics.SessionFinalized()
	s.logger.Warn("session released by runtime cleanup; call Close to release it deterministically",
		zap.Int("hop_size", s.hopSize),
		zap.Int32("status", code),
	)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records session activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithStrictStatus rejects non-negative native status codes the core is not
// documented to return: process accepts 0 and 1, destroy accepts only 0.
func WithStrictStatus(strict bool) Option {
	return func(s *Session) {
		s.strict = strict
	}
}

// New creates a native instance for frames of hopSize samples.
//
// hopSize must be positive and threshold must lie in [0, 1]; otherwise New
// fails with KindInvalidParameter before calling the core. A non-zero create
// status or a null handle fails with KindInitFailed.
func New(ctx context.Context, core tenvad.Core, hopSize int, threshold float32, opts ...Option) (*Session, error) {
	if err := ValidateParams(hopSize, threshold); err != nil {
		return nil, err
	}
	if core == nil {
		return nil, errors.New(errors.PhaseCreate, errors.KindInitFailed).
			Detail("no native core").
			Build()
	}

	s := &Session{
		hopSize:   hopSize,
		threshold: threshold,
		logger:    Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(Created))

	h, code := core.Create(ctx, hopSize, threshold)
	if code != tenvad.StatusOK || h == 0 {
		if h != 0 {
			core.Destroy(ctx, &h)
		}
		s.state.Store(int32(Destroyed))
		return nil, createError(code)
	}

	s.slot = &slot{
		core:    core,
		logger:  s.logger,
		metrics: s.metrics,
		hopSize: hopSize,
	}
	s.slot.handle.Store(uint64(h))
	s.cleanup = runtime.AddCleanup(s, (*slot).release, s.slot)
	s.state.Store(int32(Active))

	s.metrics.SessionCreated()
	s.logger.Debug("session created",
		zap.Int("hop_size", hopSize),
		zap.Float32("threshold", threshold),
	)
	return s, nil
}

// ValidateParams reports whether hopSize and threshold are acceptable create
// parameters. It never touches a core, so callers can reject misuse before
// any library is loaded.
func ValidateParams(hopSize int, threshold float32) error {
	if hopSize <= 0 {
		return errors.InvalidParameter("hop size must be positive", hopSize)
	}
	if math.IsNaN(float64(threshold)) || threshold < 0 || threshold > 1 {
		return errors.InvalidParameter("threshold must be within [0.0, 1.0]", threshold)
	}
	return nil
}

func createError(code int32) error {
	b := errors.New(errors.PhaseCreate, errors.KindInitFailed).Code(code)
	if code == tenvad.StatusOK {
		return b.Detail("native create returned a null handle").Build()
	}
	if cause := errors.FromStatus(errors.PhaseCreate, code); cause != nil {
		b.Cause(cause)
	}
	return b.Detail("%s", errors.Message(errors.KindInitFailed)).Build()
}

// Process runs one frame of exactly HopSize samples.
//
// A destroyed session fails with KindUninitialized for any input. A frame of
// the wrong length fails with KindInvalidArgument without reaching the core.
// The frame is borrowed for the duration of the call only.
func (s *Session) Process(ctx context.Context, frame []int16) (tenvad.Result, error) {
	if s.State() == Destroyed {
		return s.fail(errors.Uninitialized(errors.PhaseProcess))
	}
	if len(frame) != s.hopSize {
		return s.fail(errors.FrameLength(len(frame), s.hopSize))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := tenvad.Handle(s.slot.handle.Load())
	if h == 0 {
		return s.fail(errors.Uninitialized(errors.PhaseProcess))
	}

	start := time.Now()
	code := s.slot.core.Process(ctx, h, frame, &s.out)
	elapsed := time.Since(start)

	if err := s.check(errors.PhaseProcess, code); err != nil {
		return s.fail(err)
	}

	res := tenvad.Result{Probability: s.out.Probability, Flag: s.out.Flag}
	s.metrics.FrameProcessed(res.Voice(), elapsed)
	return res, nil
}

func (s *Session) fail(err error) (tenvad.Result, error) {
	s.metrics.ProcessError(string(errors.KindOf(err)))
	return tenvad.Result{}, err
}

func (s *Session) check(phase errors.Phase, code int32) error {
	if s.strict {
		return errors.FromStatusStrict(phase, code)
	}
	return errors.FromStatus(phase, code)
}

// Close releases the native handle. A second Close fails with
// KindUninitialized and never reaches the core.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.slot.take()
	if h == 0 {
		return errors.Uninitialized(errors.PhaseDestroy)
	}
	s.cleanup.Stop()
	s.state.Store(int32(Destroyed))

	code := s.slot.core.Destroy(ctx, &h)
	s.metrics.SessionClosed()
	s.logger.Debug("session closed", zap.Int32("status", code))
	return s.check(errors.PhaseDestroy, code)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// HopSize returns the number of samples per frame.
func (s *Session) HopSize() int {
	return s.hopSize
}

// Threshold returns the threshold the session was created with.
func (s *Session) Threshold() float32 {
	return s.threshold
}

// Version returns the engine version reported by core. No session is needed.
func Version(ctx context.Context, core tenvad.Core) string {
	return core.Version(ctx)
}
