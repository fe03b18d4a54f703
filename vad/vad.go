package vad

import (
	"sync"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/metrics"
	"github.com/wippyai/tenvad/session"
)

// handleReporter is implemented by cores that export their live handle
// count.
type handleReporter interface {
	SetMetrics(*metrics.Metrics)
}

// VAD is a voice activity detector over one native instance.
type VAD struct {
	opts    *options
	core    tenvad.Core
	session *session.Session

	// Feed state
	feedMu  sync.Mutex
	pending []int16
	frames  int
}

// New creates a detector for frames of hopSize samples. threshold must lie
// in [0, 1]. Parameters are checked before the backend is resolved.
func New(hopSize int, threshold float32, opts ...Option) (*VAD, error) {
	if err := session.ValidateParams(hopSize, threshold); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	core, err := o.resolveCore()
	if err != nil {
		return nil, err
	}
	if m, ok := core.(handleReporter); ok && o.metrics != nil {
		m.SetMetrics(o.metrics)
	}

	var sopts []session.Option
	if o.logger != nil {
		sopts = append(sopts, session.WithLogger(o.logger))
	}
	if o.metrics != nil {
		sopts = append(sopts, session.WithMetrics(o.metrics))
	}
	if o.strict {
		sopts = append(sopts, session.WithStrictStatus(true))
	}

	s, err := session.New(o.ctx, core, hopSize, threshold, sopts...)
	if err != nil {
		return nil, err
	}
	return &VAD{opts: o, core: core, session: s}, nil
}

// Process runs one frame and returns the voice probability and flag.
// len(frame) must equal FrameSize.
func (v *VAD) Process(frame []int16) (float32, bool, error) {
	r, err := v.ProcessResult(frame)
	if err != nil {
		return 0, false, err
	}
	return r.Probability, r.Voice(), nil
}

// ProcessResult is Process returning the raw result.
func (v *VAD) ProcessResult(frame []int16) (tenvad.Result, error) {
	return v.session.Process(v.opts.ctx, frame)
}

// ProcessAll processes every complete frame of samples in order and returns
// the results and the number of trailing samples that did not fill a frame.
func (v *VAD) ProcessAll(samples []int16) ([]tenvad.Result, int, error) {
	hop := v.FrameSize()
	n := len(samples) / hop
	results := make([]tenvad.Result, 0, n)
	for i := range n {
		r, err := v.ProcessResult(samples[i*hop : (i+1)*hop])
		if err != nil {
			return results, len(samples) - i*hop, err
		}
		results = append(results, r)
	}
	return results, len(samples) - n*hop, nil
}

// Feed appends samples to the stream and calls fn for every frame that
// becomes complete. Samples that do not fill a frame are kept for the next
// call. index counts frames across all Feed calls.
func (v *VAD) Feed(samples []int16, fn func(index int, r tenvad.Result) error) error {
	v.feedMu.Lock()
	defer v.feedMu.Unlock()

	hop := v.FrameSize()
	v.pending = append(v.pending, samples...)
	off := 0
	for len(v.pending)-off >= hop {
		r, err := v.ProcessResult(v.pending[off : off+hop])
		if err != nil {
			v.pending = append(v.pending[:0], v.pending[off:]...)
			return err
		}
		off += hop
		idx := v.frames
		v.frames++
		if fn != nil {
			if err := fn(idx, r); err != nil {
				v.pending = append(v.pending[:0], v.pending[off:]...)
				return err
			}
		}
	}
	v.pending = append(v.pending[:0], v.pending[off:]...)
	return nil
}

// Pending returns the number of buffered samples not yet forming a frame.
func (v *VAD) Pending() int {
	v.feedMu.Lock()
	defer v.feedMu.Unlock()
	return len(v.pending)
}

// Close releases the native instance. Calling Close twice fails with
// KindUninitialized.
func (v *VAD) Close() error {
	return v.session.Close(v.opts.ctx)
}

// FrameSize returns the number of samples per frame.
func (v *VAD) FrameSize() int {
	return v.session.HopSize()
}

// Threshold returns the detection threshold.
func (v *VAD) Threshold() float32 {
	return v.session.Threshold()
}

// Closed reports whether Close has released the instance.
func (v *VAD) Closed() bool {
	return v.session.State() == session.Destroyed
}

// Version returns the version of the backend this detector runs on.
func (v *VAD) Version() string {
	return session.Version(v.opts.ctx, v.core)
}

// Version returns the version of the selected backend without creating a
// detector.
func Version(opts ...Option) (string, error) {
	o := buildOptions(opts)
	core, err := o.resolveCore()
	if err != nil {
		return "", err
	}
	return session.Version(o.ctx, core), nil
}

// IsMisuse reports whether err was caused by the caller rather than the
// engine or environment.
func IsMisuse(err error) bool {
	return errors.KindOf(err).Class() == errors.ClassMisuse
}
