// Package metrics provides Prometheus collectors for VAD sessions and
// library resolution. Every method is safe to call on a nil *Metrics, so
// callers that do not want metrics simply pass nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tenvad"

// Resolution outcomes for RecordResolution.
const (
	OutcomeCandidate = "candidate"
	OutcomeSystem    = "system"
	OutcomeNotFound  = "not_found"
)

// Metrics holds the VAD collectors.
type Metrics struct {
	sessionsActive    prometheus.Gauge
	sessionsCreated   prometheus.Counter
	sessionsFinalized prometheus.Counter
	framesProcessed   prometheus.Counter
	framesVoice       prometheus.Counter
	processErrors     *prometheus.CounterVec
	processDuration   prometheus.Histogram
	resolutions       *prometheus.CounterVec
	handles           *prometheus.GaugeVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions holding a live native handle",
		}),
		sessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions successfully created",
		}),
		sessionsFinalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finalized_total",
			Help:      "Total number of sessions released by the runtime cleanup instead of Close",
		}),
		framesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Total number of frames processed successfully",
		}),
		framesVoice: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_voice_total",
			Help:      "Total number of frames flagged as voice",
		}),
		processErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_errors_total",
			Help:      "Total number of failed process calls by error kind",
		}, []string{"kind"}),
		processDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Native process call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_resolutions_total",
			Help:      "Native library resolution attempts by outcome",
		}, []string{"outcome"}),
		handles: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "native_handles",
			Help:      "Native instances currently held by a core",
		}, []string{"core"}),
	}
}

// SessionCreated records a successful native create.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
	m.sessionsActive.Inc()
}

// SessionClosed records an explicit Close that released a handle.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// SessionFinalized records a handle released by the runtime cleanup.
func (m *Metrics) SessionFinalized() {
	if m == nil {
		return
	}
	m.sessionsFinalized.Inc()
	m.sessionsActive.Dec()
}

// FrameProcessed records one successful process call.
func (m *Metrics) FrameProcessed(voice bool, d time.Duration) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	if voice {
		m.framesVoice.Inc()
	}
	m.processDuration.Observe(d.Seconds())
}

// ProcessError records one failed process call.
func (m *Metrics) ProcessError(kind string) {
	if m == nil {
		return
	}
	m.processErrors.WithLabelValues(kind).Inc()
}

// RecordResolution records one library resolution outcome.
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// HandleCreated records a native instance added to core's handle table.
func (m *Metrics) HandleCreated(core string) {
	if m == nil {
		return
	}
	m.handles.WithLabelValues(core).Inc()
}

// HandleDropped records a native instance leaving core's handle table.
func (m *Metrics) HandleDropped(core string) {
	if m == nil {
		return
	}
	m.handles.WithLabelValues(core).Dec()
}

// SetHandles resets the live instance count for core. Cores call it when
// metrics are attached after instances already exist.
func (m *Metrics) SetHandles(core string, n int) {
	if m == nil {
		return
	}
	m.handles.WithLabelValues(core).Set(float64(n))
}
