package vad

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/engine"
	"github.com/wippyai/tenvad/metrics"
	"github.com/wippyai/tenvad/resolver"
)

type options struct {
	ctx      context.Context
	backend  Backend
	core     tenvad.Core
	resolver *resolver.Resolver
	loader   *engine.Loader
	wasmPath string
	logger   *zap.Logger
	metrics  *metrics.Metrics
	strict   bool
}

// Option configures New and Version.
type Option func(*options)

// WithContext sets the context passed to every core call. Defaults to
// context.Background.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithBackend selects the backend. Defaults to Native.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithCore runs on c instead of a built-in backend.
func WithCore(c tenvad.Core) Option {
	return func(o *options) { o.core = c }
}

// WithResolver locates the native library with r instead of
// resolver.Default.
func WithResolver(r *resolver.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithWASMModule selects the WASM backend with the module file at path.
func WithWASMModule(path string) Option {
	return func(o *options) {
		o.backend = WASM
		o.wasmPath = path
	}
}

// WithWASMLoader selects the WASM backend with an existing loader.
func WithWASMLoader(l *engine.Loader) Option {
	return func(o *options) {
		o.backend = WASM
		o.loader = l
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithStrictStatus rejects undocumented non-negative status codes.
func WithStrictStatus(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

func buildOptions(opts []Option) *options {
	o := &options{ctx: context.Background(), backend: Native}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
