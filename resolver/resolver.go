package resolver

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/metrics"
)

// EnvLibDir names the environment variable holding an extra search root.
const EnvLibDir = "TEN_VAD_LIB_DIR"

// Config controls where a Resolver looks for the native library.
// Zero-valued fields fall back to the real process environment.
type Config struct {
	// Dirs are searched before every other root.
	Dirs []string

	// Table overrides the built-in candidate table.
	Table []Descriptor

	// Platform overrides the running platform.
	Platform *Platform

	Opener     Opener
	Exists     func(path string) bool
	Env        func(key string) string
	Executable func() (string, error)
	Getwd      func() (string, error)

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Table == nil {
		c.Table = Table
	}
	if c.Platform == nil {
		p := Current()
		c.Platform = &p
	}
	if c.Opener == nil {
		c.Opener = SystemOpener
	}
	if c.Exists == nil {
		c.Exists = fileExists
	}
	if c.Env == nil {
		c.Env = os.Getenv
	}
	if c.Executable == nil {
		c.Executable = os.Executable
	}
	if c.Getwd == nil {
		c.Getwd = os.Getwd
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}
	return c
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// Resolver locates and loads the native library once. Every call to
// Resolve after the first returns the same library or the same error.
type Resolver struct {
	cfg  Config
	once sync.Once
	lib  Library
	err  error
}

// New creates a resolver. Nothing is probed until Resolve.
func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

var (
	defaultResolver *Resolver
	defaultOnce     sync.Once
)

// Default returns the process-wide resolver using the built-in table and
// the system loader.
func Default() *Resolver {
	defaultOnce.Do(func() {
		defaultResolver = New(Config{})
	})
	return defaultResolver
}

// Descriptor returns the table entry for the configured platform.
func (r *Resolver) Descriptor() Descriptor {
	return Lookup(r.cfg.Table, *r.cfg.Platform)
}

// Roots returns the search roots in probe order with duplicates removed.
func (r *Resolver) Roots() []string {
	var roots []string
	roots = append(roots, r.cfg.Dirs...)
	if dir := r.cfg.Env(EnvLibDir); dir != "" {
		roots = append(roots, dir)
	}
	if exe, err := r.cfg.Executable(); err == nil && exe != "" {
		roots = append(roots, filepath.Dir(exe))
	}
	if wd, err := r.cfg.Getwd(); err == nil && wd != "" {
		roots = append(roots, wd)
	}

	seen := make(map[string]struct{}, len(roots))
	out := roots[:0]
	for _, root := range roots {
		root = filepath.Clean(root)
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		out = append(out, root)
	}
	return out
}

// Candidates returns every path Resolve would probe, in order, excluding
// the system fallback.
func (r *Resolver) Candidates() []string {
	d := r.Descriptor()
	var paths []string
	for _, root := range r.Roots() {
		for _, c := range d.Candidates {
			paths = append(paths, filepath.Join(root, filepath.FromSlash(c)))
		}
	}
	return paths
}

// Resolve loads the library, probing candidates before the system loader.
func (r *Resolver) Resolve() (Library, error) {
	r.once.Do(func() {
		r.lib, r.err = r.resolve()
	})
	return r.lib, r.err
}

func (r *Resolver) resolve() (Library, error) {
	log := r.cfg.Logger.With(zap.Stringer("platform", *r.cfg.Platform))
	d := r.Descriptor()

	var probed []string
	var errs []error
	for _, path := range r.Candidates() {
		probed = append(probed, path)
		if !r.cfg.Exists(path) {
			continue
		}
		lib, err := r.cfg.Opener.Open(path)
		if err != nil {
			log.Warn("candidate failed to load", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		log.Debug("native library loaded", zap.String("path", path))
		r.cfg.Metrics.RecordResolution(metrics.OutcomeCandidate)
		return lib, nil
	}

	if d.SystemName != "" {
		probed = append(probed, d.SystemName)
		lib, err := r.cfg.Opener.Open(d.SystemName)
		if err == nil {
			log.Debug("native library loaded from system path", zap.String("name", d.SystemName))
			r.cfg.Metrics.RecordResolution(metrics.OutcomeSystem)
			return lib, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.SystemName, err))
	}

	r.cfg.Metrics.RecordResolution(metrics.OutcomeNotFound)
	log.Error("native library not found", zap.Strings("probed", probed))
	return nil, errors.LibraryNotFound(probed, stderrors.Join(errs...))
}
