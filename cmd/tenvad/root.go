package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/tenvad/config"
	"github.com/wippyai/tenvad/engine"
	"github.com/wippyai/tenvad/metrics"
	"github.com/wippyai/tenvad/native"
	"github.com/wippyai/tenvad/resolver"
	"github.com/wippyai/tenvad/session"
	"github.com/wippyai/tenvad/vad"
)

// app holds state shared by every command of one invocation.
type app struct {
	configPath string

	backend   string
	hopSize   int
	threshold float32
	strict    bool
	libDirs   []string
	wasmPath  string
	logLevel  string

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	resolver *resolver.Resolver
	loader   *engine.Loader
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "tenvad",
		Short: "Voice activity detection over WAV files",
		Long: `tenvad runs the TEN voice activity detector over mono 16-bit WAV files.

The detector core is loaded from the native shared library (default), the
library linked at build time, or a WebAssembly build of the core.

Configuration is read from --config (YAML). Flags override the file, and
TEN_VAD_LIB_DIR adds a native library search directory.

Examples:
  tenvad run speech.wav
  tenvad --backend wasm --wasm ten_vad.wasm run speech.wav
  tenvad --hop 160 --threshold 0.6 watch speech.wav
  tenvad resolve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	f.StringVar(&a.backend, "backend", "", "core backend: native, static or wasm")
	f.IntVar(&a.hopSize, "hop", 0, "frame size in samples")
	f.Float32Var(&a.threshold, "threshold", 0, "detection threshold in [0, 1]")
	f.BoolVar(&a.strict, "strict", false, "reject undocumented native status codes")
	f.StringSliceVar(&a.libDirs, "lib-dir", nil, "extra native library search directory (repeatable)")
	f.StringVar(&a.wasmPath, "wasm", "", "path to the WebAssembly core module")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newVersionCmd(a),
		newResolveCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and builds the
// logger and metrics.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(nil)

	f := cmd.Flags()
	if f.Changed("backend") {
		cfg.Backend = config.Backend(a.backend)
	}
	if f.Changed("hop") {
		cfg.HopSize = a.hopSize
	}
	if f.Changed("threshold") {
		cfg.Threshold = a.threshold
	}
	if f.Changed("strict") {
		cfg.StrictStatus = a.strict
	}
	if f.Changed("lib-dir") {
		cfg.Library.Dirs = append(append([]string{}, a.libDirs...), cfg.Library.Dirs...)
	}
	if f.Changed("wasm") {
		cfg.WASM.Module = a.wasmPath
		if !f.Changed("backend") {
			cfg.Backend = config.BackendWASM
		}
	}
	if f.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := cfg.Log.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.logger = logger
	session.SetLogger(logger.Named("session"))
	engine.SetLogger(logger.Named("engine"))
	resolver.SetLogger(logger.Named("resolver"))
	native.SetLogger(logger.Named("native"))

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.loader != nil {
		if err := a.loader.Close(ctx); err != nil {
			return err
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// vadOptions maps the configuration onto detector options.
func (a *app) vadOptions(ctx context.Context) []vad.Option {
	opts := []vad.Option{
		vad.WithContext(ctx),
		vad.WithLogger(a.logger.Named("session")),
		vad.WithMetrics(a.metrics),
		vad.WithStrictStatus(a.cfg.StrictStatus),
	}

	switch a.cfg.Backend {
	case config.BackendWASM:
		opts = append(opts, vad.WithWASMLoader(a.wasmLoader()))
	case config.BackendStatic:
		opts = append(opts, vad.WithBackend(vad.Static))
	default:
		opts = append(opts, vad.WithBackend(vad.Native), vad.WithResolver(a.nativeResolver()))
	}
	return opts
}

func (a *app) nativeResolver() *resolver.Resolver {
	if a.resolver == nil {
		a.resolver = resolver.New(resolver.Config{
			Dirs:    a.cfg.Library.Dirs,
			Metrics: a.metrics,
			Logger:  a.logger.Named("resolver"),
		})
	}
	return a.resolver
}

func (a *app) wasmLoader() *engine.Loader {
	if a.loader == nil {
		w := a.cfg.WASM
		icfg := &engine.InstanceConfig{Name: "ten_vad"}
		if w.ExportPrefix != "" {
			icfg.Exports = engine.PrefixedExports(w.ExportPrefix)
		}
		a.loader = engine.NewLoader(engine.File(w.Module), &engine.Config{
			CacheDir:         w.CacheDir,
			MemoryLimitPages: w.MemoryLimitPages,
		}, icfg)
	}
	return a.loader
}
