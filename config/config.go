// Package config holds the YAML configuration of the tenvad command.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Backend selects which core implementation sessions run on.
type Backend string

const (
	BackendNative Backend = "native"
	BackendStatic Backend = "static"
	BackendWASM   Backend = "wasm"
)

// IsValid reports whether b names a known backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendNative, BackendStatic, BackendWASM:
		return true
	}
	return false
}

// Defaults.
const (
	DefaultHopSize   = 256
	DefaultThreshold = 0.5
	DefaultLogLevel  = "info"
)

// Config is the root configuration document.
type Config struct {
	Backend      Backend       `yaml:"backend"`
	HopSize      int           `yaml:"hop_size"`
	Threshold    float32       `yaml:"threshold"`
	StrictStatus bool          `yaml:"strict_status"`
	Library      LibraryConfig `yaml:"library"`
	WASM         WASMConfig    `yaml:"wasm"`
	Log          LogConfig     `yaml:"log"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// LibraryConfig controls native library discovery.
type LibraryConfig struct {
	// Dirs are searched before the built-in search roots.
	Dirs []string `yaml:"dirs"`
}

// WASMConfig controls the WebAssembly backend.
type WASMConfig struct {
	Module           string `yaml:"module"`
	CacheDir         string `yaml:"cache_dir"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
	ExportPrefix     string `yaml:"export_prefix"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNative
	}
	if c.HopSize == 0 {
		c.HopSize = DefaultHopSize
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// EnvLibDir is prepended to Library.Dirs by ApplyEnv.
const EnvLibDir = "TEN_VAD_LIB_DIR"

// EnvWASMModule overrides WASM.Module.
const EnvWASMModule = "TEN_VAD_WASM"

// ApplyEnv applies environment overrides using getenv. A nil getenv uses
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if dir := getenv(EnvLibDir); dir != "" {
		c.Library.Dirs = append([]string{filepath.Clean(dir)}, c.Library.Dirs...)
	}
	if mod := getenv(EnvWASMModule); mod != "" {
		c.WASM.Module = mod
	}
}

// ZapConfig returns the zap configuration for Log.
func (l LogConfig) ZapConfig() (zap.Config, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return zap.Config{}, err
	}
	var zc zap.Config
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc, nil
}

// Build constructs the logger described by l.
func (l LogConfig) Build() (*zap.Logger, error) {
	zc, err := l.ZapConfig()
	if err != nil {
		return nil, err
	}
	return zc.Build()
}
