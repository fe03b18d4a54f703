package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML document from r over the defaults. Unknown
// fields are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("backend %q is invalid; valid values: native, static, wasm", cfg.Backend))
	}
	if cfg.HopSize <= 0 {
		errs = append(errs, fmt.Errorf("hop_size %d must be positive", cfg.HopSize))
	}
	t := float64(cfg.Threshold)
	if math.IsNaN(t) || t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("threshold %v is out of range [0, 1]", cfg.Threshold))
	}
	if cfg.Backend == BackendWASM && cfg.WASM.Module == "" {
		errs = append(errs, errors.New("wasm.module is required when backend is wasm"))
	}
	if cfg.Log.Level != "" {
		if _, err := zapcore.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
		}
	}
	for i, dir := range cfg.Library.Dirs {
		if dir == "" {
			errs = append(errs, fmt.Errorf("library.dirs[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}
