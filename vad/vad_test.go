package vad

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/engine"
	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/internal/wasmstub"
	"github.com/wippyai/tenvad/metrics"
	"github.com/wippyai/tenvad/mock"
	"github.com/wippyai/tenvad/native"
	"github.com/wippyai/tenvad/resolver"
)

// indexCore returns a mock whose probability encodes the frame index.
func indexCore() *mock.Core {
	return &mock.Core{
		ResultFunc: func(index int, frame []int16) tenvad.Output {
			flag := int32(0)
			if index%2 == 1 {
				flag = 1
			}
			return tenvad.Output{Probability: float32(index) / 100, Flag: flag}
		},
	}
}

func TestNew_Process(t *testing.T) {
	core := indexCore()
	v, err := New(256, 0.5, WithCore(core))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if v.FrameSize() != 256 || v.Threshold() != 0.5 {
		t.Errorf("FrameSize=%d Threshold=%v", v.FrameSize(), v.Threshold())
	}

	for i := range 4 {
		prob, voice, err := v.Process(make([]int16, 256))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if prob != float32(i)/100 || voice != (i%2 == 1) {
			t.Errorf("frame %d: (%v, %v)", i, prob, voice)
		}
	}
	if v.Version() != mock.DefaultVersion {
		t.Errorf("Version = %q", v.Version())
	}
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		hop       int
		threshold float32
	}{
		{0, 0.5},
		{-256, 0.5},
		{256, -0.01},
		{256, 1.01},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%v", tt.hop, tt.threshold), func(t *testing.T) {
			core := &mock.Core{}
			_, err := New(tt.hop, tt.threshold, WithCore(core))
			if !stderrors.Is(err, errors.ErrInvalidParameter) {
				t.Fatalf("err = %v, want InvalidParameter", err)
			}
			if len(core.CreateCalls) != 0 {
				t.Error("invalid parameters reached the core")
			}
			if !IsMisuse(err) {
				t.Error("parameter errors are caller misuse")
			}
		})
	}
}

func TestProcess_WrongLength(t *testing.T) {
	core := &mock.Core{}
	v, err := New(160, 0.5, WithCore(core))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	for _, n := range []int{0, 159, 161, 320} {
		if _, _, err := v.Process(make([]int16, n)); !stderrors.Is(err, errors.ErrInvalidArgument) {
			t.Errorf("len %d: err = %v", n, err)
		}
	}
	if core.ProcessCallCount() != 0 {
		t.Error("wrong-length frames reached the core")
	}
}

func TestClose(t *testing.T) {
	core := &mock.Core{}
	v, err := New(256, 0.5, WithCore(core))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !v.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := v.Close(); !stderrors.Is(err, errors.ErrUninitialized) {
		t.Errorf("second Close = %v", err)
	}
	if _, _, err := v.Process(make([]int16, 256)); !stderrors.Is(err, errors.ErrUninitialized) {
		t.Errorf("Process after Close = %v", err)
	}
	if core.LiveHandles() != 0 || len(core.DestroyCalls) != 1 {
		t.Errorf("live=%d destroys=%d", core.LiveHandles(), len(core.DestroyCalls))
	}
}

func TestProcessAll(t *testing.T) {
	tests := []struct {
		name      string
		samples   int
		frames    int
		remainder int
	}{
		{"empty", 0, 0, 0},
		{"short", 100, 0, 100},
		{"exact", 256 * 3, 3, 0},
		{"remainder", 256*3 + 100, 3, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(256, 0.5, WithCore(indexCore()))
			if err != nil {
				t.Fatal(err)
			}
			defer v.Close()

			results, rem, err := v.ProcessAll(make([]int16, tt.samples))
			if err != nil {
				t.Fatalf("ProcessAll: %v", err)
			}
			if len(results) != tt.frames || rem != tt.remainder {
				t.Fatalf("got %d frames, remainder %d", len(results), rem)
			}
			for i, r := range results {
				if r.Probability != float32(i)/100 {
					t.Errorf("result %d out of order: %v", i, r.Probability)
				}
			}
		})
	}
}

func TestProcessAll_StopsOnError(t *testing.T) {
	core := &mock.Core{ProcessStatusAt: map[int]int32{1: tenvad.StatusProcessError}}
	v, err := New(10, 0.5, WithCore(core))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	results, rem, err := v.ProcessAll(make([]int16, 35))
	if !stderrors.Is(err, errors.ErrProcessError) {
		t.Fatalf("err = %v", err)
	}
	if len(results) != 1 || rem != 25 {
		t.Errorf("results=%d remainder=%d", len(results), rem)
	}
}

func TestFeed(t *testing.T) {
	core := &mock.Core{}
	v, err := New(10, 0.5, WithCore(core))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	samples := make([]int16, 37)
	for i := range samples {
		samples[i] = int16(i)
	}

	var indexes []int
	record := func(i int, _ tenvad.Result) error {
		indexes = append(indexes, i)
		return nil
	}
	chunks := [][2]int{{0, 4}, {4, 13}, {13, 13}, {13, 37}}
	wantPending := []int{4, 3, 3, 7}
	for i, c := range chunks {
		if err := v.Feed(samples[c[0]:c[1]], record); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if v.Pending() != wantPending[i] {
			t.Errorf("chunk %d: Pending = %d, want %d", i, v.Pending(), wantPending[i])
		}
	}

	if fmt.Sprint(indexes) != "[0 1 2]" {
		t.Errorf("indexes = %v", indexes)
	}
	for i, call := range core.ProcessCalls {
		if call.Frame[0] != int16(i*10) || call.Frame[9] != int16(i*10+9) {
			t.Errorf("frame %d has samples %v", i, call.Frame)
		}
	}
}

func TestFeed_CallbackError(t *testing.T) {
	v, err := New(4, 0.5, WithCore(&mock.Core{}))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	stop := stderrors.New("stop")
	err = v.Feed(make([]int16, 10), func(i int, _ tenvad.Result) error {
		if i == 0 {
			return stop
		}
		return nil
	})
	if !stderrors.Is(err, stop) {
		t.Fatalf("err = %v", err)
	}
	if v.Pending() != 6 {
		t.Errorf("Pending = %d, want 6", v.Pending())
	}
	if err := v.Feed(nil, nil); err != nil {
		t.Fatal(err)
	}
	if v.Pending() != 2 {
		t.Errorf("Pending after resume = %d, want 2", v.Pending())
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := New(256, 0.5, WithBackend("gpu"))
	if !stderrors.Is(err, errors.ErrInvalidParameter) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Version(WithBackend("gpu")); err == nil {
		t.Error("Version should fail for an unknown backend")
	}
}

func TestNativeBackend_NotFoundIsCached(t *testing.T) {
	p := resolver.Platform{OS: "plan9", Arch: "amd64"}
	r := resolver.New(resolver.Config{
		Platform:   &p,
		Env:        func(string) string { return "" },
		Executable: func() (string, error) { return "", stderrors.New("none") },
		Getwd:      func() (string, error) { return "", stderrors.New("none") },
	})

	_, err1 := New(256, 0.5, WithResolver(r))
	_, err2 := New(256, 0.5, WithResolver(r))
	if !stderrors.Is(err1, errors.ErrLibraryNotFound) {
		t.Fatalf("err = %v", err1)
	}
	if err1 != err2 {
		t.Error("second New should return the cached error")
	}
	if IsMisuse(err1) {
		t.Error("a missing library is not caller misuse")
	}
}

func TestNew_InvalidParametersBeforeBackend(t *testing.T) {
	p := resolver.Platform{OS: "plan9", Arch: "amd64"}
	opened := 0
	r := resolver.New(resolver.Config{
		Platform: &p,
		Opener: resolver.OpenerFunc(func(path string) (resolver.Library, error) {
			opened++
			return nil, stderrors.New("unreachable")
		}),
		Env:        func(string) string { return "" },
		Executable: func() (string, error) { return "", stderrors.New("none") },
		Getwd:      func() (string, error) { return "", stderrors.New("none") },
	})
	reads := 0
	l := engine.NewLoader(func(ctx context.Context) ([]byte, error) {
		reads++
		return nil, stderrors.New("unreachable")
	}, nil, nil)
	t.Cleanup(func() { l.Close(context.Background()) })

	backends := []struct {
		name string
		opt  Option
	}{
		{"native", WithResolver(r)},
		{"wasm", WithWASMLoader(l)},
		{"wasm-file", WithWASMModule(filepath.Join(t.TempDir(), "missing.wasm"))},
	}
	params := []struct {
		hop       int
		threshold float32
	}{
		{0, 0.5},
		{256, 2},
		{256, float32(math.NaN())},
	}
	for _, b := range backends {
		for _, tt := range params {
			t.Run(fmt.Sprintf("%s/%d/%v", b.name, tt.hop, tt.threshold), func(t *testing.T) {
				_, err := New(tt.hop, tt.threshold, b.opt)
				if !stderrors.Is(err, errors.ErrInvalidParameter) {
					t.Fatalf("err = %v, want InvalidParameter", err)
				}
				if !IsMisuse(err) {
					t.Error("parameter errors are caller misuse")
				}
			})
		}
	}
	if opened != 0 {
		t.Errorf("resolver opened %d candidates for invalid parameters", opened)
	}
	if reads != 0 {
		t.Errorf("wasm module read %d times for invalid parameters", reads)
	}
}

func TestStaticBackend_Unlinked(t *testing.T) {
	if native.StaticAvailable {
		t.Skip("static core linked")
	}
	_, err := New(256, 0.5, WithBackend(Static))
	if !stderrors.Is(err, errors.ErrLoadFailed) {
		t.Fatalf("err = %v", err)
	}
	if errors.KindOf(err).Class() != errors.ClassEnvironment {
		t.Errorf("class = %v, want environment", errors.KindOf(err).Class())
	}
}

func TestWASMBackend(t *testing.T) {
	ctx := context.Background()
	l := engine.NewLoader(engine.Bytes(wasmstub.Build(wasmstub.Options{})), nil, nil)
	t.Cleanup(func() { l.Close(ctx) })

	v, err := New(256, 0.5, WithWASMLoader(l))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	frame := make([]int16, 256)
	frame[255] = 32767
	prob, voice, err := v.Process(frame)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !voice || prob < 0.99 {
		t.Errorf("loud frame = (%v, %v)", prob, voice)
	}

	frame[255] = 0
	if _, voice, _ := v.Process(frame); voice {
		t.Error("silent frame flagged as voice")
	}

	got, err := Version(WithWASMLoader(l))
	if err != nil || got != wasmstub.DefaultVersion {
		t.Errorf("Version = (%q, %v)", got, err)
	}
}

func TestWASMBackend_HandleMetrics(t *testing.T) {
	ctx := context.Background()
	l := engine.NewLoader(engine.Bytes(wasmstub.Build(wasmstub.Options{})), nil, nil)
	t.Cleanup(func() { l.Close(ctx) })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gauge := func(want string) {
		t.Helper()
		expected := `
# HELP tenvad_native_handles Native instances currently held by a core
# TYPE tenvad_native_handles gauge
tenvad_native_handles{core="wasm"} ` + want + "\n"
		if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "tenvad_native_handles"); err != nil {
			t.Fatal(err)
		}
	}

	a, err := New(256, 0.5, WithWASMLoader(l), WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(256, 0.5, WithWASMLoader(l), WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gauge("2")

	a.Close()
	gauge("1")
	b.Close()
	gauge("0")
}

func TestWASMBackend_ModuleFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ten_vad.wasm")
	if err := os.WriteFile(path, wasmstub.Build(wasmstub.Options{Version: "file-1.0"}), 0o644); err != nil {
		t.Fatal(err)
	}
	if Loader(path) != Loader(path) {
		t.Fatal("Loader should be cached per path")
	}
	t.Cleanup(func() { Loader(path).Close(ctx) })

	v, err := New(128, 0.3, WithWASMModule(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()
	if v.Version() != "file-1.0" {
		t.Errorf("Version = %q", v.Version())
	}
}

func TestWASMBackend_NoModule(t *testing.T) {
	_, err := New(256, 0.5, WithBackend(WASM))
	if !stderrors.Is(err, errors.ErrLibraryNotFound) {
		t.Fatalf("err = %v", err)
	}

	_, err = New(256, 0.5, WithWASMModule(filepath.Join(t.TempDir(), "missing.wasm")))
	if !stderrors.Is(err, errors.ErrLibraryNotFound) {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestIsMisuse(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{stderrors.New("plain"), false},
		{errors.FrameLength(1, 2), true},
		{errors.Uninitialized(errors.PhaseProcess), true},
		{errors.FromStatus(errors.PhaseProcess, -6), false},
		{errors.LibraryNotFound(nil, nil), false},
	}
	for _, tt := range tests {
		if got := IsMisuse(tt.err); got != tt.want {
			t.Errorf("IsMisuse(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
