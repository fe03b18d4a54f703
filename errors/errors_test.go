package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseProcess,
				Kind:   KindProcessError,
				Code:   -6,
				Detail: "error during processing",
			},
			contains: []string{"tenvad:", "[process]", "process_error", "code -6", "error during processing"},
		},
		{
			name: "minimal error",
			err: &Error{
				Kind: KindUninitialized,
			},
			contains: []string{"uninitialized"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseResolve,
				Kind:   KindLibraryNotFound,
				Detail: "no native library found",
				Cause:  errors.New("dlopen failed"),
			},
			contains: []string{"[resolve]", "library_not_found", "caused by", "dlopen failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInitFailed,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseProcess,
		Kind:  KindInvalidArgument,
	}

	if !err.Is(&Error{Phase: PhaseProcess, Kind: KindInvalidArgument}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCreate, Kind: KindInvalidArgument}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseProcess, Kind: KindUninitialized}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("sentinel without phase should match on kind")
	}
	if errors.Is(err, ErrInvalidParameter) {
		t.Error("InvalidArgument must stay distinct from InvalidParameter")
	}

	wrapped := fmt.Errorf("frame 3: %w", err)
	if !errors.Is(wrapped, ErrInvalidArgument) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCreate, KindInitFailed).
		Code(-1).
		Value(256).
		Cause(cause).
		Detail("hop size %d rejected", 256).
		Build()

	if err.Phase != PhaseCreate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCreate)
	}
	if err.Kind != KindInitFailed {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInitFailed)
	}
	if err.Code != -1 {
		t.Errorf("Code = %d, want -1", err.Code)
	}
	if err.Value != 256 {
		t.Errorf("Value = %v, want 256", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "hop size 256 rejected" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int32
		want Kind
	}{
		{0, ""},
		{1, ""},
		{2, ""},
		{1000, ""},
		{-1, KindInitFailed},
		{-2, KindInvalidSampleRate},
		{-3, KindInvalidFrameLength},
		{-4, KindInvalidMode},
		{-5, KindUninitialized},
		{-6, KindProcessError},
		{-7, KindInvalidParameter},
		{-8, KindInternalError},
		{-100, KindInternalError},
		{-12345, KindInternalError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := FromStatus(PhaseProcess, tt.code)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("FromStatus(%d) = %v, want nil", tt.code, err)
				}
				return
			}
			if KindOf(err) != tt.want {
				t.Fatalf("FromStatus(%d) kind = %q, want %q", tt.code, KindOf(err), tt.want)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatal("expected *Error")
			}
			if e.Code != tt.code {
				t.Errorf("Code = %d, want %d", e.Code, tt.code)
			}
			if e.Phase != PhaseProcess {
				t.Errorf("Phase = %q, want process", e.Phase)
			}
		})
	}
}

func TestFromStatus_InternalKeepsCode(t *testing.T) {
	err := FromStatus(PhaseProcess, -42)
	if !strings.Contains(err.Error(), "-42") {
		t.Errorf("message %q should contain the original code", err.Error())
	}
}

func TestFromStatusStrict(t *testing.T) {
	tests := []struct {
		phase Phase
		code  int32
		want  Kind
	}{
		{PhaseProcess, 0, ""},
		{PhaseProcess, 1, ""},
		{PhaseProcess, 2, KindUnexpectedStatus},
		{PhaseCreate, 0, ""},
		{PhaseCreate, 1, KindUnexpectedStatus},
		{PhaseDestroy, 7, KindUnexpectedStatus},
		{PhaseProcess, -6, KindProcessError},
		{PhaseCreate, -99, KindInternalError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.phase, tt.code), func(t *testing.T) {
			err := FromStatusStrict(tt.phase, tt.code)
			if got := KindOf(err); got != tt.want {
				t.Fatalf("kind = %q, want %q (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestKindClass(t *testing.T) {
	tests := []struct {
		kind Kind
		want Class
	}{
		{KindInvalidArgument, ClassMisuse},
		{KindInvalidParameter, ClassMisuse},
		{KindUninitialized, ClassMisuse},
		{KindInitFailed, ClassEngine},
		{KindProcessError, ClassEngine},
		{KindInternalError, ClassEngine},
		{KindLibraryNotFound, ClassEnvironment},
		{KindLoadFailed, ClassEnvironment},
		{KindMissingImport, ClassEnvironment},
	}
	for _, tt := range tests {
		if got := tt.kind.Class(); got != tt.want {
			t.Errorf("%s.Class() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf(plain) should be empty")
	}
	err := fmt.Errorf("outer: %w", LibraryNotFound([]string{"/a", "/b"}, nil))
	if KindOf(err) != KindLibraryNotFound {
		t.Errorf("KindOf = %q", KindOf(err))
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("FrameLength", func(t *testing.T) {
		err := FrameLength(255, 256)
		if err.Kind != KindInvalidArgument {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidArgument)
		}
		if !strings.Contains(err.Detail, "255") || !strings.Contains(err.Detail, "256") {
			t.Errorf("Detail = %q, should contain both lengths", err.Detail)
		}
	})

	t.Run("InvalidParameter", func(t *testing.T) {
		err := InvalidParameter("threshold out of range", float32(1.5))
		if err.Kind != KindInvalidParameter || err.Phase != PhaseCreate {
			t.Errorf("got %v", err)
		}
	})

	t.Run("LibraryNotFound", func(t *testing.T) {
		err := LibraryNotFound([]string{"lib/Linux/x64/libten_vad.so", "libten_vad.so"}, errors.New("not found"))
		if !strings.Contains(err.Detail, "lib/Linux/x64/libten_vad.so") {
			t.Errorf("Detail = %q, should list probed paths", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseProcess, 512, nil)
		if err.Kind != KindAllocation || !strings.Contains(err.Detail, "512") {
			t.Errorf("got %v", err)
		}
	})

	t.Run("Load", func(t *testing.T) {
		err := Load("bind libten_vad.so", errors.New("undefined symbol"))
		if err.Kind != KindLoadFailed || err.Phase != PhaseLoad {
			t.Errorf("got %v", err)
		}
		if err.Kind.Class() != ClassEnvironment {
			t.Errorf("Class = %v, want environment", err.Kind.Class())
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseProcess, 70000, 4)
		if err.Kind != KindOutOfBounds || err.Value != uint32(70000) {
			t.Errorf("got %v", err)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env.emscripten_asm_const_int"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Module != "env" {
			t.Errorf("module = %q, want env", err.Imports[0].Module)
		}
		if err.Imports[0].Function != "emscripten_asm_const_int" {
			t.Errorf("function = %q", err.Imports[0].Function)
		}
	})

	t.Run("multiple modules grouped", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env.a",
			"js.b",
			"env.c",
		})
		msg := err.Error()
		if !strings.Contains(msg, "missing 3") {
			t.Errorf("error should contain count: %s", msg)
		}
		if !strings.Contains(msg, "env:") || !strings.Contains(msg, "js:") {
			t.Errorf("error should group by module: %s", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError(nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env.fn"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
		if !errors.Is(err, &Error{Kind: KindMissingImport}) {
			t.Error("errors.Is should match missing_import kind")
		}
	})
}
