package errors

import "fmt"

// messages holds the stable, host-independent text for each kind.
var messages = map[Kind]string{
	KindInitFailed:         "initialization failed",
	KindLoadFailed:         "native module could not be loaded",
	KindInvalidSampleRate:  "invalid sample rate (must be 8000, 16000, 32000, or 48000 Hz)",
	KindInvalidFrameLength: "invalid frame length (must be 10, 20, or 30 ms)",
	KindInvalidMode:        "invalid mode",
	KindUninitialized:      "VAD instance is uninitialized or already closed",
	KindProcessError:       "error during processing",
	KindInvalidParameter:   "invalid parameter",
	KindInternalError:      "unknown internal error",
}

// Message returns the stable human-readable text for a kind.
func Message(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return string(k)
}

// statusKinds maps the recognized negative native codes.
var statusKinds = map[int32]Kind{
	-1: KindInitFailed,
	-2: KindInvalidSampleRate,
	-3: KindInvalidFrameLength,
	-4: KindInvalidMode,
	-5: KindUninitialized,
	-6: KindProcessError,
	-7: KindInvalidParameter,
}

// FromStatus maps a native status code to an error.
// Every non-negative code is success; unrecognized negative codes become
// KindInternalError with the code preserved.
func FromStatus(phase Phase, code int32) error {
	if code >= 0 {
		return nil
	}
	kind, ok := statusKinds[code]
	if !ok {
		return &Error{
			Phase:  phase,
			Kind:   KindInternalError,
			Code:   code,
			Detail: fmt.Sprintf("unknown native status code: %d", code),
		}
	}
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Code:   code,
		Detail: messages[kind],
	}
}

// FromStatusStrict is FromStatus that also rejects unrecognized
// non-negative codes. The process phase accepts 0 and 1; every other phase
// accepts only 0.
func FromStatusStrict(phase Phase, code int32) error {
	if code < 0 {
		return FromStatus(phase, code)
	}
	if code == 0 || (code == 1 && phase == PhaseProcess) {
		return nil
	}
	return &Error{
		Phase:  phase,
		Kind:   KindUnexpectedStatus,
		Code:   code,
		Detail: fmt.Sprintf("unrecognized native status code: %d", code),
	}
}
