// Package errors provides the structured error taxonomy for the VAD bindings.
//
// Errors are categorized by Phase (which binding operation failed) and Kind
// (error category). Native status codes are mapped with FromStatus, which
// keeps the source policy: every non-negative code is success, recognized
// negative codes map to their kind, and any other negative code becomes
// KindInternalError with the numeric code preserved.
//
//	if err := errors.FromStatus(errors.PhaseProcess, code); err != nil {
//		return err
//	}
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCreate, errors.KindInitFailed).
//		Code(-1).
//		Detail("native create returned a null handle").
//		Build()
//
// Callers branch on kind, never on message text:
//
//	if errors.Is(err, errors.ErrInvalidArgument) { ... }
//	switch errors.KindOf(err).Class() { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
