// Package errors provides structured error types for the cilium library.
//
// Errors are categorized by Phase (which decoding stage failed) and Kind
// (error category). The Error type carries the offending table or heap path,
// the byte offset when known, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLayout, errors.KindTruncatedStream).
//		Path("#~", "TypeDef").
//		Offset(0x1c4).
//		Detail("rows end at %d, stream is %d bytes", end, size).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfRange(errors.PhaseTable, []string{"TypeDef"}, 12, 10)
//	err := errors.MalformedContainer("bad DOS magic %#04x", magic)
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching against the package sentinels compares only the Kind:
//
//	if errors.Is(err, cerrors.ErrMissingCLIHeader) { ... }
package errors
