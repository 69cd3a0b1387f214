// Package errors provides structured error types for the LED matrix host.
//
// Errors are categorized by Phase (where in the load/render pipeline the
// error occurred) and Kind (error category). Every error produced by the
// core is fatal for the run: the host never retries a failed guest call,
// and process restart is the only recovery.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseReadback, errors.KindOutOfBounds).
//		Value(offset).
//		Detail("pixel buffer at %d leaves guest memory", offset).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingExport("update")
//	err := errors.OutOfBounds(errors.PhaseReadback, offset, 768, memSize)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
