package temporal

import "errors"

var (
	// ErrRevertPanic wraps a panic recovered from a revert callback.
	ErrRevertPanic = errors.New("revert panicked")

	// ErrReentrantAdvance is returned when Advance is called from inside an
	// expiration callback of the same wheel.
	ErrReentrantAdvance = errors.New("wheel advance is not reentrant")
)
