package memo

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrInvalidRoot is returned by Open when the root path exists
	// but is not a directory.
	ErrInvalidRoot = errors.New("cache root is not a directory")
)

// SchemaMismatchError is returned when an input set names an input
// that the operation's schema does not declare.
type SchemaMismatchError struct {
	Op    string // operation identity
	Input string // offending input name
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("invalid input %q for operation %s", e.Input, e.Op)
}

// ExecutionError wraps a failure of the underlying operation.
// No cache entry is stored when it is returned.
type ExecutionError struct {
	Key Key   // resolved cache key of the failed invocation
	Err error // the operation's own failure
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("operation failed for %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// LogWriteError reports a failed usage-log append. It is fatal: once an
// append is lost, liveness tracking is compromised and a later garbage
// collection could delete entries that are still wanted.
type LogWriteError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LogWriteError) Error() string {
	return fmt.Sprintf("usage log append to %s failed: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *LogWriteError) Unwrap() error {
	return e.Err
}
