package retry

import "github.com/docweave/crawler/pkg/failure"

// Result carries the outcome of a retried call: the value on success, the
// classified error on failure, and how many attempts it took. The zero
// value is never handed out directly; callers get one via NewSuccessResult
// or the internal failure constructors in Retry/RetryCtx.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

// NewSuccessResult wraps a successful call's return value.
func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{
		value:    value,
		attempts: attempts,
	}
}

// Value returns the call's return value. Zero value if the call failed.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the classified error, or nil if the call succeeded.
func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

// Attempts returns how many attempts were made before returning.
func (r Result[T]) Attempts() int {
	return r.attempts
}

// IsSuccess reports whether the call completed without error.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// IsFailure reports whether the call exhausted attempts or hit a
// non-retryable error.
func (r Result[T]) IsFailure() bool {
	return r.err != nil
}
