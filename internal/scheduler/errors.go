package scheduler

import (
	"fmt"

	"github.com/docweave/crawler/pkg/failure"
)

// dispatchErrorCause classifies why fetchViaBackend gave up on a URL, for
// logging only; it carries no control-flow meaning beyond Retryable.
type dispatchErrorCause string

const (
	causeNoBackend       dispatchErrorCause = "no backend registered"
	causePermanentStatus dispatchErrorCause = "permanent http status"
	causeExhausted       dispatchErrorCause = "exhausted attempts"
	causeCancelled       dispatchErrorCause = "cancelled"
	causeLocalFile       dispatchErrorCause = "local file error"
)

// dispatchError is the C7-level ClassifiedError returned when the
// per-status-code retry loop in fetchViaBackend gives up on a token.
// Unlike the per-package errors (fetcher.FetchError, robots.RobotsError,
// ...), it wraps no underlying error: it carries only a cause and the
// backend's reason string, since by this point the concrete transport is
// opaque.
type dispatchError struct {
	cause     dispatchErrorCause
	message   string
	retryable bool
}

func (e *dispatchError) Error() string {
	return fmt.Sprintf("fetch dispatch error: %s: %s", e.cause, e.message)
}

func (e *dispatchError) Severity() failure.Severity {
	if e.retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *dispatchError) IsRetryable() bool {
	return e.retryable
}
