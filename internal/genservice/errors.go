package genservice

import (
	"errors"
	"fmt"
)

// ErrorKind classifies job failures so callers can branch on failure mode
// without string matching.
type ErrorKind string

const (
	// KindSubmitFailed means the submission call itself failed (non-2xx or
	// malformed response body). Nothing was enqueued remotely.
	KindSubmitFailed ErrorKind = "submit_failed"

	// KindMalformedOutput means the job succeeded upstream but its terminal
	// payload carried no extractable result reference.
	KindMalformedOutput ErrorKind = "malformed_output"

	// KindUpstreamFailed means the remote service reported the job as
	// failed or canceled.
	KindUpstreamFailed ErrorKind = "upstream_failed"

	// KindTimeout means the poll budget was exhausted while the job was
	// still queued or running. The remote job is not cancelled.
	KindTimeout ErrorKind = "timeout"

	// KindCanceled means the caller's context was cancelled mid-operation.
	KindCanceled ErrorKind = "canceled"

	// KindRetriesExhausted means every retry attempt failed. The wrapped
	// error is the last attempt's failure.
	KindRetriesExhausted ErrorKind = "retries_exhausted"
)

// JobError is the error type returned by all Client and Retry operations.
type JobError struct {
	Kind ErrorKind

	// Detail is a human-readable description of what went wrong.
	Detail string

	// Attempts is set on RetriesExhausted errors to the number of
	// attempts consumed.
	Attempts int

	// Err is the underlying cause, when one exists.
	Err error
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("genservice: %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("genservice: %s: %s", e.Kind, e.Detail)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, unwrapping as needed.
// Returns "" if err is not a JobError.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return ""
}

// IsKind reports whether err is a JobError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
