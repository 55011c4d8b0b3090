package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline persistence.
var (
	// ErrTourNotFound indicates the requested tour does not exist.
	ErrTourNotFound = errors.New("pipeline: tour not found")

	// ErrExecutionNotFound indicates the requested execution does not exist.
	ErrExecutionNotFound = errors.New("pipeline: execution not found")
)

// FailureKind classifies fatal pipeline failures.
type FailureKind string

const (
	// KindAnalysisFailed means the analysis job errored or returned no
	// usable rooms.
	KindAnalysisFailed FailureKind = "analysis_failed"

	// KindInvalidFloorPlan means the analysis output failed graph
	// validation.
	KindInvalidFloorPlan FailureKind = "invalid_floor_plan"

	// KindAllViewpointsFailed means every room's generation job failed.
	KindAllViewpointsFailed FailureKind = "all_viewpoints_failed"
)

// Error is a fatal pipeline failure. Fatal failures abort the run and
// surface as a single typed error; no partial tour is returned. A
// whole-pipeline re-run is the only retry path.
type Error struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline: %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("pipeline: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err is a pipeline Error of the given kind.
func IsFailure(err error, kind FailureKind) bool {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.Kind == kind
	}
	return false
}
