package genservice

import "time"

// JobKind identifies which generation model family a job belongs to.
type JobKind string

const (
	KindAnalyze   JobKind = "analyze"
	KindDollhouse JobKind = "dollhouse"
	KindViewpoint JobKind = "viewpoint"
)

// JobStatus is the lifecycle state of a generation job.
//
// queued and running come from the remote service. timed_out is synthetic:
// it means this client gave up polling, not that the remote job was
// cancelled. The upstream job may still run to completion on its own.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusTimedOut  JobStatus = "timed_out"
	StatusCanceled  JobStatus = "canceled"
)

// terminal reports whether a remote status ends the poll loop.
func (s JobStatus) terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Job tracks one generation request from submission to a terminal state.
//
// A Job is owned by the Client invocation that created it. Callers receive
// a copy via Snapshot and never share the live struct across goroutines.
type Job struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	Model     string    `json:"model"`
	Status    JobStatus `json:"status"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handle references a submitted job for subsequent polling.
type Handle struct {
	job *Job
}

// JobID returns the remote identifier of the submitted job.
func (h *Handle) JobID() string {
	return h.job.ID
}

// Snapshot returns a copy of the job's current state.
func (h *Handle) Snapshot() Job {
	return *h.job
}
