// Package genservice talks to the external generative-image service.
//
// The service runs slow jobs (tens of seconds to minutes) behind a simple
// submit-then-poll API. This package wraps that conversation in two layers:
//
//	┌────────────────────────────────────────────┐
//	│ Retry (policy-bounded, linear backoff)     │
//	│  ┌──────────────────────────────────────┐  │
//	│  │ Client.Execute                       │  │
//	│  │   Submit   POST /jobs                │  │
//	│  │   Await    GET  /jobs/{id}  (× N)    │  │
//	│  └──────────────────────────────────────┘  │
//	└────────────────────────────────────────────┘
//
// Submission failures are terminal at the Client layer; retries happen
// only through Retry, and every retry is a fresh submission. The poll
// loop is timer-driven and strictly bounded: once the poll budget is
// spent the client gives up with a Timeout error, marking the job
// timed_out locally. Nothing is cancelled upstream; abandoned remote
// jobs run to their natural end. Callers treating a timeout as "the
// work stopped" will be wrong, and occasionally surprised.
//
// All failures are *JobError values carrying an ErrorKind, so callers
// branch with genservice.IsKind rather than string matching.
package genservice
