package genservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/tourforge-core/internal/infrastructure/config"
)

// Logger is the minimal logging interface this package requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// submitRequest is the wire format for job submission.
type submitRequest struct {
	ModelID string         `json:"modelId"`
	Input   map[string]any `json:"input"`
}

// submitResponse is the wire format returned by a submission call.
type submitResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// statusResponse is the wire format returned by a status poll.
type statusResponse struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client submits generation jobs to the external service and polls them
// to a terminal state.
//
// Each Submit creates a fresh Job owned by that invocation; the Client
// itself holds no per-job state and is safe for concurrent use.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	http   *resty.Client
	cfg    config.GenServiceConfig
	logger Logger
}

// NewClient creates a generation service client from configuration.
//
// A nil logger is replaced with a no-op implementation.
func NewClient(cfg config.GenServiceConfig, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}

	submitTimeout := cfg.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = 30
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(submitTimeout) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		http.SetAuthToken(cfg.Token)
	}

	return &Client{
		http:   http,
		cfg:    cfg,
		logger: logger,
	}
}

// Submit sends one generation request and records the returned job ID.
//
// A non-2xx response or malformed body is a terminal SubmitFailed error.
// This layer never retries; wrap the full submit+await cycle with Retry
// when retries are wanted.
func (c *Client) Submit(ctx context.Context, kind JobKind, model string, input map[string]any) (*Handle, error) {
	job := &Job{
		Kind:      kind,
		Model:     model,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	var result submitResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(submitRequest{ModelID: model, Input: input}).
		SetResult(&result).
		Post("/jobs")
	if err != nil {
		if ctx.Err() != nil {
			return nil, &JobError{Kind: KindCanceled, Detail: "submit cancelled", Err: ctx.Err()}
		}
		return nil, &JobError{Kind: KindSubmitFailed, Detail: "submission request failed", Err: err}
	}
	if resp.IsError() {
		return nil, &JobError{
			Kind:   KindSubmitFailed,
			Detail: fmt.Sprintf("generation service returned %d", resp.StatusCode()),
		}
	}
	if result.JobID == "" {
		return nil, &JobError{Kind: KindSubmitFailed, Detail: "submission response missing job id"}
	}

	job.ID = result.JobID
	if result.Status != "" {
		job.Status = JobStatus(result.Status)
	}

	c.logger.Debug("generation job submitted",
		"job_id", job.ID,
		"kind", string(kind),
		"model", model,
	)

	return &Handle{job: job}, nil
}

// AwaitResult polls the job until it reaches a terminal state and returns
// the extracted output reference (an image URL).
//
// Polling is timer-driven and honours ctx cancellation. One status request
// is issued per poll interval; once the configured poll budget is spent
// while the job is still queued or running, the job is marked timed out on
// our side and a Timeout error is returned. The remote job keeps running.
func (c *Client) AwaitResult(ctx context.Context, handle *Handle) (string, error) {
	job := handle.job

	interval := time.Duration(c.cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxAttempts := c.cfg.MaxPollAttempts
	if maxAttempts <= 0 {
		maxAttempts = 60
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		job.Attempt = attempt

		status, err := c.pollOnce(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				job.Status = StatusCanceled
				return "", &JobError{Kind: KindCanceled, Detail: "poll cancelled", Err: ctx.Err()}
			}
			// A single failed poll is not terminal; the job may still be
			// running. Log and keep polling until the budget runs out.
			c.logger.Warn("status poll failed",
				"job_id", job.ID,
				"attempt", attempt,
				"error", err,
			)
		} else {
			remote := JobStatus(status.Status)
			if remote.terminal() {
				return c.finish(job, remote, status)
			}
			job.Status = remote
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			job.Status = StatusCanceled
			return "", &JobError{Kind: KindCanceled, Detail: "poll cancelled", Err: ctx.Err()}
		case <-timer.C:
		}
	}

	job.Error = fmt.Sprintf("still %s after %d polls", job.Status, maxAttempts)
	job.Status = StatusTimedOut
	return "", &JobError{
		Kind:   KindTimeout,
		Detail: fmt.Sprintf("job %s not terminal after %d polls", job.ID, maxAttempts),
	}
}

// Execute runs the full submit+poll cycle once.
//
// This is the unit of work that Retry wraps: a fresh submission per
// attempt, never a re-poll of a dead job.
func (c *Client) Execute(ctx context.Context, kind JobKind, model string, input map[string]any) (string, error) {
	handle, err := c.Submit(ctx, kind, model, input)
	if err != nil {
		return "", err
	}
	return c.AwaitResult(ctx, handle)
}

// pollOnce issues a single status request.
func (c *Client) pollOnce(ctx context.Context, jobID string) (*statusResponse, error) {
	var result statusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/jobs/" + jobID)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status request returned %d", resp.StatusCode())
	}
	return &result, nil
}

// finish resolves a terminal remote status into a result or error.
func (c *Client) finish(job *Job, remote JobStatus, status *statusResponse) (string, error) {
	job.Status = remote

	if remote != StatusSucceeded {
		job.Error = status.Error
		detail := fmt.Sprintf("job %s ended %s", job.ID, remote)
		if status.Error != "" {
			detail = fmt.Sprintf("%s: %s", detail, status.Error)
		}
		return "", &JobError{Kind: KindUpstreamFailed, Detail: detail}
	}

	output, err := extractOutput(status.Output)
	if err != nil {
		job.Error = err.Error()
		return "", &JobError{
			Kind:   KindMalformedOutput,
			Detail: fmt.Sprintf("job %s succeeded without extractable output", job.ID),
			Err:    err,
		}
	}

	job.Result = output
	c.logger.Debug("generation job succeeded",
		"job_id", job.ID,
		"polls", job.Attempt,
	)
	return output, nil
}

// extractOutput pulls the result reference out of a terminal payload.
//
// Providers are inconsistent about output shape, so three forms are
// accepted, tried in order:
//  1. an array of outputs, first element taken
//  2. a bare string
//  3. an object with an images array, first element taken
func extractOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty output payload")
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 && list[0] != "" {
			return list[0], nil
		}
		return "", fmt.Errorf("output array is empty")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single != "" {
			return single, nil
		}
		return "", fmt.Errorf("output string is empty")
	}

	var nested struct {
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested.Images) > 0 && nested.Images[0] != "" {
			return nested.Images[0], nil
		}
	}

	return "", fmt.Errorf("no recognised output shape")
}
