package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStageDuration records how long a pipeline stage took.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - executionID: Pipeline execution identifier
//   - stage: Stage name (e.g., "analysis", "dollhouse", "viewpoints")
//   - duration: Wall-clock time the stage took
//   - succeeded: Whether the stage completed successfully
func (c *Client) WriteStageDuration(executionID string, stage string, duration time.Duration, succeeded bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"pipeline_stages",
		map[string]string{
			"stage":     stage,
			"succeeded": boolTag(succeeded),
		},
		map[string]interface{}{
			"duration_ms":  duration.Milliseconds(),
			"execution_id": executionID,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteJobOutcome records the outcome of a single generation job.
//
// Used for tracking upstream service reliability per job kind and model.
//
// Parameters:
//   - kind: Job kind (e.g., "analyze", "dollhouse", "viewpoint")
//   - model: Model identifier the job ran against
//   - status: Terminal status (e.g., "succeeded", "failed", "timed_out")
//   - attempts: Number of attempts consumed, including retries
//   - duration: Total time from first submit to terminal status
func (c *Client) WriteJobOutcome(kind string, model string, status string, attempts int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"generation_jobs",
		map[string]string{
			"kind":   kind,
			"model":  model,
			"status": status,
		},
		map[string]interface{}{
			"attempts":    attempts,
			"duration_ms": duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCacheAccess records a cache hit or miss for a generation result.
//
// Parameters:
//   - kind: The kind of result looked up (e.g., "dollhouse", "viewpoint")
//   - hit: Whether the lookup was a hit
func (c *Client) WriteCacheAccess(kind string, hit bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"cache_access",
		map[string]string{
			"kind": kind,
			"hit":  boolTag(hit),
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
