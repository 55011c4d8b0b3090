package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Stage names the pipeline step an execution is currently in. Stages are
// strictly sequential; each depends on the previous stage's typed output.
type Stage string

const (
	StageAnalysis   Stage = "analysis"
	StageGraph      Stage = "graph"
	StageDollhouse  Stage = "dollhouse"
	StageViewpoints Stage = "viewpoints"
	StageAssemble   Stage = "assemble"
	StageDone       Stage = "done"
)

// ExecStatus represents the state of a pipeline execution.
type ExecStatus string

const (
	StatusPending   ExecStatus = "pending"
	StatusRunning   ExecStatus = "running"
	StatusCompleted ExecStatus = "completed"
	StatusPartial   ExecStatus = "partial"   // Some rooms failed, tour still assembled
	StatusFailed    ExecStatus = "failed"    // A fatal stage failed, no tour produced
	StatusCancelled ExecStatus = "cancelled" // Context cancelled mid-execution
)

// Execution tracks a single run of the tour pipeline.
type Execution struct {
	ID       string  `json:"id"`
	TourID   *string `json:"tour_id,omitempty"`
	ImageURL string  `json:"image_url"`
	Style    string  `json:"style"`

	TriggeredAt time.Time  `json:"triggered_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Stage  Stage      `json:"stage"`
	Status ExecStatus `json:"status"`

	// Room counts from the viewpoint fan-out
	RoomsTotal     int `json:"rooms_total"`
	RoomsCompleted int `json:"rooms_completed"`
	RoomsFailed    int `json:"rooms_failed"`

	// Failure details (populated when rooms fail)
	Failures []RoomFailure `json:"failures,omitempty"`

	// ErrorMessage is set when a fatal stage aborts the pipeline.
	ErrorMessage *string `json:"error_message,omitempty"`

	// Total execution duration in milliseconds
	DurationMS *int `json:"duration_ms,omitempty"`
}

// RoomFailure records details of a failed room within an execution.
type RoomFailure struct {
	RoomID   string `json:"room_id"`
	Kind     string `json:"kind"`
	ErrorMsg string `json:"error_message"`
}

// GenerateID creates a new UUID for a tour or execution.
func GenerateID() string {
	return uuid.New().String()
}
