package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/tourforge-core/internal/tour"
)

// setupTestDB creates an in-memory SQLite database with the pipeline
// schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE tours (
		id              TEXT PRIMARY KEY,
		style           TEXT NOT NULL,
		layout_type     TEXT NOT NULL DEFAULT '',
		dollhouse_url   TEXT,
		viewpoints      TEXT NOT NULL DEFAULT '[]',
		failed_room_ids TEXT,
		status          TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE pipeline_executions (
		id              TEXT PRIMARY KEY,
		tour_id         TEXT,
		image_url       TEXT NOT NULL,
		style           TEXT NOT NULL,
		started_at      TEXT,
		completed_at    TEXT,
		stage           TEXT NOT NULL,
		status          TEXT NOT NULL,
		rooms_total     INTEGER NOT NULL DEFAULT 0,
		rooms_completed INTEGER NOT NULL DEFAULT 0,
		rooms_failed    INTEGER NOT NULL DEFAULT 0,
		failures        TEXT,
		error_message   TEXT,
		duration_ms     INTEGER,
		triggered_at    TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return db
}

func testTour() *tour.Tour {
	return &tour.Tour{
		ID:           "tour-1",
		Style:        "modern",
		LayoutType:   "2-room apartment",
		DollhouseURL: "https://cdn.example.com/dollhouse.jpg",
		Viewpoints: []tour.Viewpoint{
			{
				ID:       "living_room",
				RoomID:   "living",
				ImageURL: "https://cdn.example.com/living.jpg",
				Hotspots: []tour.Hotspot{
					{TargetViewpointID: "kitchen", YawDegrees: 0, Label: "Kitchen"},
				},
			},
			{
				ID:       "kitchen",
				RoomID:   "kitchen",
				ImageURL: "https://cdn.example.com/kitchen.jpg",
			},
		},
		Status: tour.StatusCompleted,
	}
}

func testExecution() *Execution {
	return &Execution{
		ID:          "exec-1",
		ImageURL:    "https://example.com/plan.png",
		Style:       "modern",
		TriggeredAt: time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC),
		Stage:       StageAnalysis,
		Status:      StatusPending,
	}
}

// ─── Tour Tests ─────────────────────────────────────────────────────────────

func TestCreateAndGetTour(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	created := testTour()
	if err := repo.CreateTour(ctx, created); err != nil {
		t.Fatalf("CreateTour() error = %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	got, err := repo.GetTour(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetTour() error = %v", err)
	}

	if got.Style != "modern" || got.LayoutType != "2-room apartment" {
		t.Errorf("got style=%q layout=%q", got.Style, got.LayoutType)
	}
	if got.Status != tour.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if len(got.Viewpoints) != 2 {
		t.Fatalf("viewpoint count = %d, want 2", len(got.Viewpoints))
	}
	if len(got.Viewpoints[0].Hotspots) != 1 || got.Viewpoints[0].Hotspots[0].TargetViewpointID != "kitchen" {
		t.Errorf("hotspots did not survive round trip: %+v", got.Viewpoints[0].Hotspots)
	}
	if got.FailedRoomIDs == nil || len(got.FailedRoomIDs) != 0 {
		t.Errorf("failed room IDs = %v, want empty slice", got.FailedRoomIDs)
	}
}

func TestGetTour_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetTour(context.Background(), "missing")
	if !errors.Is(err, ErrTourNotFound) {
		t.Errorf("GetTour() error = %v, want ErrTourNotFound", err)
	}
}

func TestCreateTour_WithGaps(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	withGaps := testTour()
	withGaps.ID = "tour-2"
	withGaps.DollhouseURL = ""
	withGaps.FailedRoomIDs = []string{"kitchen"}
	withGaps.Status = tour.StatusCompletedWithGaps

	if err := repo.CreateTour(ctx, withGaps); err != nil {
		t.Fatalf("CreateTour() error = %v", err)
	}

	got, err := repo.GetTour(ctx, "tour-2")
	if err != nil {
		t.Fatalf("GetTour() error = %v", err)
	}
	if got.Status != tour.StatusCompletedWithGaps {
		t.Errorf("status = %q, want completed-with-gaps", got.Status)
	}
	if got.DollhouseURL != "" {
		t.Errorf("dollhouse URL = %q, want empty", got.DollhouseURL)
	}
	if len(got.FailedRoomIDs) != 1 || got.FailedRoomIDs[0] != "kitchen" {
		t.Errorf("failed room IDs = %v, want [kitchen]", got.FailedRoomIDs)
	}
}

func TestListTours(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	// Explicit timestamps: created_at is stored at second precision, so
	// back-to-back inserts would otherwise tie.
	first := testTour()
	first.ID = "tour-a"
	first.CreatedAt = time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	if err := repo.CreateTour(ctx, first); err != nil {
		t.Fatalf("CreateTour() error = %v", err)
	}

	second := testTour()
	second.ID = "tour-b"
	second.CreatedAt = time.Date(2026, 2, 14, 10, 0, 1, 0, time.UTC)
	if err := repo.CreateTour(ctx, second); err != nil {
		t.Fatalf("CreateTour() error = %v", err)
	}

	tours, err := repo.ListTours(ctx, 10)
	if err != nil {
		t.Fatalf("ListTours() error = %v", err)
	}
	if len(tours) != 2 {
		t.Fatalf("tour count = %d, want 2", len(tours))
	}
	if tours[0].ID != "tour-b" {
		t.Errorf("first listed = %q, want newest (tour-b)", tours[0].ID)
	}

	limited, err := repo.ListTours(ctx, 1)
	if err != nil {
		t.Fatalf("ListTours(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited count = %d, want 1", len(limited))
	}
}

// ─── Execution Tests ────────────────────────────────────────────────────────

func TestCreateAndGetExecution(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateExecution(ctx, testExecution()); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}

	got, err := repo.GetExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if got.Status != StatusPending || got.Stage != StageAnalysis {
		t.Errorf("status=%q stage=%q, want pending/analysis", got.Status, got.Stage)
	}
	if got.TourID != nil {
		t.Errorf("tour ID = %v, want nil before assembly", *got.TourID)
	}
	if !got.TriggeredAt.Equal(time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("triggered at = %v", got.TriggeredAt)
	}
	if len(got.Failures) != 0 {
		t.Errorf("failures = %v, want empty", got.Failures)
	}
}

func TestUpdateExecution_FullLifecycle(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	exec := testExecution()
	if err := repo.CreateExecution(ctx, exec); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}

	started := time.Date(2026, 2, 14, 9, 30, 1, 0, time.UTC)
	completed := time.Date(2026, 2, 14, 9, 34, 1, 0, time.UTC)
	duration := 240000
	tourID := "tour-1"

	exec.TourID = &tourID
	exec.StartedAt = &started
	exec.CompletedAt = &completed
	exec.Stage = StageDone
	exec.Status = StatusPartial
	exec.RoomsTotal = 3
	exec.RoomsCompleted = 2
	exec.RoomsFailed = 1
	exec.Failures = []RoomFailure{
		{RoomID: "kitchen", Kind: "retries_exhausted", ErrorMsg: "upstream error"},
	}
	exec.DurationMS = &duration

	if err := repo.UpdateExecution(ctx, exec); err != nil {
		t.Fatalf("UpdateExecution() error = %v", err)
	}

	got, err := repo.GetExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if got.Status != StatusPartial || got.Stage != StageDone {
		t.Errorf("status=%q stage=%q, want partial/done", got.Status, got.Stage)
	}
	if got.RoomsTotal != 3 || got.RoomsCompleted != 2 || got.RoomsFailed != 1 {
		t.Errorf("counts = %d/%d/%d", got.RoomsTotal, got.RoomsCompleted, got.RoomsFailed)
	}
	if len(got.Failures) != 1 || got.Failures[0].RoomID != "kitchen" {
		t.Errorf("failures = %+v", got.Failures)
	}
	if got.Failures[0].Kind != "retries_exhausted" {
		t.Errorf("failure kind = %q", got.Failures[0].Kind)
	}
	if got.TourID == nil || *got.TourID != "tour-1" {
		t.Error("tour ID did not survive round trip")
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started at = %v", got.StartedAt)
	}
	if got.DurationMS == nil || *got.DurationMS != 240000 {
		t.Errorf("duration = %v", got.DurationMS)
	}
}

func TestUpdateExecution_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	exec := testExecution()
	exec.ID = "missing"
	err := repo.UpdateExecution(context.Background(), exec)
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("UpdateExecution() error = %v, want ErrExecutionNotFound", err)
	}
}

func TestGetExecution_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetExecution(context.Background(), "missing")
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("GetExecution() error = %v, want ErrExecutionNotFound", err)
	}
}

func TestListExecutions(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for i, id := range []string{"exec-a", "exec-b", "exec-c"} {
		exec := testExecution()
		exec.ID = id
		exec.TriggeredAt = time.Date(2026, 2, 14, 9, 30+i, 0, 0, time.UTC)
		if err := repo.CreateExecution(ctx, exec); err != nil {
			t.Fatalf("CreateExecution(%s) error = %v", id, err)
		}
	}

	executions, err := repo.ListExecutions(ctx, 2)
	if err != nil {
		t.Fatalf("ListExecutions() error = %v", err)
	}
	if len(executions) != 2 {
		t.Fatalf("execution count = %d, want 2", len(executions))
	}
	if executions[0].ID != "exec-c" || executions[1].ID != "exec-b" {
		t.Errorf("order = %s, %s, want newest first", executions[0].ID, executions[1].ID)
	}
}
