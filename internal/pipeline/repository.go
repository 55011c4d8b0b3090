package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/tourforge-core/internal/tour"
)

// Repository defines the interface for tour and execution persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Tour persistence. Tours are written once at assembly and never
	// updated.
	CreateTour(ctx context.Context, t *tour.Tour) error
	GetTour(ctx context.Context, id string) (*tour.Tour, error)
	ListTours(ctx context.Context, limit int) ([]tour.Tour, error)

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, limit int) ([]Execution, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// tourColumns is the SELECT column list for tour queries.
const tourColumns = `id, style, layout_type, dollhouse_url, viewpoints,
			failed_room_ids, status, created_at, updated_at`

// CreateTour inserts a newly assembled tour.
func (r *SQLiteRepository) CreateTour(ctx context.Context, t *tour.Tour) error {
	viewpointsJSON, err := json.Marshal(t.Viewpoints)
	if err != nil {
		return fmt.Errorf("marshalling viewpoints: %w", err)
	}
	failedJSON, err := json.Marshal(t.FailedRoomIDs)
	if err != nil {
		return fmt.Errorf("marshalling failed room ids: %w", err)
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query := `
		INSERT INTO tours (
			id, style, layout_type, dollhouse_url, viewpoints,
			failed_room_ids, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		t.ID,
		t.Style,
		t.LayoutType,
		nullableString(strPtrOrNil(t.DollhouseURL)),
		string(viewpointsJSON),
		string(failedJSON),
		string(t.Status),
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting tour: %w", err)
	}
	return nil
}

// GetTour retrieves a tour by its unique identifier.
func (r *SQLiteRepository) GetTour(ctx context.Context, id string) (*tour.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	t, err := scanTourRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTourNotFound
		}
		return nil, fmt.Errorf("querying tour by id: %w", err)
	}
	return t, nil
}

// ListTours retrieves recent tours, newest first.
func (r *SQLiteRepository) ListTours(ctx context.Context, limit int) ([]tour.Tour, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + tourColumns + ` FROM tours ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying tours: %w", err)
	}
	defer rows.Close()

	var tours []tour.Tour
	for rows.Next() {
		t, scanErr := scanTourRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning tour: %w", scanErr)
		}
		tours = append(tours, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tours: %w", err)
	}
	return tours, nil
}

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, tour_id, image_url, style, started_at, completed_at,
			stage, status, rooms_total, rooms_completed, rooms_failed,
			failures, error_message, duration_ms, triggered_at`

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	query := `
		INSERT INTO pipeline_executions (
			id, tour_id, image_url, style, started_at, completed_at,
			stage, status, rooms_total, rooms_completed, rooms_failed,
			failures, error_message, duration_ms, triggered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		nullableString(exec.TourID),
		exec.ImageURL,
		exec.Style,
		nullableTime(exec.StartedAt),
		nullableTime(exec.CompletedAt),
		string(exec.Stage),
		string(exec.Status),
		exec.RoomsTotal,
		exec.RoomsCompleted,
		exec.RoomsFailed,
		failuresJSON,
		nullableString(exec.ErrorMessage),
		exec.DurationMS,
		exec.TriggeredAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution updates an existing execution record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	query := `
		UPDATE pipeline_executions SET
			tour_id = ?, started_at = ?, completed_at = ?, stage = ?, status = ?,
			rooms_total = ?, rooms_completed = ?, rooms_failed = ?,
			failures = ?, error_message = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableString(exec.TourID),
		nullableTime(exec.StartedAt),
		nullableTime(exec.CompletedAt),
		string(exec.Stage),
		string(exec.Status),
		exec.RoomsTotal,
		exec.RoomsCompleted,
		exec.RoomsFailed,
		failuresJSON,
		nullableString(exec.ErrorMessage),
		exec.DurationMS,
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM pipeline_executions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions, newest first.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + `
		FROM pipeline_executions
		ORDER BY triggered_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, scanErr := scanExecutionRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTourRow(scanner rowScanner) (*tour.Tour, error) {
	var t tour.Tour
	var dollhouseURL, failedJSON sql.NullString
	var viewpointsJSON, status string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&t.ID,
		&t.Style,
		&t.LayoutType,
		&dollhouseURL,
		&viewpointsJSON,
		&failedJSON,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dollhouseURL.Valid {
		t.DollhouseURL = dollhouseURL.String
	}
	t.Status = tour.Status(status)

	if viewpointsJSON != "" && viewpointsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(viewpointsJSON), &t.Viewpoints); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling viewpoints: %w", jsonErr)
		}
	}
	if t.Viewpoints == nil {
		t.Viewpoints = []tour.Viewpoint{}
	}

	if failedJSON.Valid && failedJSON.String != "" {
		if jsonErr := json.Unmarshal([]byte(failedJSON.String), &t.FailedRoomIDs); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling failed room ids: %w", jsonErr)
		}
	}
	if t.FailedRoomIDs == nil {
		t.FailedRoomIDs = []string{}
	}

	if parsed, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		t.CreatedAt = parsed
	}
	if parsed, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		t.UpdatedAt = parsed
	}

	return &t, nil
}

func scanExecutionRow(scanner rowScanner) (*Execution, error) {
	var exec Execution
	var tourID, startedAt, completedAt, failuresJSON, errorMessage sql.NullString
	var durationMS sql.NullInt64
	var stage, status, triggeredAt string

	err := scanner.Scan(
		&exec.ID,
		&tourID,
		&exec.ImageURL,
		&exec.Style,
		&startedAt,
		&completedAt,
		&stage,
		&status,
		&exec.RoomsTotal,
		&exec.RoomsCompleted,
		&exec.RoomsFailed,
		&failuresJSON,
		&errorMessage,
		&durationMS,
		&triggeredAt,
	)
	if err != nil {
		return nil, err
	}

	exec.Stage = Stage(stage)
	exec.Status = ExecStatus(status)

	if tourID.Valid {
		exec.TourID = &tourID.String
	}
	if errorMessage.Valid {
		exec.ErrorMessage = &errorMessage.String
	}
	if durationMS.Valid {
		duration := int(durationMS.Int64)
		exec.DurationMS = &duration
	}

	if startedAt.Valid {
		if parsed, parseErr := time.Parse(time.RFC3339, startedAt.String); parseErr == nil {
			exec.StartedAt = &parsed
		}
	}
	if completedAt.Valid {
		if parsed, parseErr := time.Parse(time.RFC3339, completedAt.String); parseErr == nil {
			exec.CompletedAt = &parsed
		}
	}
	if parsed, parseErr := time.Parse(time.RFC3339, triggeredAt); parseErr == nil {
		exec.TriggeredAt = parsed
	}

	if failuresJSON.Valid && failuresJSON.String != "" {
		if jsonErr := json.Unmarshal([]byte(failuresJSON.String), &exec.Failures); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", jsonErr)
		}
	}

	return &exec, nil
}

// marshalFailures serialises room failures to JSON, using NULL for none.
func marshalFailures(failures []RoomFailure) (any, error) {
	if len(failures) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// nullableString converts a *string to a driver-friendly value.
func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// nullableTime converts a *time.Time to RFC3339 text or NULL.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
