package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for schedule persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Schedule CRUD
	GetByID(ctx context.Context, id string) (*Schedule, error)
	GetBySlug(ctx context.Context, slug string) (*Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	ListEnabled(ctx context.Context) ([]Schedule, error)
	Create(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id string) error

	// UpdateRunState persists fire bookkeeping after an execution or
	// a claimed tick: next fire time, last-executed stamp, counter,
	// and the enabled flag (once schedules disable themselves).
	UpdateRunState(ctx context.Context, id string, next *time.Time, last *time.Time, executionCount int, enabled bool) error

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, scheduleID string, limit int) ([]Execution, error)
}

// scheduleColumns is the SELECT column list for schedule queries.
const scheduleColumns = `id, name, slug, description, enabled, recurrence, time_of_day,
			days_of_week, run_date, execution_order, auto_find_games,
			delay_between_commands_ms, pinned_outputs, actions,
			next_execution_at, last_executed_at, execution_count, created_at, updated_at`

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, schedule_id, triggered_at, started_at, completed_at,
			trigger_type, trigger_source, status,
			steps_total, steps_completed, steps_failed, failures, notes, duration_ms`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a schedule by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanScheduleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule by id: %w", err)
	}
	return s, nil
}

// GetBySlug retrieves a schedule by its slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE slug = ?`

	row := r.db.QueryRowContext(ctx, query, slug)
	s, err := scanScheduleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule by slug: %w", err)
	}
	return s, nil
}

// List retrieves all schedules ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY name`
	return r.querySchedules(ctx, query)
}

// ListEnabled retrieves enabled schedules ordered by next fire time.
func (r *SQLiteRepository) ListEnabled(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE enabled = 1 ORDER BY next_execution_at`
	return r.querySchedules(ctx, query)
}

// Create inserts a new schedule.
func (r *SQLiteRepository) Create(ctx context.Context, s *Schedule) error {
	daysJSON, actionsJSON, pinnedJSON, err := marshalScheduleJSON(s)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO schedules (
			id, name, slug, description, enabled, recurrence, time_of_day,
			days_of_week, run_date, execution_order, auto_find_games,
			delay_between_commands_ms, pinned_outputs, actions,
			next_execution_at, last_executed_at, execution_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Slug,
		nullableStringPtr(s.Description),
		boolToInt(s.Enabled),
		string(s.Recurrence),
		s.TimeOfDay,
		daysJSON,
		nullableStringPtr(s.RunDate),
		string(s.ExecutionOrder),
		boolToInt(s.AutoFindGames),
		s.DelayBetweenCommandsMS,
		pinnedJSON,
		actionsJSON,
		nullableTime(s.NextExecutionAt),
		nullableTime(s.LastExecutedAt),
		s.ExecutionCount,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrScheduleExists
		}
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

// Update modifies an existing schedule.
func (r *SQLiteRepository) Update(ctx context.Context, s *Schedule) error {
	daysJSON, actionsJSON, pinnedJSON, err := marshalScheduleJSON(s)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE schedules SET
			name = ?, slug = ?, description = ?, enabled = ?, recurrence = ?,
			time_of_day = ?, days_of_week = ?, run_date = ?, execution_order = ?,
			auto_find_games = ?, delay_between_commands_ms = ?, pinned_outputs = ?,
			actions = ?, next_execution_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		s.Name,
		s.Slug,
		nullableStringPtr(s.Description),
		boolToInt(s.Enabled),
		string(s.Recurrence),
		s.TimeOfDay,
		daysJSON,
		nullableStringPtr(s.RunDate),
		string(s.ExecutionOrder),
		boolToInt(s.AutoFindGames),
		s.DelayBetweenCommandsMS,
		pinnedJSON,
		actionsJSON,
		nullableTime(s.NextExecutionAt),
		s.UpdatedAt.Format(time.RFC3339),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Delete removes a schedule by ID. Execution history goes with it via
// the foreign key cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// UpdateRunState persists fire bookkeeping without touching the
// schedule's definition.
func (r *SQLiteRepository) UpdateRunState(ctx context.Context, id string, next *time.Time, last *time.Time, executionCount int, enabled bool) error {
	query := `
		UPDATE schedules SET
			next_execution_at = ?, last_executed_at = ?, execution_count = ?,
			enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableTime(next),
		nullableTime(last),
		executionCount,
		boolToInt(enabled),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating run state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	query := `
		INSERT INTO schedule_executions (
			id, schedule_id, triggered_at, started_at, completed_at,
			trigger_type, trigger_source, status,
			steps_total, steps_completed, steps_failed, failures, notes, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.ScheduleID,
		exec.TriggeredAt.Format(time.RFC3339),
		nullableTime(exec.StartedAt),
		nullableTime(exec.CompletedAt),
		exec.TriggerType,
		nullableStringPtr(exec.TriggerSource),
		string(exec.Status),
		exec.StepsTotal,
		exec.StepsCompleted,
		exec.StepsFailed,
		failuresJSON,
		nullableStringPtr(exec.Notes),
		nullableIntPtr(exec.DurationMS),
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
		UPDATE schedule_executions SET
			started_at = ?, completed_at = ?, status = ?,
			steps_total = ?, steps_completed = ?, steps_failed = ?,
			failures = ?, notes = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableTime(exec.StartedAt),
		nullableTime(exec.CompletedAt),
		string(exec.Status),
		exec.StepsTotal,
		exec.StepsCompleted,
		exec.StepsFailed,
		failuresJSON,
		nullableStringPtr(exec.Notes),
		nullableIntPtr(exec.DurationMS),
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
	query := `SELECT ` + executionColumns + ` FROM schedule_executions WHERE id = ?`

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

// ListExecutions retrieves recent executions for a schedule.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, scheduleID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + `
		FROM schedule_executions
		WHERE schedule_id = ?
		ORDER BY triggered_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, scheduleID, limit)
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

// querySchedules executes a query and returns a slice of schedules.
func (r *SQLiteRepository) querySchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		s, scanErr := scanScheduleRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning schedule: %w", scanErr)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return schedules, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduleRow(scanner rowScanner) (*Schedule, error) {
	var s Schedule
	var description, runDate, nextAt, lastAt sql.NullString
	var enabled, autoFind int
	var recurrence, order, daysJSON, pinnedJSON, actionsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&s.Slug,
		&description,
		&enabled,
		&recurrence,
		&s.TimeOfDay,
		&daysJSON,
		&runDate,
		&order,
		&autoFind,
		&s.DelayBetweenCommandsMS,
		&pinnedJSON,
		&actionsJSON,
		&nextAt,
		&lastAt,
		&s.ExecutionCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Enabled = enabled != 0
	s.AutoFindGames = autoFind != 0
	s.Recurrence = Recurrence(recurrence)
	s.ExecutionOrder = ExecutionOrder(order)

	if description.Valid {
		s.Description = &description.String
	}
	if runDate.Valid {
		s.RunDate = &runDate.String
	}
	if t, ok := parseNullableTime(nextAt); ok {
		s.NextExecutionAt = t
	}
	if t, ok := parseNullableTime(lastAt); ok {
		s.LastExecutedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		s.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		s.UpdatedAt = t
	}

	if err := json.Unmarshal([]byte(daysJSON), &s.DaysOfWeek); err != nil {
		return nil, fmt.Errorf("unmarshalling days_of_week: %w", err)
	}
	if err := json.Unmarshal([]byte(pinnedJSON), &s.PinnedOutputs); err != nil {
		return nil, fmt.Errorf("unmarshalling pinned_outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &s.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}

	return &s, nil
}

func scanExecutionRow(scanner rowScanner) (*Execution, error) {
	var e Execution
	var triggeredAt string
	var startedAt, completedAt, triggerSource, failuresJSON, notes sql.NullString
	var durationMS sql.NullInt64
	var status string

	err := scanner.Scan(
		&e.ID,
		&e.ScheduleID,
		&triggeredAt,
		&startedAt,
		&completedAt,
		&e.TriggerType,
		&triggerSource,
		&status,
		&e.StepsTotal,
		&e.StepsCompleted,
		&e.StepsFailed,
		&failuresJSON,
		&notes,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	e.Status = ExecutionStatus(status)
	if t, parseErr := time.Parse(time.RFC3339, triggeredAt); parseErr == nil {
		e.TriggeredAt = t
	}
	if t, ok := parseNullableTime(startedAt); ok {
		e.StartedAt = t
	}
	if t, ok := parseNullableTime(completedAt); ok {
		e.CompletedAt = t
	}
	if triggerSource.Valid {
		e.TriggerSource = &triggerSource.String
	}
	if notes.Valid {
		e.Notes = &notes.String
	}
	if durationMS.Valid {
		d := int(durationMS.Int64)
		e.DurationMS = &d
	}

	if failuresJSON.Valid && failuresJSON.String != "" && failuresJSON.String != "null" {
		if jsonErr := json.Unmarshal([]byte(failuresJSON.String), &e.Failures); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", jsonErr)
		}
	}

	return &e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

// marshalScheduleJSON renders the schedule's JSON columns. Empty
// slices serialise as "[]" so the STRICT defaults stay meaningful.
func marshalScheduleJSON(s *Schedule) (days, actions, pinned string, err error) {
	daysVal := s.DaysOfWeek
	if daysVal == nil {
		daysVal = []time.Weekday{}
	}
	daysBytes, err := json.Marshal(daysVal)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling days_of_week: %w", err)
	}

	actionsBytes, err := json.Marshal(s.Actions)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling actions: %w", err)
	}

	pinnedVal := s.PinnedOutputs
	if pinnedVal == nil {
		pinnedVal = []int{}
	}
	pinnedBytes, err := json.Marshal(pinnedVal)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling pinned_outputs: %w", err)
	}

	return string(daysBytes), string(actionsBytes), string(pinnedBytes), nil
}

func marshalFailures(failures []StepFailure) (sql.NullString, error) {
	if len(failures) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func parseNullableTime(ns sql.NullString) (*time.Time, bool) {
	if !ns.Valid {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func nullableStringPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullableIntPtr(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
