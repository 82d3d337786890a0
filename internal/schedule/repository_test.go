package schedule

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the schedule schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)

	// Matches migration
	schema := `
		CREATE TABLE schedules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			description TEXT,
			enabled INTEGER NOT NULL DEFAULT 1,
			recurrence TEXT NOT NULL DEFAULT 'daily',
			time_of_day TEXT NOT NULL,
			days_of_week TEXT NOT NULL DEFAULT '[]',
			run_date TEXT,
			execution_order TEXT NOT NULL DEFAULT 'outputs_first',
			auto_find_games INTEGER NOT NULL DEFAULT 0,
			delay_between_commands_ms INTEGER NOT NULL DEFAULT 250,
			pinned_outputs TEXT NOT NULL DEFAULT '[]',
			actions TEXT NOT NULL DEFAULT '{}',
			next_execution_at TEXT,
			last_executed_at TEXT,
			execution_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE schedule_executions (
			id TEXT PRIMARY KEY,
			schedule_id TEXT NOT NULL,
			triggered_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			started_at TEXT,
			completed_at TEXT,
			trigger_type TEXT NOT NULL DEFAULT 'manual',
			trigger_source TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			steps_total INTEGER NOT NULL DEFAULT 0,
			steps_completed INTEGER NOT NULL DEFAULT 0,
			steps_failed INTEGER NOT NULL DEFAULT 0,
			failures TEXT,
			notes TEXT,
			duration_ms INTEGER,
			FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE
		) STRICT;

		PRAGMA foreign_keys = ON;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testSchedule creates a schedule with the given ID and name.
func testSchedule(id, name string) *Schedule {
	next := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	return &Schedule{
		ID:                     id,
		Name:                   name,
		Slug:                   GenerateSlug(name),
		Enabled:                true,
		Recurrence:             RecurrenceWeekly,
		TimeOfDay:              "09:00",
		DaysOfWeek:             []time.Weekday{time.Sunday, time.Saturday},
		ExecutionOrder:         OrderOutputsFirst,
		AutoFindGames:          true,
		DelayBetweenCommandsMS: 250,
		PinnedOutputs:          []int{2},
		Actions: ScheduleActions{
			Outputs:        []int{1, 2},
			PowerOnOutputs: true,
			DefaultChannels: map[string]DefaultChannel{
				"2": {Input: 4, Channel: "34"},
			},
			MonitorTeamIDs: []string{"bulls"},
		},
		NextExecutionAt: &next,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s := testSchedule("s1", "Sunday Games")
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}

	if got.Name != "Sunday Games" || got.Recurrence != RecurrenceWeekly {
		t.Errorf("GetByID() = %+v, want the stored schedule", got)
	}
	if len(got.DaysOfWeek) != 2 || got.DaysOfWeek[0] != time.Sunday {
		t.Errorf("DaysOfWeek = %v, want [Sunday Saturday]", got.DaysOfWeek)
	}
	if len(got.PinnedOutputs) != 1 || got.PinnedOutputs[0] != 2 {
		t.Errorf("PinnedOutputs = %v, want [2]", got.PinnedOutputs)
	}
	if dc := got.Actions.DefaultChannels["2"]; dc.Input != 4 || dc.Channel != "34" {
		t.Errorf("DefaultChannels = %+v, want output 2 → input 4 channel 34", got.Actions.DefaultChannels)
	}
	if got.NextExecutionAt == nil || !got.NextExecutionAt.Equal(*s.NextExecutionAt) {
		t.Errorf("NextExecutionAt = %v, want %v", got.NextExecutionAt, s.NextExecutionAt)
	}

	bySlug, err := repo.GetBySlug(ctx, "sunday-games")
	if err != nil {
		t.Fatalf("GetBySlug() error: %v", err)
	}
	if bySlug.ID != "s1" {
		t.Errorf("GetBySlug() = %q, want s1", bySlug.ID)
	}
}

func TestRepository_CreateDuplicateSlug(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSchedule("s1", "Sunday Games")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := repo.Create(ctx, testSchedule("s2", "Sunday Games")); !errors.Is(err, ErrScheduleExists) {
		t.Errorf("Create(duplicate slug) error = %v, want ErrScheduleExists", err)
	}
}

func TestRepository_ListEnabled(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	on := testSchedule("on", "Enabled One")
	off := testSchedule("off", "Disabled One")
	off.Enabled = false

	for _, s := range []*Schedule{on, off} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create(%s) error: %v", s.ID, err)
		}
	}

	got, err := repo.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "on" {
		t.Errorf("ListEnabled() = %+v, want just the enabled schedule", got)
	}
}

func TestRepository_UpdateRunState(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s := testSchedule("s1", "Sunday Games")
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	last := time.Date(2026, 3, 15, 9, 0, 12, 0, time.UTC)
	next := time.Date(2026, 3, 21, 9, 0, 0, 0, time.UTC)
	if err := repo.UpdateRunState(ctx, "s1", &next, &last, 7, true); err != nil {
		t.Fatalf("UpdateRunState() error: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.ExecutionCount != 7 {
		t.Errorf("ExecutionCount = %d, want 7", got.ExecutionCount)
	}
	if got.LastExecutedAt == nil || !got.LastExecutedAt.Equal(last) {
		t.Errorf("LastExecutedAt = %v, want %v", got.LastExecutedAt, last)
	}
	if got.NextExecutionAt == nil || !got.NextExecutionAt.Equal(next) {
		t.Errorf("NextExecutionAt = %v, want %v", got.NextExecutionAt, next)
	}

	// Once schedules disable themselves with a nil next fire.
	if err := repo.UpdateRunState(ctx, "s1", nil, &last, 8, false); err != nil {
		t.Fatalf("UpdateRunState() error: %v", err)
	}
	got, _ = repo.GetByID(ctx, "s1")
	if got.Enabled || got.NextExecutionAt != nil {
		t.Errorf("enabled=%v next=%v after disable, want false/nil", got.Enabled, got.NextExecutionAt)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSchedule("s1", "Sunday Games")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := repo.GetByID(ctx, "s1"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrScheduleNotFound", err)
	}
}

func TestRepository_ExecutionLifecycle(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSchedule("s1", "Sunday Games")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	exec := &Execution{
		ID:          "e1",
		ScheduleID:  "s1",
		TriggeredAt: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
		TriggerType: TriggerTick,
		Status:      StatusPending,
	}
	if err := repo.CreateExecution(ctx, exec); err != nil {
		t.Fatalf("CreateExecution() error: %v", err)
	}

	started := exec.TriggeredAt.Add(time.Second)
	completed := started.Add(30 * time.Second)
	duration := 30000
	notes := "game discovery unavailable; static channels used"
	exec.StartedAt = &started
	exec.CompletedAt = &completed
	exec.Status = StatusPartial
	exec.StepsTotal = 5
	exec.StepsCompleted = 4
	exec.StepsFailed = 1
	exec.Failures = []StepFailure{{Action: "tune", Target: "input:3", Detail: "tune: timeout"}}
	exec.Notes = &notes
	exec.DurationMS = &duration

	if err := repo.UpdateExecution(ctx, exec); err != nil {
		t.Fatalf("UpdateExecution() error: %v", err)
	}

	got, err := repo.GetExecution(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExecution() error: %v", err)
	}
	if got.Status != StatusPartial || got.StepsFailed != 1 {
		t.Errorf("execution = %+v, want partial with one failure", got)
	}
	if len(got.Failures) != 1 || got.Failures[0].Detail != "tune: timeout" {
		t.Errorf("Failures = %+v, want the recorded failure", got.Failures)
	}
	if got.Notes == nil || *got.Notes != notes {
		t.Errorf("Notes = %v, want degradation note kept", got.Notes)
	}
}

func TestRepository_ListExecutionsNewestFirst(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSchedule("s1", "Sunday Games")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	base := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		exec := &Execution{
			ID:          id,
			ScheduleID:  "s1",
			TriggeredAt: base.Add(time.Duration(i) * time.Hour),
			TriggerType: TriggerTick,
			Status:      StatusCompleted,
		}
		if err := repo.CreateExecution(ctx, exec); err != nil {
			t.Fatalf("CreateExecution(%s) error: %v", id, err)
		}
	}

	got, err := repo.ListExecutions(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("ListExecutions() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("ListExecutions() = %+v, want newest two first", got)
	}
}

func TestRepository_ExecutionNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if _, err := repo.GetExecution(context.Background(), "ghost"); !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("GetExecution() error = %v, want ErrExecutionNotFound", err)
	}
	if err := repo.UpdateExecution(context.Background(), &Execution{ID: "ghost"}); !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("UpdateExecution() error = %v, want ErrExecutionNotFound", err)
	}
}
