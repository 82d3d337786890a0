package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/barvision/barvision-core/internal/infrastructure/mqtt"
	"github.com/barvision/barvision-core/internal/preset"
	"github.com/barvision/barvision-core/internal/sequencer"
	"github.com/barvision/barvision-core/internal/sports"
)

// maxExecutionTime is the hard limit for a single schedule execution.
// A big estate with generous settle delays still finishes well inside
// this; anything longer means a wedged device session.
const maxExecutionTime = 10 * time.Minute

// Sequencer runs a plan against the device estate.
// Implemented by sequencer.Sequencer.
type Sequencer interface {
	Run(ctx context.Context, plan sequencer.Plan) sequencer.Result
}

// GameAllocator assigns live games to outputs.
// Implemented by sports.Allocator; nil when discovery is disabled.
type GameAllocator interface {
	Allocate(ctx context.Context, outputs []int, teamIDs []string, window time.Duration) ([]sports.Assignment, error)
}

// TunerResolver exposes which inputs carry tuners of each family.
// Implemented by adapter.Registry.
type TunerResolver interface {
	TunerInputs() map[string][]int
}

// UsageRecorder feeds successful tunes into the preset ranking.
// Implemented by preset.Ranker.
type UsageRecorder interface {
	RecordUse(ctx context.Context, presetID string)
}

// PresetLookup resolves static channels to vetted presets.
// Implemented by preset.SQLiteRepository.
type PresetLookup interface {
	GetByChannel(ctx context.Context, deviceType preset.DeviceType, channel string) (*preset.ChannelPreset, error)
}

// Publisher is the interface for publishing execution events.
// Implemented by mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Telemetry receives execution summaries. Implemented by the influxdb
// client; may be nil.
type Telemetry interface {
	WriteExecutionSummary(scheduleID, trigger, status string, stepsTotal, stepsFailed int, durationMS int64)
}

// Deps carries the engine's collaborators. Registry, Repo and
// Sequencer are required; everything else may be nil and the matching
// feature degrades quietly.
type Deps struct {
	Registry  *Registry
	Repo      Repository
	Sequencer Sequencer
	Allocator GameAllocator
	Tuners    TunerResolver
	Presets   PresetLookup
	Ranker    UsageRecorder
	Events    Publisher
	Hub       WSHub
	Telemetry Telemetry
	Logger    Logger
}

// Engine owns the schedules and drives their execution.
//
// Scheduling is time-driven: a periodic tick scans for matured
// schedules and runs each one as its own goroutine. Within a schedule,
// steps run strictly in order; across schedules, executions are
// concurrent. A per-schedule lock guarantees a schedule never has two
// executions in flight — an overrunning execution makes the next fire
// drop, not queue.
type Engine struct {
	registry  *Registry
	repo      Repository
	seq       Sequencer
	allocator GameAllocator
	tuners    TunerResolver
	presets   PresetLookup
	ranker    UsageRecorder
	events    Publisher
	hub       WSHub
	telemetry Telemetry
	logger    Logger

	loc       *time.Location
	tick      time.Duration
	lookahead time.Duration

	locks sync.Map // schedule ID → *sync.Mutex
}

// NewEngine creates the trigger engine.
//
// Parameters:
//   - deps: collaborators (see Deps for which may be nil)
//   - loc: venue timezone for fire-time computation
//   - tick: scan interval for the trigger loop
//   - lookahead: game discovery window
func NewEngine(deps Deps, loc *time.Location, tick, lookahead time.Duration) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry:  deps.Registry,
		repo:      deps.Repo,
		seq:       deps.Sequencer,
		allocator: deps.Allocator,
		tuners:    deps.Tuners,
		presets:   deps.Presets,
		ranker:    deps.Ranker,
		events:    deps.Events,
		hub:       deps.Hub,
		telemetry: deps.Telemetry,
		logger:    logger,
		loc:       loc,
		tick:      tick,
		lookahead: lookahead,
	}
}

// Run drives the tick loop until the context is cancelled. In-flight
// executions are not aborted on shutdown; they run to completion on
// their own goroutines.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.logger.Info("trigger engine started",
		"tick", e.tick.String(),
		"schedules", e.registry.Count(),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("trigger engine stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick scans for matured schedules and launches their executions.
//
// Each due schedule is claimed first: its next fire time is advanced
// (or the schedule disabled, for once) and persisted before the
// execution goroutine starts. Claiming makes Tick idempotent — calling
// it again within the same second finds nothing due — and an execution
// still running from the previous fire makes the new fire drop via the
// per-schedule lock, never queue.
func (e *Engine) Tick(ctx context.Context) {
	now := time.Now()

	for _, due := range e.registry.ListDue(ctx, now) {
		s := due

		if err := e.claimFire(ctx, &s, now); err != nil {
			e.logger.Error("claiming schedule fire failed", "schedule_id", s.ID, "error", err)
			continue
		}

		go func() {
			execCtx, cancel := context.WithTimeout(context.Background(), maxExecutionTime)
			defer cancel()

			if _, err := e.execute(execCtx, &s, TriggerTick, ""); err != nil {
				if errors.Is(err, ErrBusy) {
					e.logger.Warn("fire dropped, previous execution still running", "schedule_id", s.ID)
					return
				}
				e.logger.Error("scheduled execution failed", "schedule_id", s.ID, "error", err)
			}
		}()
	}
}

// claimFire advances the schedule's fire bookkeeping before execution.
// Once schedules disable themselves after their single automatic fire.
func (e *Engine) claimFire(ctx context.Context, s *Schedule, now time.Time) error {
	if s.Recurrence == RecurrenceOnce {
		s.Enabled = false
		s.NextExecutionAt = nil
		return e.registry.CommitRunState(ctx, s)
	}

	next, err := NextFire(s, now, e.loc)
	if err != nil {
		return err
	}
	s.NextExecutionAt = &next
	return e.registry.CommitRunState(ctx, s)
}

// Execute runs a schedule immediately ("Run Now"), regardless of its
// fire time. Returns ErrBusy if an execution is already in flight and
// ErrScheduleDisabled for disabled schedules.
func (e *Engine) Execute(ctx context.Context, scheduleID, triggerSource string) (*Execution, error) {
	s, err := e.registry.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !s.Enabled {
		return nil, ErrScheduleDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, maxExecutionTime)
	defer cancel()

	return e.execute(ctx, s, TriggerManual, triggerSource)
}

// execute builds and runs the schedule's plan under its exclusion
// lock, records the execution, and emits events. It always completes
// with a status; step failures never surface as errors.
func (e *Engine) execute(ctx context.Context, s *Schedule, triggerType, triggerSource string) (*Execution, error) {
	lock := e.lockFor(s.ID)
	if !lock.TryLock() {
		return nil, ErrBusy
	}
	defer lock.Unlock()

	now := time.Now().UTC()
	exec := &Execution{
		ID:          GenerateID(),
		ScheduleID:  s.ID,
		TriggeredAt: now,
		TriggerType: triggerType,
		Status:      StatusPending,
	}
	if triggerSource != "" {
		exec.TriggerSource = &triggerSource
	}

	// Execution runs even if the record can't be written; the estate
	// matters more than the log.
	if createErr := e.repo.CreateExecution(ctx, exec); createErr != nil {
		e.logger.Error("failed to create execution record", "error", createErr)
	}

	e.publishFired(s, exec)

	started := time.Now().UTC()
	exec.StartedAt = &started
	exec.Status = StatusRunning

	e.logger.Info("schedule execution started",
		"schedule_id", s.ID,
		"schedule_name", s.Name,
		"execution_id", exec.ID,
		"trigger", triggerType,
	)

	plan, notes := e.buildPlan(ctx, s)
	exec.StepsTotal = len(plan.Steps)

	result := e.seq.Run(ctx, plan)

	e.recordPresetUsage(ctx, result)

	completedAt := time.Now().UTC()
	exec.CompletedAt = &completedAt
	exec.StepsCompleted = result.StepsOK
	exec.StepsFailed = result.StepsFail
	exec.Status = executionStatus(result.Status)
	for _, outcome := range result.Outcomes {
		// Unsupported verbs are skips, not failures.
		if !outcome.OK && !outcome.Skipped {
			exec.Failures = append(exec.Failures, StepFailure{
				Action: string(outcome.Action),
				Target: outcome.Target,
				Detail: outcome.Detail,
			})
		}
	}
	if len(notes) > 0 {
		joined := strings.Join(notes, "; ")
		exec.Notes = &joined
	}
	duration := int(completedAt.Sub(started).Milliseconds())
	exec.DurationMS = &duration

	if updateErr := e.repo.UpdateExecution(ctx, exec); updateErr != nil {
		e.logger.Error("failed to update execution record", "error", updateErr)
	}

	// Run-state bookkeeping. Manual runs never move the fire time.
	s.LastExecutedAt = &completedAt
	s.ExecutionCount++
	if commitErr := e.registry.CommitRunState(ctx, s); commitErr != nil {
		e.logger.Error("failed to commit run state", "schedule_id", s.ID, "error", commitErr)
	}

	if e.telemetry != nil {
		e.telemetry.WriteExecutionSummary(s.ID, triggerType, string(exec.Status),
			exec.StepsTotal, exec.StepsFailed, int64(duration))
	}

	e.logger.Info("schedule execution complete",
		"schedule_id", s.ID,
		"execution_id", exec.ID,
		"status", exec.Status,
		"completed", exec.StepsCompleted,
		"failed", exec.StepsFailed,
		"duration_ms", duration,
	)

	e.publishCompleted(s, exec)

	if e.hub != nil {
		e.hub.Broadcast("schedule.executed", map[string]any{
			"schedule_id":   s.ID,
			"schedule_name": s.Name,
			"execution_id":  exec.ID,
			"status":        string(exec.Status),
			"steps_total":   exec.StepsTotal,
			"steps_failed":  exec.StepsFailed,
			"duration_ms":   duration,
		})
	}

	return exec, nil
}

// recordPresetUsage bumps the ranking for every successful tune that
// went through a vetted preset. Fire-and-forget: the tune already
// happened.
func (e *Engine) recordPresetUsage(ctx context.Context, result sequencer.Result) {
	if e.ranker == nil {
		return
	}
	for _, outcome := range result.Outcomes {
		if outcome.OK && outcome.Action == sequencer.ActionTune && outcome.PresetID != "" {
			e.ranker.RecordUse(ctx, outcome.PresetID)
			e.publishPresetUsed(outcome.PresetID)
		}
	}
}

// lockFor returns the schedule's exclusion lock, creating it on first use.
func (e *Engine) lockFor(scheduleID string) *sync.Mutex {
	actual, _ := e.locks.LoadOrStore(scheduleID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// executionStatus maps a sequencer result status onto the execution record.
func executionStatus(s sequencer.Status) ExecutionStatus {
	switch s {
	case sequencer.StatusPartial:
		return StatusPartial
	case sequencer.StatusFailed:
		return StatusFailed
	default:
		return StatusCompleted
	}
}

// ─── Event Publishing ───────────────────────────────────────────────────────

var topics mqtt.Topics

func (e *Engine) publishFired(s *Schedule, exec *Execution) {
	e.publishJSON(topics.ScheduleFired(s.ID), map[string]any{
		"schedule_id":  s.ID,
		"execution_id": exec.ID,
		"trigger":      exec.TriggerType,
		"triggered_at": exec.TriggeredAt.Format(time.RFC3339),
	})
}

func (e *Engine) publishCompleted(s *Schedule, exec *Execution) {
	e.publishJSON(topics.ScheduleCompleted(s.ID), map[string]any{
		"schedule_id":  s.ID,
		"execution_id": exec.ID,
		"status":       string(exec.Status),
		"steps_total":  exec.StepsTotal,
		"steps_failed": exec.StepsFailed,
	})
}

func (e *Engine) publishPresetUsed(presetID string) {
	e.publishJSON(topics.PresetUsed(presetID), map[string]any{
		"preset_id": presetID,
		"used_at":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (e *Engine) publishGamesDiscovered(scheduleID string, assignments []sports.Assignment) {
	games := make([]map[string]any, 0, len(assignments))
	for _, a := range assignments {
		games = append(games, map[string]any{
			"output":  a.Output,
			"game":    a.Game.Title(),
			"league":  a.Game.League,
			"network": a.Channel.Network,
			"channel": a.Preset.Channel,
		})
	}
	e.publishJSON(topics.GamesDiscovered(), map[string]any{
		"schedule_id": scheduleID,
		"games":       games,
	})
}

// publishJSON sends an event, logging rather than failing on error:
// the event stream is advisory, the devices are not.
func (e *Engine) publishJSON(topic string, payload map[string]any) {
	if e.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("marshalling event payload", "topic", topic, "error", err)
		return
	}
	if err := e.events.Publish(topic, data, 1, false); err != nil {
		e.logger.Warn("publishing event failed", "topic", topic, "error", err)
	}
}

// ─── Schedule CRUD passthrough ──────────────────────────────────────────────

// Create validates and persists a new schedule via the registry.
func (e *Engine) Create(ctx context.Context, s *Schedule) error {
	return e.registry.Create(ctx, s)
}

// Update validates and persists schedule changes via the registry.
func (e *Engine) Update(ctx context.Context, s *Schedule) error {
	return e.registry.Update(ctx, s)
}

// Delete removes a schedule. An in-flight execution finishes; only
// future fires stop.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.registry.Delete(ctx, id)
}

// History returns recent executions for a schedule, newest first.
func (e *Engine) History(ctx context.Context, scheduleID string, limit int) ([]Execution, error) {
	if _, err := e.registry.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	executions, err := e.repo.ListExecutions(ctx, scheduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	return executions, nil
}
