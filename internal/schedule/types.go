package schedule

import "time"

// Recurrence says how often a schedule fires.
type Recurrence string

// Recurrence values.
const (
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
	RecurrenceOnce   Recurrence = "once"
)

// AllRecurrences returns the valid recurrence values.
func AllRecurrences() []Recurrence {
	return []Recurrence{RecurrenceDaily, RecurrenceWeekly, RecurrenceOnce}
}

// ExecutionOrder controls how plan steps are arranged.
//
// outputs_first powers and routes every output before any tuning;
// interleaved works one output at a time (power, route, tune) before
// moving to the next.
type ExecutionOrder string

// Execution order values. Anything that is not outputs_first is
// treated as interleaved.
const (
	OrderOutputsFirst ExecutionOrder = "outputs_first"
	OrderInterleaved  ExecutionOrder = "interleaved"
)

// DefaultChannel is one output's static fallback: route it to an input
// and optionally tune that input to a channel. Outputs without a tune
// just get routed.
type DefaultChannel struct {
	Input   int    `json:"input"`
	Channel string `json:"channel,omitempty"`
}

// ScheduleActions holds what a schedule actually does to the estate.
// Stored as a single JSON document alongside the schedule row.
//
// DefaultChannels is keyed by output number rendered as a string
// (JSON object keys).
type ScheduleActions struct {
	// Outputs this schedule drives, in the order they are worked.
	Outputs []int `json:"outputs"`

	// PowerOnOutputs emits a power-on step per output before routing.
	PowerOnOutputs bool `json:"power_on_outputs"`

	// PowerOffOutputs makes this a shutdown schedule: every output is
	// powered off and nothing is routed or tuned.
	PowerOffOutputs bool `json:"power_off_outputs,omitempty"`

	// DefaultChannels maps output number → static routing/tuning,
	// used directly when auto-find is off and as the fallback for
	// outputs no game was assigned to.
	DefaultChannels map[string]DefaultChannel `json:"default_channels,omitempty"`

	// MonitorTeamIDs narrows game discovery to these teams; empty
	// means any game within the window.
	MonitorTeamIDs []string `json:"monitor_team_ids,omitempty"`
}

// Schedule is one recurring (or one-shot) orchestration of the AV
// estate: open the bar at 09:00, flip everything to the early games on
// Sunday, shut the lot down at close.
type Schedule struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	Description *string `json:"description,omitempty"`

	Enabled bool `json:"enabled"`

	// Fire-time definition. TimeOfDay is venue-local "HH:MM".
	Recurrence Recurrence     `json:"recurrence"`
	TimeOfDay  string         `json:"time_of_day"`
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"` // weekly only
	RunDate    *string        `json:"run_date,omitempty"`     // once only, "YYYY-MM-DD"

	// Plan construction
	ExecutionOrder         ExecutionOrder `json:"execution_order"`
	AutoFindGames          bool           `json:"auto_find_games"`
	DelayBetweenCommandsMS int            `json:"delay_between_commands_ms"`

	// PinnedOutputs keep their static mapping even when auto-find is
	// on; game allocation never touches them.
	PinnedOutputs []int `json:"pinned_outputs,omitempty"`

	Actions ScheduleActions `json:"actions"`

	// Run state
	NextExecutionAt *time.Time `json:"next_execution_at,omitempty"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`
	ExecutionCount  int        `json:"execution_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Interleaved reports whether plan steps should be grouped per output.
func (s *Schedule) Interleaved() bool {
	return s.ExecutionOrder != OrderOutputsFirst
}

// ExecutionStatus tracks an execution's lifecycle.
type ExecutionStatus string

// Execution statuses.
const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusPartial   ExecutionStatus = "partial"
	StatusFailed    ExecutionStatus = "failed"
)

// Trigger types for executions.
const (
	TriggerTick   = "tick"
	TriggerManual = "manual"
)

// StepFailure records one failed step within an execution.
type StepFailure struct {
	Action string `json:"action"`
	Target string `json:"target"`
	Detail string `json:"detail"`
}

// Execution is the persisted record of one schedule run.
type Execution struct {
	ID          string     `json:"id"`
	ScheduleID  string     `json:"schedule_id"`
	TriggeredAt time.Time  `json:"triggered_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TriggerType   string  `json:"trigger_type"`             // tick, manual
	TriggerSource *string `json:"trigger_source,omitempty"` // api, etc.

	Status ExecutionStatus `json:"status"`

	StepsTotal     int `json:"steps_total"`
	StepsCompleted int `json:"steps_completed"`
	StepsFailed    int `json:"steps_failed"`

	Failures []StepFailure `json:"failures,omitempty"`

	// Notes records degraded modes, e.g. discovery falling back to
	// static channels.
	Notes *string `json:"notes,omitempty"`

	DurationMS *int `json:"duration_ms,omitempty"`
}

// DeepCopy returns a full copy of the schedule for safe mutation.
func (s *Schedule) DeepCopy() *Schedule {
	if s == nil {
		return nil
	}

	out := *s
	out.Description = cloneStringPtr(s.Description)
	out.RunDate = cloneStringPtr(s.RunDate)
	out.NextExecutionAt = cloneTimePtr(s.NextExecutionAt)
	out.LastExecutedAt = cloneTimePtr(s.LastExecutedAt)

	out.DaysOfWeek = append([]time.Weekday(nil), s.DaysOfWeek...)
	out.PinnedOutputs = append([]int(nil), s.PinnedOutputs...)
	out.Actions.Outputs = append([]int(nil), s.Actions.Outputs...)
	out.Actions.MonitorTeamIDs = append([]string(nil), s.Actions.MonitorTeamIDs...)

	if s.Actions.DefaultChannels != nil {
		out.Actions.DefaultChannels = make(map[string]DefaultChannel, len(s.Actions.DefaultChannels))
		for k, v := range s.Actions.DefaultChannels {
			out.Actions.DefaultChannels[k] = v
		}
	}

	return &out
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
