package sequencer

import (
	"fmt"
	"time"
)

// Action is the verb a step performs against a device.
type Action string

// Step verbs.
const (
	ActionPowerOn   Action = "power_on"
	ActionPowerOff  Action = "power_off"
	ActionRoute     Action = "route"
	ActionTune      Action = "tune"
	ActionLaunchApp Action = "launch_app"
)

// TargetKind says which side of the matrix a step addresses.
type TargetKind string

// Target kinds.
const (
	TargetOutput TargetKind = "output"
	TargetInput  TargetKind = "input"
)

// Step is one device command within a plan.
//
// Output/Input/Channel/AppID are interpreted per action:
//   - power_on/power_off: TargetKind + the matching number
//   - route: Output switched to Input
//   - tune: Input tuned to Channel (PresetID records the vetted source)
//   - launch_app: Input launches AppID
type Step struct {
	Action     Action     `json:"action"`
	TargetKind TargetKind `json:"target_kind"`
	Output     int        `json:"output,omitempty"`
	Input      int        `json:"input,omitempty"`
	Channel    string     `json:"channel,omitempty"`
	AppID      string     `json:"app_id,omitempty"`

	// PresetID is set on tune steps resolved through a channel preset.
	// The engine records preset usage for successful tunes.
	PresetID string `json:"preset_id,omitempty"`
}

// Target renders the step's device slot for outcomes and telemetry,
// e.g. "output:7" or "input:3".
func (s Step) Target() string {
	if s.TargetKind == TargetInput {
		return fmt.Sprintf("input:%d", s.Input)
	}
	return fmt.Sprintf("output:%d", s.Output)
}

// Plan is an ordered batch of steps for one schedule execution.
type Plan struct {
	ScheduleID string `json:"schedule_id"`

	// DelayBetween is the pause inserted between consecutive steps.
	DelayBetween time.Duration `json:"-"`

	Steps []Step `json:"steps"`
}

// Outcome is the recorded result of one step.
//
// Skipped marks a verb the device cannot perform (a mains-powered
// display offered power_on, a display offered tune). Skips are neither
// successes nor failures and never degrade the run status.
type Outcome struct {
	Action     Action `json:"action"`
	Target     string `json:"target"`
	OK         bool   `json:"ok"`
	Skipped    bool   `json:"skipped,omitempty"`
	Detail     string `json:"detail,omitempty"`
	PresetID   string `json:"preset_id,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Status classifies a finished plan run.
type Status string

// Run statuses.
const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Result is the outcome of a whole plan run.
//
// A run always completes with a status; individual step failures are
// recorded in Outcomes and never abort the batch.
type Result struct {
	Status       Status    `json:"status"`
	Outcomes     []Outcome `json:"outcomes"`
	StepsTotal   int       `json:"steps_total"`
	StepsOK      int       `json:"steps_ok"`
	StepsSkipped int       `json:"steps_skipped,omitempty"`
	StepsFail    int       `json:"steps_failed"`
	DurationMS   int64     `json:"duration_ms"`
}

// classify maps step counts to a run status. An empty plan is a
// successful run that did nothing.
func classify(total, failed int) Status {
	switch {
	case failed == 0:
		return StatusCompleted
	case failed == total:
		return StatusFailed
	default:
		return StatusPartial
	}
}
