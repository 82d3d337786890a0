// Package sequencer executes device command plans strictly in order.
//
// AV devices misbehave when commands arrive faster than they can act on
// them, so steps run one at a time with a configurable pause between
// them and a longer settle delay after power-on. A failing step is
// recorded and the batch carries on; the venue wants as many screens
// lit as possible, not an all-or-nothing transaction.
package sequencer

import (
	"context"
	"time"

	"github.com/barvision/barvision-core/internal/adapter"
)

// defaultSettle is the power-on settle delay when none is configured.
const defaultSettle = 4 * time.Second

// Resolver maps matrix slot numbers to device capabilities.
// Implemented by adapter.Registry.
type Resolver interface {
	ResolveInput(input int) (adapter.Capability, bool)
	ResolveOutput(output int) (adapter.Capability, bool)
}

// Telemetry receives per-step command metrics. Implemented by the
// influxdb client; may be nil.
type Telemetry interface {
	WriteStepMetric(scheduleID, action, target string, success bool, durationMS int64)
}

// Logger is the minimal logging interface this package needs.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sequencer runs plans against the device estate.
//
// Thread Safety:
//   - Run may be called concurrently for different plans; per-device
//     serialisation happens inside the adapters, not here.
type Sequencer struct {
	resolver  Resolver
	settle    time.Duration
	logger    Logger
	telemetry Telemetry
}

// New creates a Sequencer.
//
// Parameters:
//   - resolver: device capability lookup (adapter.Registry)
//   - settle: pause after each successful power_on; 0 uses the default
//   - logger: may be nil
//   - telemetry: may be nil
func New(resolver Resolver, settle time.Duration, logger Logger, telemetry Telemetry) *Sequencer {
	if logger == nil {
		logger = noopLogger{}
	}
	if settle <= 0 {
		settle = defaultSettle
	}
	return &Sequencer{
		resolver:  resolver,
		settle:    settle,
		logger:    logger,
		telemetry: telemetry,
	}
}

// Run executes every step of the plan in order and classifies the result.
//
// Invariants:
//   - Steps run strictly sequentially; the next command is not issued
//     until the previous one returned.
//   - A step failure (unreachable device, rejection, timeout, missing
//     configuration) is captured as an outcome and never aborts the run.
//   - A verb the device cannot perform is recorded as skipped, not
//     failed; skips never degrade the run status.
//   - Context cancellation stops issuing new commands; remaining steps
//     are recorded as failed.
func (s *Sequencer) Run(ctx context.Context, plan Plan) Result {
	start := time.Now()
	result := Result{
		Outcomes:   make([]Outcome, 0, len(plan.Steps)),
		StepsTotal: len(plan.Steps),
	}

	cancelled := false
	for i, step := range plan.Steps {
		if cancelled || ctx.Err() != nil {
			cancelled = true
			result.Outcomes = append(result.Outcomes, Outcome{
				Action:   step.Action,
				Target:   step.Target(),
				OK:       false,
				Detail:   "cancelled",
				PresetID: step.PresetID,
			})
			result.StepsFail++
			continue
		}

		if i > 0 && plan.DelayBetween > 0 {
			if !sleepCtx(ctx, plan.DelayBetween) {
				cancelled = true
			}
		}

		outcome := s.runStep(ctx, step)
		if s.telemetry != nil && !outcome.Skipped {
			s.telemetry.WriteStepMetric(plan.ScheduleID, string(step.Action), outcome.Target, outcome.OK, outcome.DurationMS)
		}

		result.Outcomes = append(result.Outcomes, outcome)
		switch {
		case outcome.OK:
			result.StepsOK++
		case outcome.Skipped:
			result.StepsSkipped++
			s.logger.Debug("step skipped",
				"schedule_id", plan.ScheduleID,
				"action", step.Action,
				"target", outcome.Target,
				"detail", outcome.Detail,
			)
		default:
			result.StepsFail++
			s.logger.Warn("step failed",
				"schedule_id", plan.ScheduleID,
				"action", step.Action,
				"target", outcome.Target,
				"detail", outcome.Detail,
			)
		}

		// Displays and boxes need time to come up before they accept
		// routing or tuning.
		if outcome.OK && step.Action == ActionPowerOn {
			if !sleepCtx(ctx, s.settle) {
				cancelled = true
			}
		}
	}

	// Skipped steps are left out of classification: a run where every
	// attempted command failed is a failed run even if some verbs were
	// skipped along the way.
	result.Status = classify(result.StepsTotal-result.StepsSkipped, result.StepsFail)
	result.DurationMS = time.Since(start).Milliseconds()
	return result
}

// runStep resolves the step's device and issues its command.
func (s *Sequencer) runStep(ctx context.Context, step Step) Outcome {
	outcome := Outcome{
		Action:   step.Action,
		Target:   step.Target(),
		PresetID: step.PresetID,
	}

	capability, ok := s.resolve(step)
	if !ok {
		outcome.Detail = "no device configured"
		return outcome
	}

	start := time.Now()
	res := s.dispatch(ctx, capability, step)
	outcome.DurationMS = time.Since(start).Milliseconds()
	outcome.OK = res.OK
	outcome.Skipped = res.Unsupported
	outcome.Detail = res.Detail
	return outcome
}

// resolve finds the capability the step addresses.
func (s *Sequencer) resolve(step Step) (adapter.Capability, bool) {
	if step.TargetKind == TargetInput {
		return s.resolver.ResolveInput(step.Input)
	}
	return s.resolver.ResolveOutput(step.Output)
}

// dispatch maps the step verb onto the capability.
func (s *Sequencer) dispatch(ctx context.Context, capability adapter.Capability, step Step) adapter.Result {
	switch step.Action {
	case ActionPowerOn:
		return capability.PowerOn(ctx)
	case ActionPowerOff:
		return capability.PowerOff(ctx)
	case ActionRoute:
		return capability.Route(ctx, step.Input)
	case ActionTune:
		return capability.SendDigits(ctx, step.Channel)
	case ActionLaunchApp:
		return capability.LaunchApp(ctx, step.AppID)
	default:
		return adapter.Failed("unknown action: " + string(step.Action))
	}
}

// sleepCtx pauses for d or until the context is cancelled.
// Returns false if the context won.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
