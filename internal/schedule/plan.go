package schedule

import (
	"context"
	"strconv"
	"time"

	"github.com/barvision/barvision-core/internal/preset"
	"github.com/barvision/barvision-core/internal/sequencer"
)

// tuneTarget is one output's resolved routing and tuning.
type tuneTarget struct {
	input    int
	channel  string
	presetID string
}

// buildPlan turns a schedule into a concrete step sequence. Notes
// record degraded modes (discovery down, no free tuner) for the
// execution record.
func (e *Engine) buildPlan(ctx context.Context, s *Schedule) (sequencer.Plan, []string) {
	plan := sequencer.Plan{
		ScheduleID:   s.ID,
		DelayBetween: time.Duration(s.DelayBetweenCommandsMS) * time.Millisecond,
	}

	outputs := s.Actions.Outputs

	// Shutdown schedules power everything off and do nothing else.
	if s.Actions.PowerOffOutputs {
		for _, output := range outputs {
			plan.Steps = append(plan.Steps, sequencer.Step{
				Action:     sequencer.ActionPowerOff,
				TargetKind: sequencer.TargetOutput,
				Output:     output,
			})
		}
		return plan, nil
	}

	targets, notes := e.resolveTargets(ctx, s)

	if s.Interleaved() {
		// One output at a time: power, route, tune, next output.
		tuned := make(map[int]bool)
		for _, output := range outputs {
			e.appendOutputSteps(&plan, s, output, targets, tuned)
		}
		return plan, notes
	}

	// outputs_first: light every screen before any tuning, so the
	// room comes up together even if a tuner is slow.
	if s.Actions.PowerOnOutputs {
		for _, output := range outputs {
			plan.Steps = append(plan.Steps, sequencer.Step{
				Action:     sequencer.ActionPowerOn,
				TargetKind: sequencer.TargetOutput,
				Output:     output,
			})
		}
	}
	for _, output := range outputs {
		if target, ok := targets[output]; ok {
			plan.Steps = append(plan.Steps, sequencer.Step{
				Action:     sequencer.ActionRoute,
				TargetKind: sequencer.TargetOutput,
				Output:     output,
				Input:      target.input,
			})
		}
	}
	tuned := make(map[int]bool)
	for _, output := range outputs {
		target, ok := targets[output]
		if !ok || target.channel == "" || tuned[target.input] {
			continue
		}
		tuned[target.input] = true
		plan.Steps = append(plan.Steps, sequencer.Step{
			Action:     sequencer.ActionTune,
			TargetKind: sequencer.TargetInput,
			Input:      target.input,
			Channel:    target.channel,
			PresetID:   target.presetID,
		})
	}

	return plan, notes
}

// appendOutputSteps emits the interleaved power/route/tune group for
// one output. tuned tracks inputs already tuned this plan so two
// outputs sharing a tuner don't punch the channel in twice.
func (e *Engine) appendOutputSteps(plan *sequencer.Plan, s *Schedule, output int, targets map[int]tuneTarget, tuned map[int]bool) {
	if s.Actions.PowerOnOutputs {
		plan.Steps = append(plan.Steps, sequencer.Step{
			Action:     sequencer.ActionPowerOn,
			TargetKind: sequencer.TargetOutput,
			Output:     output,
		})
	}

	target, ok := targets[output]
	if !ok {
		return
	}

	plan.Steps = append(plan.Steps, sequencer.Step{
		Action:     sequencer.ActionRoute,
		TargetKind: sequencer.TargetOutput,
		Output:     output,
		Input:      target.input,
	})

	if target.channel != "" && !tuned[target.input] {
		tuned[target.input] = true
		plan.Steps = append(plan.Steps, sequencer.Step{
			Action:     sequencer.ActionTune,
			TargetKind: sequencer.TargetInput,
			Input:      target.input,
			Channel:    target.channel,
			PresetID:   target.presetID,
		})
	}
}

// resolveTargets maps each output to its routing and tuning, starting
// from the static default channels and overlaying discovered games for
// unpinned outputs when auto-find is on.
func (e *Engine) resolveTargets(ctx context.Context, s *Schedule) (map[int]tuneTarget, []string) {
	var notes []string

	targets := make(map[int]tuneTarget)
	for _, output := range s.Actions.Outputs {
		dc, ok := s.Actions.DefaultChannels[strconv.Itoa(output)]
		if !ok {
			continue
		}
		targets[output] = tuneTarget{
			input:    dc.Input,
			channel:  dc.Channel,
			presetID: e.staticPresetID(ctx, dc.Input, dc.Channel),
		}
	}

	if !s.AutoFindGames || e.allocator == nil {
		return targets, notes
	}

	pinned := make(map[int]bool, len(s.PinnedOutputs))
	for _, p := range s.PinnedOutputs {
		pinned[p] = true
	}
	var autoOutputs []int
	for _, output := range s.Actions.Outputs {
		if !pinned[output] {
			autoOutputs = append(autoOutputs, output)
		}
	}

	assignments, err := e.allocator.Allocate(ctx, autoOutputs, s.Actions.MonitorTeamIDs, e.lookahead)
	if err != nil {
		// Degraded mode: the static mappings above still apply.
		e.logger.Warn("game discovery unavailable, using static channels",
			"schedule_id", s.ID, "error", err)
		notes = append(notes, "game discovery unavailable; static channels used")
		return targets, notes
	}

	e.publishGamesDiscovered(s.ID, assignments)

	// Each assigned game needs its own tuner on the right family.
	usedInputs := make(map[int]bool)
	for _, assignment := range assignments {
		input, ok := e.nextTunerInput(string(assignment.Preset.DeviceType), usedInputs)
		if !ok {
			e.logger.Warn("no free tuner input for discovered game",
				"schedule_id", s.ID,
				"game", assignment.Game.Title(),
				"device_type", assignment.Preset.DeviceType,
			)
			notes = append(notes, "ran out of tuner inputs for discovered games")
			continue
		}
		usedInputs[input] = true
		targets[assignment.Output] = tuneTarget{
			input:    input,
			channel:  assignment.Preset.Channel,
			presetID: assignment.Preset.ID,
		}
	}

	return targets, notes
}

// nextTunerInput picks the first unused tuner input of the family.
func (e *Engine) nextTunerInput(deviceType string, used map[int]bool) (int, bool) {
	if e.tuners == nil {
		return 0, false
	}
	for _, input := range e.tuners.TunerInputs()[deviceType] {
		if !used[input] {
			return input, true
		}
	}
	return 0, false
}

// staticPresetID looks up the vetted preset behind a static channel so
// operator-mapped tunes still feed the usage ranking. Best effort; a
// static channel with no preset simply records nothing.
func (e *Engine) staticPresetID(ctx context.Context, input int, channel string) string {
	if channel == "" || e.presets == nil || e.tuners == nil {
		return ""
	}

	for deviceType, inputs := range e.tuners.TunerInputs() {
		for _, tunerInput := range inputs {
			if tunerInput != input {
				continue
			}
			p, err := e.presets.GetByChannel(ctx, preset.DeviceType(deviceType), channel)
			if err != nil {
				return ""
			}
			return p.ID
		}
	}
	return ""
}
