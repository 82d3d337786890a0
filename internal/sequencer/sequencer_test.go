package sequencer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/barvision/barvision-core/internal/adapter"
)

// recorder collects the commands issued across all mock devices so
// ordering can be asserted globally.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// mockCapability is a scriptable device. Zero value succeeds at everything.
type mockCapability struct {
	name     string
	kind     adapter.Kind
	rec      *recorder
	failWith string // when set, every verb fails with this detail
	noPower  bool   // when set, power verbs report not supported
}

func (m *mockCapability) Name() string       { return m.name }
func (m *mockCapability) Kind() adapter.Kind { return m.kind }

func (m *mockCapability) result(call string) adapter.Result {
	if m.rec != nil {
		m.rec.add(call)
	}
	if m.failWith != "" {
		return adapter.Failed(m.failWith)
	}
	return adapter.Succeeded()
}

func (m *mockCapability) PowerOn(ctx context.Context) adapter.Result {
	if m.noPower {
		return adapter.NotSupported("power on")
	}
	return m.result(m.name + ":power_on")
}

func (m *mockCapability) PowerOff(ctx context.Context) adapter.Result {
	if m.noPower {
		return adapter.NotSupported("power off")
	}
	return m.result(m.name + ":power_off")
}

func (m *mockCapability) Route(ctx context.Context, input int) adapter.Result {
	return m.result(fmt.Sprintf("%s:route:%d", m.name, input))
}

func (m *mockCapability) SendDigits(ctx context.Context, channel string) adapter.Result {
	return m.result(m.name + ":tune:" + channel)
}

func (m *mockCapability) LaunchApp(ctx context.Context, appID string) adapter.Result {
	return m.result(m.name + ":launch:" + appID)
}

// mockResolver maps slot numbers to mock devices.
type mockResolver struct {
	inputs  map[int]adapter.Capability
	outputs map[int]adapter.Capability
}

func (r *mockResolver) ResolveInput(input int) (adapter.Capability, bool) {
	c, ok := r.inputs[input]
	return c, ok
}

func (r *mockResolver) ResolveOutput(output int) (adapter.Capability, bool) {
	c, ok := r.outputs[output]
	return c, ok
}

// setupEstate builds a resolver with two displays and two tuners,
// all recording into the same recorder.
func setupEstate(rec *recorder) *mockResolver {
	return &mockResolver{
		outputs: map[int]adapter.Capability{
			1: &mockCapability{name: "tv1", kind: adapter.KindCEC, rec: rec},
			2: &mockCapability{name: "tv2", kind: adapter.KindCEC, rec: rec},
		},
		inputs: map[int]adapter.Capability{
			3: &mockCapability{name: "dtv", kind: adapter.KindDirecTV, rec: rec},
			4: &mockCapability{name: "cable", kind: adapter.KindIR, rec: rec},
		},
	}
}

func TestRun_StrictOrdering(t *testing.T) {
	rec := &recorder{}
	seq := New(setupEstate(rec), time.Millisecond, nil, nil)

	plan := Plan{
		ScheduleID: "sched-1",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 2},
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 1, Input: 3},
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 2, Input: 4},
			{Action: ActionTune, TargetKind: TargetInput, Input: 3, Channel: "206"},
			{Action: ActionTune, TargetKind: TargetInput, Input: 4, Channel: "34"},
		},
	}

	result := seq.Run(context.Background(), plan)

	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed; outcomes: %+v", result.Status, result.Outcomes)
	}

	want := []string{
		"tv1:power_on",
		"tv2:power_on",
		"tv1:route:3",
		"tv2:route:4",
		"dtv:tune:206",
		"cable:tune:34",
	}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q (steps must run in plan order)", i, got[i], want[i])
		}
	}
}

func TestRun_UnresolvedDeviceContinues(t *testing.T) {
	rec := &recorder{}
	seq := New(setupEstate(rec), time.Millisecond, nil, nil)

	plan := Plan{
		ScheduleID: "sched-2",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 99}, // not configured
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 1, Input: 3},
		},
	}

	result := seq.Run(context.Background(), plan)

	if result.Status != StatusPartial {
		t.Errorf("Status = %q, want partial", result.Status)
	}
	if result.StepsFail != 1 || result.StepsOK != 2 {
		t.Errorf("StepsOK/StepsFail = %d/%d, want 2/1", result.StepsOK, result.StepsFail)
	}

	failed := result.Outcomes[1]
	if failed.OK {
		t.Error("outcome for unconfigured output reported OK")
	}
	if failed.Detail != "no device configured" {
		t.Errorf("Detail = %q, want %q", failed.Detail, "no device configured")
	}

	// The batch continued past the failure.
	got := rec.all()
	if len(got) != 2 || got[1] != "tv1:route:3" {
		t.Errorf("calls = %v, want power_on then route despite the failure", got)
	}
}

func TestRun_AllStepsFail(t *testing.T) {
	rec := &recorder{}
	resolver := &mockResolver{
		outputs: map[int]adapter.Capability{
			1: &mockCapability{name: "tv1", rec: rec, failWith: "power on: timeout"},
		},
	}
	seq := New(resolver, time.Millisecond, nil, nil)

	plan := Plan{
		ScheduleID: "sched-3",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},
			{Action: ActionPowerOff, TargetKind: TargetOutput, Output: 1},
		},
	}

	result := seq.Run(context.Background(), plan)

	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	for _, o := range result.Outcomes {
		if o.OK {
			t.Errorf("outcome %+v reported OK, want failure", o)
		}
	}
}

func TestRun_UnsupportedVerbSkippedNotFailed(t *testing.T) {
	rec := &recorder{}
	resolver := &mockResolver{
		outputs: map[int]adapter.Capability{
			1: &mockCapability{name: "mains-tv", kind: adapter.KindCEC, rec: rec, noPower: true},
		},
	}
	seq := New(resolver, time.Millisecond, nil, nil)

	// A display on mains power cannot do power_on; the rest of its
	// steps must still run and the run must still read as completed.
	plan := Plan{
		ScheduleID: "sched-8",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 1, Input: 3},
		},
	}

	result := seq.Run(context.Background(), plan)

	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed; outcomes: %+v", result.Status, result.Outcomes)
	}
	if result.StepsOK != 1 || result.StepsFail != 0 || result.StepsSkipped != 1 {
		t.Errorf("StepsOK/StepsFail/StepsSkipped = %d/%d/%d, want 1/0/1",
			result.StepsOK, result.StepsFail, result.StepsSkipped)
	}

	skipped := result.Outcomes[0]
	if !skipped.Skipped || skipped.OK {
		t.Errorf("outcome = %+v, want skipped and not OK", skipped)
	}
	if skipped.Detail != "not supported: power on" {
		t.Errorf("Detail = %q, want %q", skipped.Detail, "not supported: power on")
	}

	got := rec.all()
	if len(got) != 1 || got[0] != "mains-tv:route:3" {
		t.Errorf("calls = %v, want just the route after the skipped power verb", got)
	}
}

func TestRun_SkipDoesNotMaskFailure(t *testing.T) {
	rec := &recorder{}
	resolver := &mockResolver{
		outputs: map[int]adapter.Capability{
			1: &mockCapability{name: "mains-tv", kind: adapter.KindCEC, rec: rec, noPower: true},
		},
	}
	seq := New(resolver, time.Millisecond, nil, nil)

	plan := Plan{
		ScheduleID: "sched-9",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},  // skipped
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 99}, // not configured
		},
	}

	result := seq.Run(context.Background(), plan)

	// Every attempted command failed, so the skip must not soften the
	// classification to partial.
	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	if result.StepsFail != 1 || result.StepsSkipped != 1 {
		t.Errorf("StepsFail/StepsSkipped = %d/%d, want 1/1", result.StepsFail, result.StepsSkipped)
	}
}

func TestRun_EmptyPlanCompletes(t *testing.T) {
	seq := New(setupEstate(&recorder{}), time.Millisecond, nil, nil)

	result := seq.Run(context.Background(), Plan{ScheduleID: "sched-4"})

	if result.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed for empty plan", result.Status)
	}
	if result.StepsTotal != 0 {
		t.Errorf("StepsTotal = %d, want 0", result.StepsTotal)
	}
}

func TestRun_CancellationMarksRemaining(t *testing.T) {
	rec := &recorder{}
	seq := New(setupEstate(rec), time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the run starts

	plan := Plan{
		ScheduleID: "sched-5",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 2},
		},
	}

	result := seq.Run(ctx, plan)

	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	if len(rec.all()) != 0 {
		t.Errorf("calls = %v, want none after cancellation", rec.all())
	}
	for _, o := range result.Outcomes {
		if o.Detail != "cancelled" {
			t.Errorf("Detail = %q, want cancelled", o.Detail)
		}
	}
}

func TestRun_PowerOnSettle(t *testing.T) {
	rec := &recorder{}
	settle := 30 * time.Millisecond
	seq := New(setupEstate(rec), settle, nil, nil)

	plan := Plan{
		ScheduleID: "sched-6",
		Steps: []Step{
			{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 1},
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 1, Input: 3},
		},
	}

	start := time.Now()
	result := seq.Run(context.Background(), plan)
	elapsed := time.Since(start)

	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if elapsed < settle {
		t.Errorf("run took %v, want at least the %v power-on settle", elapsed, settle)
	}
}

func TestRun_DelayBetweenSteps(t *testing.T) {
	rec := &recorder{}
	seq := New(setupEstate(rec), time.Millisecond, nil, nil)

	delay := 20 * time.Millisecond
	plan := Plan{
		ScheduleID:   "sched-7",
		DelayBetween: delay,
		Steps: []Step{
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 1, Input: 3},
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 2, Input: 4},
			{Action: ActionRoute, TargetKind: TargetOutput, Output: 1, Input: 4},
		},
	}

	start := time.Now()
	seq.Run(context.Background(), plan)
	elapsed := time.Since(start)

	// Two gaps between three steps.
	if elapsed < 2*delay {
		t.Errorf("run took %v, want at least %v of inter-step delay", elapsed, 2*delay)
	}
}

func TestStep_Target(t *testing.T) {
	out := Step{Action: ActionPowerOn, TargetKind: TargetOutput, Output: 7}
	if got := out.Target(); got != "output:7" {
		t.Errorf("Target() = %q, want output:7", got)
	}

	in := Step{Action: ActionTune, TargetKind: TargetInput, Input: 3}
	if got := in.Target(); got != "input:3" {
		t.Errorf("Target() = %q, want input:3", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		failed int
		want   Status
	}{
		{"all ok", 5, 0, StatusCompleted},
		{"empty", 0, 0, StatusCompleted},
		{"some failed", 5, 2, StatusPartial},
		{"all failed", 5, 5, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.total, tt.failed); got != tt.want {
				t.Errorf("classify(%d, %d) = %q, want %q", tt.total, tt.failed, got, tt.want)
			}
		})
	}
}
