package schedule

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// validSchedule returns a schedule that passes validation; tests
// mutate one field at a time.
func validSchedule() *Schedule {
	return &Schedule{
		ID:                     GenerateID(),
		Name:                   "Morning Open",
		Slug:                   "morning-open",
		Enabled:                true,
		Recurrence:             RecurrenceDaily,
		TimeOfDay:              "09:00",
		ExecutionOrder:         OrderOutputsFirst,
		DelayBetweenCommandsMS: 250,
		Actions: ScheduleActions{
			Outputs:        []int{1, 2},
			PowerOnOutputs: true,
			DefaultChannels: map[string]DefaultChannel{
				"1": {Input: 3, Channel: "206"},
			},
		},
	}
}

func TestValidateSchedule_Valid(t *testing.T) {
	if err := ValidateSchedule(validSchedule()); err != nil {
		t.Errorf("ValidateSchedule() error: %v", err)
	}
}

func TestValidateSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Schedule)
		wantErr error
	}{
		{"nil name", func(s *Schedule) { s.Name = "" }, ErrInvalidName},
		{"whitespace name", func(s *Schedule) { s.Name = "   " }, ErrInvalidName},
		{"long name", func(s *Schedule) { s.Name = strings.Repeat("x", 101) }, ErrInvalidName},
		{"bad slug", func(s *Schedule) { s.Slug = "Has Spaces" }, ErrInvalidSlug},
		{"unknown recurrence", func(s *Schedule) { s.Recurrence = "hourly" }, ErrInvalidSchedule},
		{"bad time of day", func(s *Schedule) { s.TimeOfDay = "9am" }, ErrInvalidSchedule},
		{"weekly without days", func(s *Schedule) {
			s.Recurrence = RecurrenceWeekly
			s.DaysOfWeek = nil
		}, ErrInvalidSchedule},
		{"weekly bad day", func(s *Schedule) {
			s.Recurrence = RecurrenceWeekly
			s.DaysOfWeek = []time.Weekday{9}
		}, ErrInvalidSchedule},
		{"once without date", func(s *Schedule) {
			s.Recurrence = RecurrenceOnce
			s.RunDate = nil
		}, ErrInvalidSchedule},
		{"once bad date", func(s *Schedule) {
			s.Recurrence = RecurrenceOnce
			bad := "01/04/2026"
			s.RunDate = &bad
		}, ErrInvalidSchedule},
		{"negative delay", func(s *Schedule) { s.DelayBetweenCommandsMS = -1 }, ErrInvalidSchedule},
		{"huge delay", func(s *Schedule) { s.DelayBetweenCommandsMS = 120000 }, ErrInvalidSchedule},
		{"no outputs", func(s *Schedule) { s.Actions.Outputs = nil }, ErrInvalidSchedule},
		{"zero output", func(s *Schedule) { s.Actions.Outputs = []int{0} }, ErrInvalidSchedule},
		{"duplicate output", func(s *Schedule) { s.Actions.Outputs = []int{1, 1} }, ErrInvalidSchedule},
		{"pinned output not selected", func(s *Schedule) { s.PinnedOutputs = []int{5} }, ErrInvalidSchedule},
		{"default channel for unknown output", func(s *Schedule) {
			s.Actions.DefaultChannels["9"] = DefaultChannel{Input: 3}
		}, ErrInvalidSchedule},
		{"default channel without input", func(s *Schedule) {
			s.Actions.DefaultChannels["1"] = DefaultChannel{Channel: "206"}
		}, ErrInvalidSchedule},
		{"non-numeric default channel", func(s *Schedule) {
			s.Actions.DefaultChannels["1"] = DefaultChannel{Input: 3, Channel: "ESPN"}
		}, ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchedule()
			tt.mutate(s)
			if err := ValidateSchedule(s); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSchedule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Morning Open", "morning-open"},
		{"Sunday NFL  Ticket!", "sunday-nfl-ticket"},
		{"__Close_Down__", "close-down"},
	}

	for _, tt := range tests {
		if got := GenerateSlug(tt.name); got != tt.want {
			t.Errorf("GenerateSlug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
