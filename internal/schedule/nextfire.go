package schedule

import (
	"fmt"
	"time"
)

// NextFire computes the schedule's next fire time strictly after the
// given instant, in the venue's timezone.
//
// All arithmetic goes through time.Date with the venue location, so a
// DST transition shifts the wall clock, not the fire: a 09:00 schedule
// fires at 09:00 local on both sides of the changeover, never twice
// and never not at all.
//
// Returns ErrNoFutureFire for a once schedule whose slot has passed.
func NextFire(s *Schedule, after time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	after = after.In(loc)

	switch s.Recurrence {
	case RecurrenceOnce:
		date, err := time.Parse(runDateLayout, deref(s.RunDate))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad run_date %q", ErrInvalidSchedule, deref(s.RunDate))
		}
		fire := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
		if !fire.After(after) {
			return time.Time{}, ErrNoFutureFire
		}
		return fire, nil

	case RecurrenceWeekly:
		days := make(map[time.Weekday]bool, len(s.DaysOfWeek))
		for _, d := range s.DaysOfWeek {
			days[d] = true
		}
		// Today's slot may still be ahead; otherwise walk forward. A
		// full week plus a day covers every weekday set.
		for offset := 0; offset <= 7; offset++ {
			day := after.AddDate(0, 0, offset)
			if !days[day.Weekday()] {
				continue
			}
			fire := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
			if fire.After(after) {
				return fire, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: no weekday slot found", ErrInvalidSchedule)

	default: // daily
		fire := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, loc)
		if !fire.After(after) {
			next := after.AddDate(0, 0, 1)
			fire = time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, loc)
		}
		return fire, nil
	}
}

// parseTimeOfDay splits "HH:MM" into its components.
func parseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time_of_day must be HH:MM, got %q", ErrInvalidSchedule, s)
	}
	return t.Hour(), t.Minute(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
