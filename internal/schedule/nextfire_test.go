package schedule

import (
	"errors"
	"testing"
	"time"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}
	return loc
}

func dailyAt(timeOfDay string) *Schedule {
	return &Schedule{Recurrence: RecurrenceDaily, TimeOfDay: timeOfDay}
}

func TestNextFire_DailyToday(t *testing.T) {
	loc := chicago(t)
	after := time.Date(2026, 3, 14, 8, 0, 0, 0, loc)

	fire, err := NextFire(dailyAt("09:00"), after, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}

	want := time.Date(2026, 3, 14, 9, 0, 0, 0, loc)
	if !fire.Equal(want) {
		t.Errorf("fire = %v, want today's 09:00", fire)
	}
}

func TestNextFire_DailyTomorrowAfterSlot(t *testing.T) {
	loc := chicago(t)
	after := time.Date(2026, 3, 14, 10, 0, 0, 0, loc)

	fire, err := NextFire(dailyAt("09:00"), after, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}

	want := time.Date(2026, 3, 15, 9, 0, 0, 0, loc)
	if !fire.Equal(want) {
		t.Errorf("fire = %v, want tomorrow's 09:00", fire)
	}
}

func TestNextFire_DailyExactlyAtSlot(t *testing.T) {
	loc := chicago(t)
	after := time.Date(2026, 3, 14, 9, 0, 0, 0, loc)

	fire, err := NextFire(dailyAt("09:00"), after, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}
	if !fire.After(after) {
		t.Errorf("fire = %v, want strictly after %v", fire, after)
	}
}

func TestNextFire_WeeklyInvariant(t *testing.T) {
	loc := chicago(t)
	s := &Schedule{
		Recurrence: RecurrenceWeekly,
		TimeOfDay:  "11:30",
		DaysOfWeek: []time.Weekday{time.Sunday, time.Thursday},
	}

	days := map[time.Weekday]bool{time.Sunday: true, time.Thursday: true}

	// Walk a month of fires: every fire lands on a listed weekday at
	// the configured time of day, strictly after the previous one.
	after := time.Date(2026, 3, 2, 12, 0, 0, 0, loc) // a Monday
	for i := 0; i < 10; i++ {
		fire, err := NextFire(s, after, loc)
		if err != nil {
			t.Fatalf("NextFire() error: %v", err)
		}
		if !days[fire.Weekday()] {
			t.Errorf("fire %v on %v, want Sunday or Thursday", fire, fire.Weekday())
		}
		if fire.Hour() != 11 || fire.Minute() != 30 {
			t.Errorf("fire %v, want 11:30 local", fire)
		}
		if !fire.After(after) {
			t.Errorf("fire %v is not after %v", fire, after)
		}
		after = fire
	}
}

func TestNextFire_WeeklySameDayBeforeSlot(t *testing.T) {
	loc := chicago(t)
	s := &Schedule{
		Recurrence: RecurrenceWeekly,
		TimeOfDay:  "18:00",
		DaysOfWeek: []time.Weekday{time.Sunday},
	}

	// Sunday morning: today's slot is still ahead.
	after := time.Date(2026, 3, 15, 9, 0, 0, 0, loc)
	fire, err := NextFire(s, after, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}

	want := time.Date(2026, 3, 15, 18, 0, 0, 0, loc)
	if !fire.Equal(want) {
		t.Errorf("fire = %v, want same-day 18:00", fire)
	}
}

func TestNextFire_WeeklyWrapsToNextWeek(t *testing.T) {
	loc := chicago(t)
	s := &Schedule{
		Recurrence: RecurrenceWeekly,
		TimeOfDay:  "09:00",
		DaysOfWeek: []time.Weekday{time.Sunday},
	}

	// Sunday evening: this week's slot has passed.
	after := time.Date(2026, 3, 15, 20, 0, 0, 0, loc)
	fire, err := NextFire(s, after, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}

	want := time.Date(2026, 3, 22, 9, 0, 0, 0, loc)
	if !fire.Equal(want) {
		t.Errorf("fire = %v, want next Sunday 09:00", fire)
	}
}

func TestNextFire_Once(t *testing.T) {
	loc := chicago(t)
	runDate := "2026-04-01"
	s := &Schedule{Recurrence: RecurrenceOnce, TimeOfDay: "15:00", RunDate: &runDate}

	after := time.Date(2026, 3, 14, 9, 0, 0, 0, loc)
	fire, err := NextFire(s, after, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}
	want := time.Date(2026, 4, 1, 15, 0, 0, 0, loc)
	if !fire.Equal(want) {
		t.Errorf("fire = %v, want %v", fire, want)
	}

	// Past its slot there is nothing left.
	after = time.Date(2026, 4, 1, 16, 0, 0, 0, loc)
	if _, err := NextFire(s, after, loc); !errors.Is(err, ErrNoFutureFire) {
		t.Errorf("NextFire() after slot error = %v, want ErrNoFutureFire", err)
	}
}

func TestNextFire_SpringForward(t *testing.T) {
	loc := chicago(t)

	// US DST starts 2026-03-08: the clock jumps 02:00 → 03:00. A
	// 09:00 daily schedule still fires at 09:00 wall clock, which is
	// only 23 real hours after the previous day's fire.
	previous := time.Date(2026, 3, 7, 9, 0, 0, 0, loc)
	fire, err := NextFire(dailyAt("09:00"), previous, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}

	if fire.Hour() != 9 || fire.Day() != 8 {
		t.Errorf("fire = %v, want 09:00 on March 8th", fire)
	}
	if elapsed := fire.Sub(previous); elapsed != 23*time.Hour {
		t.Errorf("elapsed = %v across spring forward, want 23h", elapsed)
	}
}

func TestNextFire_FallBack(t *testing.T) {
	loc := chicago(t)

	// US DST ends 2026-11-01: the clock repeats 01:00-02:00. The fire
	// is 25 real hours later, not fired twice.
	previous := time.Date(2026, 10, 31, 9, 0, 0, 0, loc)
	fire, err := NextFire(dailyAt("09:00"), previous, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}

	if fire.Hour() != 9 || fire.Day() != 1 || fire.Month() != time.November {
		t.Errorf("fire = %v, want 09:00 on November 1st", fire)
	}
	if elapsed := fire.Sub(previous); elapsed != 25*time.Hour {
		t.Errorf("elapsed = %v across fall back, want 25h", elapsed)
	}
}

func TestNextFire_NonexistentWallClock(t *testing.T) {
	loc := chicago(t)

	// 02:30 does not exist on 2026-03-08; the fire lands after the
	// jump rather than being skipped or doubled.
	previous := time.Date(2026, 3, 7, 9, 0, 0, 0, loc)
	fire, err := NextFire(dailyAt("02:30"), previous, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}
	if !fire.After(previous) {
		t.Errorf("fire = %v, want strictly after %v", fire, previous)
	}
	if fire.Day() != 8 {
		t.Errorf("fire = %v, want on March 8th", fire)
	}

	// And the day after resumes at 02:30 sharp.
	next, err := NextFire(dailyAt("02:30"), fire, loc)
	if err != nil {
		t.Fatalf("NextFire() error: %v", err)
	}
	if next.Hour() != 2 || next.Minute() != 30 || next.Day() != 9 {
		t.Errorf("next = %v, want 02:30 on March 9th", next)
	}
}
