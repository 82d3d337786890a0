package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxSlugLength     = 50
	maxOutputs        = 64
	maxDelayMS        = 60000 // 1 minute between commands is already absurd
	maxDescriptionLen = 500
	slugPattern       = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
	timeOfDayLayout   = "15:04"
	runDateLayout     = "2006-01-02"
)

var slugRegex = regexp.MustCompile(slugPattern)

// ValidateSchedule performs comprehensive validation on a schedule.
// Returns an error describing the first validation failure found.
func ValidateSchedule(s *Schedule) error {
	if s == nil {
		return ErrInvalidSchedule
	}

	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if s.Slug != "" {
		if err := ValidateSlug(s.Slug); err != nil {
			return err
		}
	}
	if s.Description != nil && len(*s.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidSchedule, maxDescriptionLen)
	}

	if !validRecurrence(s.Recurrence) {
		return fmt.Errorf("%w: recurrence must be one of %v", ErrInvalidSchedule, AllRecurrences())
	}
	if _, err := time.Parse(timeOfDayLayout, s.TimeOfDay); err != nil {
		return fmt.Errorf("%w: time_of_day must be HH:MM, got %q", ErrInvalidSchedule, s.TimeOfDay)
	}

	switch s.Recurrence {
	case RecurrenceWeekly:
		if len(s.DaysOfWeek) == 0 {
			return fmt.Errorf("%w: weekly schedule needs at least one day", ErrInvalidSchedule)
		}
		for _, d := range s.DaysOfWeek {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: invalid weekday %d", ErrInvalidSchedule, d)
			}
		}
	case RecurrenceOnce:
		if s.RunDate == nil {
			return fmt.Errorf("%w: once schedule needs run_date", ErrInvalidSchedule)
		}
		if _, err := time.Parse(runDateLayout, *s.RunDate); err != nil {
			return fmt.Errorf("%w: run_date must be YYYY-MM-DD, got %q", ErrInvalidSchedule, *s.RunDate)
		}
	}

	if s.DelayBetweenCommandsMS < 0 || s.DelayBetweenCommandsMS > maxDelayMS {
		return fmt.Errorf("%w: delay_between_commands_ms must be 0-%d", ErrInvalidSchedule, maxDelayMS)
	}

	return validateActions(&s.Actions, s.PinnedOutputs)
}

// validateActions checks the schedule's device actions.
func validateActions(a *ScheduleActions, pinned []int) error {
	if len(a.Outputs) == 0 {
		return fmt.Errorf("%w: at least one output is required", ErrInvalidSchedule)
	}
	if len(a.Outputs) > maxOutputs {
		return fmt.Errorf("%w: exceeds maximum of %d outputs", ErrInvalidSchedule, maxOutputs)
	}

	seen := make(map[int]bool, len(a.Outputs))
	for _, o := range a.Outputs {
		if o < 1 {
			return fmt.Errorf("%w: output numbers start at 1, got %d", ErrInvalidSchedule, o)
		}
		if seen[o] {
			return fmt.Errorf("%w: output %d listed twice", ErrInvalidSchedule, o)
		}
		seen[o] = true
	}

	for _, p := range pinned {
		if !seen[p] {
			return fmt.Errorf("%w: pinned output %d is not in outputs", ErrInvalidSchedule, p)
		}
	}

	for key, dc := range a.DefaultChannels {
		output, err := strconv.Atoi(key)
		if err != nil || !seen[output] {
			return fmt.Errorf("%w: default channel for unknown output %q", ErrInvalidSchedule, key)
		}
		if dc.Input < 1 {
			return fmt.Errorf("%w: default channel for output %s has no input", ErrInvalidSchedule, key)
		}
		if dc.Channel != "" && !allDigits(dc.Channel) {
			return fmt.Errorf("%w: default channel %q for output %s is not numeric", ErrInvalidSchedule, dc.Channel, key)
		}
	}

	return nil
}

// ValidateName checks if a schedule name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

func validRecurrence(r Recurrence) bool {
	for _, v := range AllRecurrences() {
		if r == v {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// GenerateSlug creates a URL-safe slug from a name.
// It lowercases, replaces spaces/underscores with hyphens, removes
// non-alphanumeric characters, and trims to maxSlugLength.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new UUID for a schedule or execution.
func GenerateID() string {
	return uuid.New().String()
}
