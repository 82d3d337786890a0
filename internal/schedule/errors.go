package schedule

import "errors"

// Domain errors for the schedule package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, schedule.ErrBusy) {
//	    // surface 409 to the caller
//	}
var (
	// ErrScheduleNotFound is returned when a schedule ID does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")

	// ErrScheduleExists is returned when creating a schedule whose ID
	// or slug already exists.
	ErrScheduleExists = errors.New("schedule: already exists")

	// ErrScheduleDisabled is returned when manually executing a
	// disabled schedule.
	ErrScheduleDisabled = errors.New("schedule: disabled")

	// ErrInvalidSchedule is returned when schedule validation fails.
	ErrInvalidSchedule = errors.New("schedule: invalid")

	// ErrInvalidName is returned when a schedule name is empty or too long.
	ErrInvalidName = errors.New("schedule: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("schedule: invalid slug")

	// ErrBusy is returned when an execution is already in flight for
	// the schedule. The new trigger is rejected, never queued.
	ErrBusy = errors.New("schedule: execution already in flight")

	// ErrNoFutureFire is returned when a schedule has no fire time
	// left (a once schedule whose date has passed).
	ErrNoFutureFire = errors.New("schedule: no future fire time")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("schedule: execution not found")
)
