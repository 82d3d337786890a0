package preset

import "errors"

// Sentinel errors for preset operations.
var (
	// ErrPresetNotFound is returned when a preset ID does not exist.
	ErrPresetNotFound = errors.New("preset not found")

	// ErrPresetExists is returned when creating a preset whose ID or
	// channel/device-type pair already exists.
	ErrPresetExists = errors.New("preset already exists")

	// ErrInvalidPreset is returned when preset validation fails.
	ErrInvalidPreset = errors.New("invalid preset")
)
