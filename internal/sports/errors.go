package sports

import "errors"

// ErrDiscoveryUnavailable is returned when the listing service cannot
// be reached or returns garbage. Callers degrade to static channel
// mappings rather than failing the schedule.
var ErrDiscoveryUnavailable = errors.New("game discovery unavailable")
