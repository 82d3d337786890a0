package mqtt

import "fmt"

// Topic prefixes for the BarVision MQTT hierarchy.
//
// All topics use the flat scheme: barvision/{category}/{entity}/{suffix}
const (
	// TopicPrefix is the base for all BarVision topics.
	TopicPrefix = "barvision"

	// TopicPrefixEvent is the base for event topics.
	TopicPrefixEvent = "barvision/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "barvision/system"
)

// Topics provides builders for BarVision MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	firedTopic := topics.ScheduleFired("sched-morning-open")
//	// Returns: "barvision/event/schedule/sched-morning-open/fired"
type Topics struct{}

// =============================================================================
// Event Topics
// =============================================================================

// ScheduleFired returns the topic for schedule trigger events.
// Published when a schedule begins executing (tick or manual).
//
// Example: barvision/event/schedule/sched-morning-open/fired
func (Topics) ScheduleFired(scheduleID string) string {
	return fmt.Sprintf("%s/schedule/%s/fired", TopicPrefixEvent, scheduleID)
}

// ScheduleCompleted returns the topic for execution completion events.
// The payload carries the final status (completed, partial, failed).
//
// Example: barvision/event/schedule/sched-morning-open/completed
func (Topics) ScheduleCompleted(scheduleID string) string {
	return fmt.Sprintf("%s/schedule/%s/completed", TopicPrefixEvent, scheduleID)
}

// PresetUsed returns the topic for channel preset usage events.
// Published after each successful tune so panels can refresh rankings.
//
// Example: barvision/event/preset/preset-espn/used
func (Topics) PresetUsed(presetID string) string {
	return fmt.Sprintf("%s/preset/%s/used", TopicPrefixEvent, presetID)
}

// GamesDiscovered returns the topic for game discovery results.
// Published when autoFindGames resolves listings into channel assignments.
//
// Example: barvision/event/games/discovered
func (Topics) GamesDiscovered() string {
	return fmt.Sprintf("%s/games/discovered", TopicPrefixEvent)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
// Retained; carries online/offline payloads including the LWT.
//
// Example: barvision/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllScheduleEvents returns a pattern matching all schedule events.
//
// Pattern: barvision/event/schedule/+/+
func (Topics) AllScheduleEvents() string {
	return fmt.Sprintf("%s/schedule/+/+", TopicPrefixEvent)
}

// AllPresetEvents returns a pattern matching all preset events.
//
// Pattern: barvision/event/preset/+/+
func (Topics) AllPresetEvents() string {
	return fmt.Sprintf("%s/preset/+/+", TopicPrefixEvent)
}

// AllEvents returns a pattern matching every event topic.
//
// Pattern: barvision/event/#
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/#", TopicPrefixEvent)
}

// AllTopics returns a pattern matching all BarVision topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: barvision/#
func (Topics) AllTopics() string {
	return "barvision/#"
}
