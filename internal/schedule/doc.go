// Package schedule owns the venue's schedules and drives their
// execution.
//
// A Schedule says when (daily, weekly, or once, at a venue-local time
// of day) and what (which outputs to power, where to route them, what
// to tune). The Engine's tick loop scans for matured schedules and
// runs each as its own goroutine; a per-schedule lock means a schedule
// never has two executions in flight, and an overrun drops the new
// fire rather than queuing it.
//
// Fire times are computed with the venue's timezone through time.Date,
// so DST changeovers shift the wall clock without double-firing or
// skipping a slot.
//
// Every run is recorded as an Execution with per-step failures, and
// lifecycle events go out over MQTT and WebSocket for whoever is
// watching.
package schedule
