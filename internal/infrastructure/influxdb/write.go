package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStepMetric records the outcome of a single sequencer step.
//
// This is the primary method for recording device command telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - scheduleID: The schedule whose plan contained the step
//   - action: The step verb (e.g., "power_on", "route", "tune")
//   - target: The device slot, e.g. "output:7" or "input:3"
//   - success: Whether the adapter reported success
//   - durationMS: Wall-clock time the command took
//
// Example:
//
//	client.WriteStepMetric("sched-morning-open", "tune", "input:3", true, 840)
func (c *Client) WriteStepMetric(scheduleID, action, target string, success bool, durationMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"step_metrics",
		map[string]string{
			"schedule_id": scheduleID,
			"action":      action,
			"target":      target,
		},
		map[string]interface{}{
			"success":     success,
			"duration_ms": durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteExecutionSummary records the outcome of a whole schedule execution.
//
// Parameters:
//   - scheduleID: The schedule that executed
//   - trigger: How it fired ("tick" or "manual")
//   - status: Final status ("completed", "partial", "failed")
//   - stepsTotal, stepsFailed: Step counts for the run
//   - durationMS: Total execution time
func (c *Client) WriteExecutionSummary(scheduleID, trigger, status string, stepsTotal, stepsFailed int, durationMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"executions",
		map[string]string{
			"schedule_id": scheduleID,
			"trigger":     trigger,
			"status":      status,
		},
		map[string]interface{}{
			"steps_total":  stepsTotal,
			"steps_failed": stepsFailed,
			"duration_ms":  durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
