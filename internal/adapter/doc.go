// Package adapter implements device control for the venue's AV estate.
//
// Every controllable device is reached through a Capability: a uniform
// set of verbs (power, route, tune, app launch) where unsupported verbs
// return a non-error "not supported" result rather than failing. The
// sequencer never needs to know which protocol sits behind a slot.
//
// # Protocol families
//
//   - DirecTV receivers via vendor IP control (HTTP)
//   - Generic set-top boxes via IR-over-network (GlobalCache units)
//   - Streaming boxes via their network control port
//   - Display power via CEC carried over the video matrix
//
// # Resolution
//
// The Registry maps matrix input/output numbers to capabilities. When an
// input carries more than one control path, the most reliable wins:
// vendor IP control is preferred over generic IR for the same slot.
//
// # Serialisation
//
// Each physical session (matrix connection, GlobalCache unit, receiver)
// admits one in-flight command at a time. Serialisation lives here, at
// the session boundary, so concurrent schedules touching different
// devices still run in parallel.
package adapter
