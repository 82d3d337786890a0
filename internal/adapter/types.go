package adapter

import "context"

// Kind identifies the protocol family behind a capability.
type Kind string

// Protocol families in preference order (most reliable first).
const (
	KindDirecTV Kind = "directv"
	KindFireTV  Kind = "firetv"
	KindIR      Kind = "ir"
	KindCEC     Kind = "cec"
)

// kindPreference ranks protocol families for input resolution.
// Lower is better. Vendor IP control beats generic IR for the same slot.
var kindPreference = map[Kind]int{
	KindDirecTV: 0,
	KindFireTV:  1,
	KindIR:      2,
	KindCEC:     3,
}

// Result is the outcome of a single device command.
//
// Expected failures (timeouts, unreachable boxes) are values, not
// errors: the sequencer records them and carries on. Unsupported marks
// verbs a device cannot perform at all — a skip, not a failure. Detail
// is a short diagnostic suitable for execution records and logs.
type Result struct {
	OK          bool   `json:"ok"`
	Unsupported bool   `json:"unsupported,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Succeeded returns a successful result.
func Succeeded() Result {
	return Result{OK: true}
}

// Failed returns a failed result with a diagnostic.
func Failed(detail string) Result {
	return Result{OK: false, Detail: detail}
}

// NotSupported returns the result for verbs a device cannot perform.
// Callers that offer a verb to every capability treat this as a skip;
// it never counts against a run's status.
func NotSupported(verb string) Result {
	return Result{Unsupported: true, Detail: "not supported: " + verb}
}

// Capability is a uniform control handle for one device slot.
//
// All verbs are available on every capability; devices that cannot
// perform a verb return NotSupported rather than an error. Commands
// respect context cancellation and the session's configured timeout,
// whichever fires first.
type Capability interface {
	// Name is the human-readable device name from configuration.
	Name() string

	// Kind is the protocol family.
	Kind() Kind

	// PowerOn wakes the device.
	PowerOn(ctx context.Context) Result

	// PowerOff puts the device to standby.
	PowerOff(ctx context.Context) Result

	// Route switches this slot to the given matrix input.
	// Only output (display) capabilities support routing.
	Route(ctx context.Context, input int) Result

	// SendDigits tunes the device to a channel, digit by digit,
	// committing the entry when the device requires it.
	SendDigits(ctx context.Context, channel string) Result

	// LaunchApp starts a streaming app by its identifier.
	LaunchApp(ctx context.Context, appID string) Result
}

// Logger is the minimal logging interface this package needs.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
