package adapter

import (
	"context"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// Display is the capability for one output on the video matrix.
//
// Routing always goes through the matrix. Power control rides CEC over
// the same matrix connection when the display supports it; otherwise
// power verbs report not supported and the display stays on mains.
type Display struct {
	name   string
	output int
	cec    bool
	matrix *Matrix
}

// NewDisplay creates a display handle from configuration.
func NewDisplay(cfg config.OutputConfig, matrix *Matrix) *Display {
	return &Display{
		name:   cfg.Name,
		output: cfg.Number,
		cec:    cfg.CEC,
		matrix: matrix,
	}
}

// Name returns the configured display name.
func (d *Display) Name() string { return d.name }

// Kind returns the protocol family.
func (d *Display) Kind() Kind { return KindCEC }

// Output returns the matrix output number.
func (d *Display) Output() int { return d.output }

// PowerOn wakes the display over CEC.
func (d *Display) PowerOn(ctx context.Context) Result {
	if !d.cec {
		return NotSupported("power on")
	}
	return d.matrix.DisplayPower(ctx, d.output, true)
}

// PowerOff puts the display in standby over CEC.
func (d *Display) PowerOff(ctx context.Context) Result {
	if !d.cec {
		return NotSupported("power off")
	}
	return d.matrix.DisplayPower(ctx, d.output, false)
}

// Route switches this display to the given matrix input.
func (d *Display) Route(ctx context.Context, input int) Result {
	return d.matrix.Route(ctx, d.output, input)
}

// SendDigits is not supported; displays have no tuner of their own.
func (d *Display) SendDigits(ctx context.Context, channel string) Result {
	return NotSupported("tune")
}

// LaunchApp is not supported on displays.
func (d *Display) LaunchApp(ctx context.Context, appID string) Result {
	return NotSupported("launch app")
}
