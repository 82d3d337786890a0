package adapter

import (
	"context"
	"sort"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// Registry resolves matrix input/output numbers to device capabilities.
//
// The estate is fixed at startup from configuration; there is no runtime
// mutation, so lookups are lock-free. When an input carries more than
// one control path, ResolveInput returns the most reliable one.
//
// Thread Safety:
//   - All methods are safe for concurrent use after NewRegistry returns.
type Registry struct {
	matrix  *Matrix
	units   map[string]*GlobalCacheUnit
	inputs  map[int][]Capability // sorted by kind preference
	outputs map[int]*Display
	logger  Logger
}

// NewRegistry builds the device estate from configuration.
//
// Senders referencing an unknown unit are skipped with a warning rather
// than failing startup; one miswired emitter must not take down the
// whole estate.
func NewRegistry(cfg config.DevicesConfig, matrixCfg config.MatrixConfig, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}

	r := &Registry{
		matrix:  NewMatrix(matrixCfg, logger),
		units:   make(map[string]*GlobalCacheUnit),
		inputs:  make(map[int][]Capability),
		outputs: make(map[int]*Display),
		logger:  logger,
	}

	for _, unitCfg := range cfg.GlobalCache.Units {
		r.units[unitCfg.ID] = NewGlobalCacheUnit(unitCfg, logger)
	}

	for _, devCfg := range cfg.DirecTV {
		dev := NewDirecTV(devCfg)
		r.inputs[dev.Input()] = append(r.inputs[dev.Input()], dev)
	}

	for _, senderCfg := range cfg.GlobalCache.Senders {
		unit, ok := r.units[senderCfg.Unit]
		if !ok {
			logger.Warn("ir sender references unknown unit, skipping",
				"sender", senderCfg.Name,
				"unit", senderCfg.Unit,
			)
			continue
		}
		sender := NewIRSender(senderCfg, unit)
		r.inputs[sender.Input()] = append(r.inputs[sender.Input()], sender)
	}

	for _, boxCfg := range cfg.FireTV {
		box := NewFireTV(boxCfg)
		r.inputs[box.Input()] = append(r.inputs[box.Input()], box)
	}

	// Most reliable control path first for each input.
	for _, caps := range r.inputs {
		sort.SliceStable(caps, func(i, j int) bool {
			return kindPreference[caps[i].Kind()] < kindPreference[caps[j].Kind()]
		})
	}

	for _, outCfg := range cfg.Outputs {
		r.outputs[outCfg.Number] = NewDisplay(outCfg, r.matrix)
	}

	return r
}

// ResolveInput returns the preferred capability for a matrix input.
func (r *Registry) ResolveInput(input int) (Capability, bool) {
	caps, ok := r.inputs[input]
	if !ok || len(caps) == 0 {
		return nil, false
	}
	return caps[0], true
}

// ResolveOutput returns the display capability for a matrix output.
func (r *Registry) ResolveOutput(output int) (Capability, bool) {
	display, ok := r.outputs[output]
	if !ok {
		return nil, false
	}
	return display, true
}

// TunerInputs returns the channel-tunable inputs grouped by device type.
// This is the inventory the game allocator draws on: DirecTV receivers
// report as "satellite", IR boxes report their configured type, and
// streaming boxes are excluded because they cannot tune.
func (r *Registry) TunerInputs() map[string][]int {
	inventory := make(map[string][]int)
	for input, caps := range r.inputs {
		switch dev := caps[0].(type) {
		case *DirecTV:
			inventory["satellite"] = append(inventory["satellite"], input)
		case *IRSender:
			inventory[dev.DeviceType()] = append(inventory[dev.DeviceType()], input)
		}
	}
	for _, inputs := range inventory {
		sort.Ints(inputs)
	}
	return inventory
}

// Outputs returns all configured output numbers in ascending order.
func (r *Registry) Outputs() []int {
	outputs := make([]int, 0, len(r.outputs))
	for n := range r.outputs {
		outputs = append(outputs, n)
	}
	sort.Ints(outputs)
	return outputs
}

// HealthCheck probes the matrix session. Input devices are not probed;
// a sleeping set-top box is normal, not a fault.
func (r *Registry) HealthCheck(ctx context.Context) error {
	return r.matrix.HealthCheck(ctx)
}

// Close shuts down all shared sessions.
func (r *Registry) Close() error {
	err := r.matrix.Close()
	for _, unit := range r.units {
		if closeErr := unit.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
