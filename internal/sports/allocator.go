package sports

import (
	"context"
	"strings"
	"time"

	"github.com/barvision/barvision-core/internal/preset"
)

// PresetSource supplies vetted presets in ranking order.
// Implemented by preset.Ranker.
type PresetSource interface {
	RankedByDeviceType(ctx context.Context, deviceType preset.DeviceType) ([]preset.ChannelPreset, error)
}

// Logger is the minimal logging interface this package needs.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Assignment pairs one output with the game it should show and the
// vetted preset that resolves the tune.
type Assignment struct {
	Output  int                  `json:"output"`
	Game    GameListing          `json:"game"`
	Channel ChannelInfo          `json:"channel"`
	Preset  preset.ChannelPreset `json:"preset"`
}

// Allocator turns live game listings into output assignments.
//
// Every assignment's channel comes from a vetted ChannelPreset; a game
// whose broadcast has no matching preset is dropped rather than tuned
// to a raw channel number. Staff vet presets precisely so automation
// cannot land a family venue on an unvetted channel.
type Allocator struct {
	source    Source
	presets   PresetSource
	preferred []ProviderType
	logger    Logger
}

// NewAllocator creates an Allocator. preferred is a strict priority
// order over provider types; empty defaults to satellite then cable.
// logger may be nil.
func NewAllocator(source Source, presets PresetSource, preferred []string, logger Logger) *Allocator {
	if logger == nil {
		logger = noopLogger{}
	}
	order := make([]ProviderType, 0, len(preferred))
	for _, p := range preferred {
		order = append(order, ProviderType(p))
	}
	if len(order) == 0 {
		order = []ProviderType{ProviderSatellite, ProviderCable}
	}
	return &Allocator{
		source:    source,
		presets:   presets,
		preferred: order,
		logger:    logger,
	}
}

// Allocate fetches games starting within the window and assigns them
// to outputs in listing order, one game per output, until either side
// is exhausted. Outputs beyond the available games are simply absent
// from the result; the caller falls back to its static mappings.
//
// A listing-service failure returns ErrDiscoveryUnavailable; the
// caller degrades to static mappings rather than failing the plan.
func (a *Allocator) Allocate(ctx context.Context, outputs []int, teamIDs []string, window time.Duration) ([]Assignment, error) {
	if len(outputs) == 0 {
		return nil, nil
	}

	games, err := a.source.ListGames(ctx, teamIDs, window)
	if err != nil {
		return nil, err
	}

	// Ranked presets per tuner family, loaded once per cycle. The
	// ranking breaks ties when several presets carry the same network.
	ranked := map[preset.DeviceType][]preset.ChannelPreset{}
	for _, dt := range preset.ValidDeviceTypes() {
		presets, err := a.presets.RankedByDeviceType(ctx, dt)
		if err != nil {
			return nil, err
		}
		ranked[dt] = presets
	}

	var assignments []Assignment
	for _, game := range games {
		if len(assignments) == len(outputs) {
			break
		}

		channel, ok := a.chooseBroadcast(game)
		if !ok {
			a.logger.Debug("game has no broadcast on a preferred provider",
				"game", game.Title(), "league", game.League)
			continue
		}

		deviceType, ok := deviceTypeFor(channel.Type)
		if !ok {
			// Streaming broadcasts have no channel number to vet.
			a.logger.Debug("broadcast provider is not tunable", "game", game.Title(), "provider", channel.Type)
			continue
		}

		matched, ok := matchPreset(ranked[deviceType], channel)
		if !ok {
			a.logger.Info("dropping game with no vetted preset",
				"game", game.Title(), "network", channel.Network, "channel", channel.Channel)
			continue
		}

		assignments = append(assignments, Assignment{
			Output:  outputs[len(assignments)],
			Game:    game,
			Channel: channel,
			Preset:  matched,
		})
	}

	return assignments, nil
}

// chooseBroadcast picks the game's broadcast by strict provider
// priority: the first preferred provider with a listing wins.
func (a *Allocator) chooseBroadcast(game GameListing) (ChannelInfo, bool) {
	for _, provider := range a.preferred {
		for _, ch := range game.Channels {
			if ch.Type == provider {
				return ch, true
			}
		}
	}
	return ChannelInfo{}, false
}

// matchPreset resolves a broadcast to a vetted preset: an exact
// channel-number match wins, else the highest-ranked preset carrying
// the same network. Listing channel numbers are market-specific, so
// the network fallback is what usually fires.
func matchPreset(ranked []preset.ChannelPreset, channel ChannelInfo) (preset.ChannelPreset, bool) {
	if channel.Channel != "" {
		for _, p := range ranked {
			if p.Channel == channel.Channel {
				return p, true
			}
		}
	}
	if channel.Network != "" {
		for _, p := range ranked {
			if strings.EqualFold(p.Network, channel.Network) {
				return p, true
			}
		}
	}
	return preset.ChannelPreset{}, false
}

// deviceTypeFor maps a provider type to the tuner family its channel
// numbers belong to. Streaming has no tuner family.
func deviceTypeFor(provider ProviderType) (preset.DeviceType, bool) {
	switch provider {
	case ProviderCable:
		return preset.DeviceTypeCable, true
	case ProviderSatellite:
		return preset.DeviceTypeSatellite, true
	default:
		return "", false
	}
}
