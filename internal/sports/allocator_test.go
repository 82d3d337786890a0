package sports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barvision/barvision-core/internal/preset"
)

// mockSource returns a scripted listing.
type mockSource struct {
	games []GameListing
	err   error
}

func (m *mockSource) ListGames(ctx context.Context, teamIDs []string, window time.Duration) ([]GameListing, error) {
	return m.games, m.err
}

// mockPresets serves fixed presets per tuner family, pre-ranked.
type mockPresets struct {
	byType map[preset.DeviceType][]preset.ChannelPreset
}

func (m *mockPresets) RankedByDeviceType(ctx context.Context, dt preset.DeviceType) ([]preset.ChannelPreset, error) {
	return m.byType[dt], nil
}

func vettedPresets() *mockPresets {
	return &mockPresets{byType: map[preset.DeviceType][]preset.ChannelPreset{
		preset.DeviceTypeSatellite: {
			{ID: "espn-sat", Name: "ESPN", Channel: "206", DeviceType: preset.DeviceTypeSatellite, Network: "ESPN"},
			{ID: "tnt-sat", Name: "TNT", Channel: "245", DeviceType: preset.DeviceTypeSatellite, Network: "TNT"},
		},
		preset.DeviceTypeCable: {
			{ID: "espn-cab", Name: "ESPN", Channel: "34", DeviceType: preset.DeviceTypeCable, Network: "ESPN"},
		},
	}}
}

func gameOn(id string, channels ...ChannelInfo) GameListing {
	return GameListing{
		ID:        id,
		League:    "nba",
		HomeTeam:  Team{ID: "home-" + id, Name: "Home " + id},
		AwayTeam:  Team{ID: "away-" + id, Name: "Away " + id},
		StartTime: time.Now().Add(time.Hour),
		Channels:  channels,
	}
}

func TestAllocate_AssignsInListingOrder(t *testing.T) {
	source := &mockSource{games: []GameListing{
		gameOn("g1", ChannelInfo{Network: "ESPN", Type: ProviderSatellite, Channel: "206"}),
		gameOn("g2", ChannelInfo{Network: "TNT", Type: ProviderSatellite, Channel: "245"}),
	}}
	alloc := NewAllocator(source, vettedPresets(), nil, nil)

	got, err := alloc.Allocate(context.Background(), []int{7, 8, 9}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("assignments = %d, want 2 (one per game)", len(got))
	}
	if got[0].Output != 7 || got[0].Game.ID != "g1" || got[0].Preset.ID != "espn-sat" {
		t.Errorf("first = %+v, want g1 on output 7 via espn-sat", got[0])
	}
	if got[1].Output != 8 || got[1].Game.ID != "g2" || got[1].Preset.ID != "tnt-sat" {
		t.Errorf("second = %+v, want g2 on output 8 via tnt-sat", got[1])
	}
	// Output 9 is left for the caller's static fallback.
}

func TestAllocate_MoreGamesThanOutputs(t *testing.T) {
	source := &mockSource{games: []GameListing{
		gameOn("g1", ChannelInfo{Network: "ESPN", Type: ProviderSatellite, Channel: "206"}),
		gameOn("g2", ChannelInfo{Network: "TNT", Type: ProviderSatellite, Channel: "245"}),
	}}
	alloc := NewAllocator(source, vettedPresets(), nil, nil)

	got, err := alloc.Allocate(context.Background(), []int{7}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 1 || got[0].Game.ID != "g1" {
		t.Errorf("assignments = %+v, want just g1 on the single output", got)
	}
}

func TestAllocate_ProviderPriority(t *testing.T) {
	// Game airs on both cable and satellite; satellite is preferred.
	source := &mockSource{games: []GameListing{
		gameOn("g1",
			ChannelInfo{Network: "ESPN", Type: ProviderCable, Channel: "34"},
			ChannelInfo{Network: "ESPN", Type: ProviderSatellite, Channel: "206"},
		),
	}}
	alloc := NewAllocator(source, vettedPresets(), []string{"satellite", "cable"}, nil)

	got, err := alloc.Allocate(context.Background(), []int{7}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 1 || got[0].Preset.ID != "espn-sat" {
		t.Errorf("assignments = %+v, want the satellite broadcast chosen", got)
	}

	// Flip the priority and the cable broadcast wins.
	alloc = NewAllocator(source, vettedPresets(), []string{"cable", "satellite"}, nil)
	got, err = alloc.Allocate(context.Background(), []int{7}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 1 || got[0].Preset.ID != "espn-cab" {
		t.Errorf("assignments = %+v, want the cable broadcast chosen", got)
	}
}

func TestAllocate_DropsUnvettedChannels(t *testing.T) {
	// NFL Network has no preset; the game must be dropped, not tuned raw.
	source := &mockSource{games: []GameListing{
		gameOn("unvetted", ChannelInfo{Network: "NFL Network", Type: ProviderSatellite, Channel: "212"}),
		gameOn("vetted", ChannelInfo{Network: "ESPN", Type: ProviderSatellite, Channel: "206"}),
	}}
	alloc := NewAllocator(source, vettedPresets(), nil, nil)

	got, err := alloc.Allocate(context.Background(), []int{7, 8}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 1 || got[0].Game.ID != "vetted" {
		t.Fatalf("assignments = %+v, want only the vetted game", got)
	}
	// The dropped game does not burn an output slot.
	if got[0].Output != 7 {
		t.Errorf("Output = %d, want the first output", got[0].Output)
	}
	if got[0].Preset.Channel != "206" {
		t.Errorf("Preset.Channel = %q, want the vetted channel number", got[0].Preset.Channel)
	}
}

func TestAllocate_NetworkMatchUsesVenueChannel(t *testing.T) {
	// Listing carries a market-specific channel number; the preset's
	// own number is what gets tuned.
	source := &mockSource{games: []GameListing{
		gameOn("g1", ChannelInfo{Network: "espn", Type: ProviderSatellite, Channel: "9999"}),
	}}
	alloc := NewAllocator(source, vettedPresets(), nil, nil)

	got, err := alloc.Allocate(context.Background(), []int{7}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 1 || got[0].Preset.ID != "espn-sat" {
		t.Fatalf("assignments = %+v, want network-matched preset", got)
	}
	if got[0].Preset.Channel != "206" {
		t.Errorf("Preset.Channel = %q, want the venue's 206, not the listing's 9999", got[0].Preset.Channel)
	}
}

func TestAllocate_StreamingOnlyGameDropped(t *testing.T) {
	source := &mockSource{games: []GameListing{
		gameOn("stream", ChannelInfo{Network: "Peacock", Type: ProviderStreaming, AppID: "peacock"}),
	}}
	alloc := NewAllocator(source, vettedPresets(), []string{"satellite", "cable", "streaming"}, nil)

	got, err := alloc.Allocate(context.Background(), []int{7}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("assignments = %+v, want none for a streaming-only game", got)
	}
}

func TestAllocate_EmptyListing(t *testing.T) {
	alloc := NewAllocator(&mockSource{}, vettedPresets(), nil, nil)

	got, err := alloc.Allocate(context.Background(), []int{7, 8}, nil, 4*time.Hour)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("assignments = %+v, want none", got)
	}
}

func TestAllocate_DiscoveryFailurePropagates(t *testing.T) {
	source := &mockSource{err: ErrDiscoveryUnavailable}
	alloc := NewAllocator(source, vettedPresets(), nil, nil)

	_, err := alloc.Allocate(context.Background(), []int{7}, nil, 4*time.Hour)
	if !errors.Is(err, ErrDiscoveryUnavailable) {
		t.Errorf("Allocate() error = %v, want ErrDiscoveryUnavailable", err)
	}
}
