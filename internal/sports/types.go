package sports

import "time"

// ProviderType identifies how a broadcast reaches the venue.
type ProviderType string

// Provider types.
const (
	ProviderCable     ProviderType = "cable"
	ProviderSatellite ProviderType = "satellite"
	ProviderStreaming ProviderType = "streaming"
)

// Team is the listing service's team shape.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChannelInfo describes one broadcast of a game: the network carrying
// it, the provider type, and either a channel number (cable/satellite)
// or an app identifier (streaming).
type ChannelInfo struct {
	Network string       `json:"network"`
	Type    ProviderType `json:"type"`
	Channel string       `json:"channel,omitempty"`
	AppID   string       `json:"app_id,omitempty"`
}

// GameListing is one game as reported by the listing service. Fetched
// per discovery cycle and never persisted; the listing service owns
// this data.
type GameListing struct {
	ID        string        `json:"id"`
	League    string        `json:"league"`
	HomeTeam  Team          `json:"home_team"`
	AwayTeam  Team          `json:"away_team"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Channels  []ChannelInfo `json:"channels"`
}

// Title renders the matchup for logs and events, e.g. "Bulls @ Knicks".
func (g GameListing) Title() string {
	return g.AwayTeam.Name + " @ " + g.HomeTeam.Name
}

// listResponse is the payload returned by the listing service.
type listResponse struct {
	Games []GameListing `json:"games"`
}
