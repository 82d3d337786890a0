// Package preset manages the vetted channel list and its popularity
// ranking.
//
// A ChannelPreset binds a display name and broadcaster network to a
// channel number on one tuner family (cable or satellite). Automated
// tuning only ever uses channels that have a preset; the game
// allocator refuses raw channel numbers without one.
//
// Every successful tune bumps the preset's usage counter, and the
// Ranker exposes a stable popularity order (usage, recency, operator
// position) that biases both the UI and the allocator's tie-breaking.
package preset
