// Package sports discovers live games and allocates them to outputs.
//
// The Client queries an external game-listing service; the Allocator
// filters listings to the scheduling window, picks each game's
// broadcast by provider priority, and resolves it to a vetted
// ChannelPreset. Games without a vetted preset are dropped: automated
// tuning never uses a raw channel number straight from a listing.
//
// The listing service is treated as unreliable. Discovery failure is a
// degraded mode (static channel mappings still apply), never a reason
// to abandon a schedule's power and routing steps.
package sports
