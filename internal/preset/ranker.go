package preset

import (
	"context"
	"sort"
	"time"
)

// Logger is the minimal logging interface this package needs.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Ranker orders presets by popularity and records their use.
//
// Ranking order: usage count descending, then most recently used, then
// operator position. The sort is stable, so presets tied on all three
// keep their stored order.
type Ranker struct {
	repo   Repository
	logger Logger
}

// NewRanker creates a Ranker. logger may be nil.
func NewRanker(repo Repository, logger Logger) *Ranker {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ranker{repo: repo, logger: logger}
}

// Ranked returns all presets in ranking order.
func (r *Ranker) Ranked(ctx context.Context) ([]ChannelPreset, error) {
	presets, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	Rank(presets)
	return presets, nil
}

// RankedByDeviceType returns one tuner family's presets in ranking
// order. The allocator uses this to break ties between candidate
// channels for the same game.
func (r *Ranker) RankedByDeviceType(ctx context.Context, deviceType DeviceType) ([]ChannelPreset, error) {
	presets, err := r.repo.ListByDeviceType(ctx, deviceType)
	if err != nil {
		return nil, err
	}
	Rank(presets)
	return presets, nil
}

// RecordUse increments the preset's usage counter and stamps the time.
// A failed record never propagates: the tune that triggered it already
// happened, and a ranking hiccup is not worth surfacing as a fault.
func (r *Ranker) RecordUse(ctx context.Context, id string) {
	if err := r.repo.RecordUse(ctx, id, time.Now()); err != nil {
		r.logger.Warn("recording preset use failed", "preset_id", id, "error", err)
	}
}

// Rank sorts presets in place: usage count descending, then last used
// descending, then operator position ascending. Stable, so equal
// presets keep their incoming order.
func Rank(presets []ChannelPreset) {
	sort.SliceStable(presets, func(i, j int) bool {
		a, b := presets[i], presets[j]
		if a.UsageCount != b.UsageCount {
			return a.UsageCount > b.UsageCount
		}
		at, bt := lastUsed(a), lastUsed(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.Position < b.Position
	})
}

// lastUsed treats a never-used preset as used at the zero time, so it
// ranks behind anything that has actually been tuned.
func lastUsed(p ChannelPreset) time.Time {
	if p.LastUsedAt == nil {
		return time.Time{}
	}
	return *p.LastUsedAt
}
