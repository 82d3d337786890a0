package preset

import (
	"context"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestRank_UsageBeatsRecency(t *testing.T) {
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	// Both used just now; the five-use preset must come first.
	presets := []ChannelPreset{
		{ID: "once", UsageCount: 1, LastUsedAt: timePtr(now)},
		{ID: "often", UsageCount: 5, LastUsedAt: timePtr(now)},
	}

	Rank(presets)

	if presets[0].ID != "often" {
		t.Errorf("first = %q, want the more-used preset ranked first", presets[0].ID)
	}
}

func TestRank_RecencyBreaksUsageTies(t *testing.T) {
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	presets := []ChannelPreset{
		{ID: "stale", UsageCount: 3, LastUsedAt: timePtr(now.Add(-48 * time.Hour))},
		{ID: "fresh", UsageCount: 3, LastUsedAt: timePtr(now)},
	}

	Rank(presets)

	if presets[0].ID != "fresh" {
		t.Errorf("first = %q, want the more recent preset on equal usage", presets[0].ID)
	}
}

func TestRank_PositionBreaksFullTies(t *testing.T) {
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	presets := []ChannelPreset{
		{ID: "third", UsageCount: 2, LastUsedAt: timePtr(now), Position: 3},
		{ID: "first", UsageCount: 2, LastUsedAt: timePtr(now), Position: 1},
		{ID: "second", UsageCount: 2, LastUsedAt: timePtr(now), Position: 2},
	}

	Rank(presets)

	want := []string{"first", "second", "third"}
	for i, id := range want {
		if presets[i].ID != id {
			t.Errorf("rank[%d] = %q, want %q", i, presets[i].ID, id)
		}
	}
}

func TestRank_NeverUsedRanksLast(t *testing.T) {
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	presets := []ChannelPreset{
		{ID: "new", UsageCount: 0, LastUsedAt: nil},
		{ID: "used", UsageCount: 1, LastUsedAt: timePtr(now)},
	}

	Rank(presets)

	if presets[1].ID != "new" {
		t.Errorf("last = %q, want the never-used preset", presets[1].ID)
	}
}

func TestRank_Stable(t *testing.T) {
	// Identical on every key: incoming order must survive.
	presets := []ChannelPreset{
		{ID: "a", UsageCount: 1, Position: 1},
		{ID: "b", UsageCount: 1, Position: 1},
		{ID: "c", UsageCount: 1, Position: 1},
	}

	Rank(presets)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if presets[i].ID != id {
			t.Errorf("rank[%d] = %q, want %q (sort must be stable)", i, presets[i].ID, id)
		}
	}
}

func TestRanker_RankedFromStore(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	ranker := NewRanker(repo, nil)

	seed := []*ChannelPreset{
		testPreset("espn", "ESPN", "206"),
		testPreset("tnt", "TNT", "245"),
		testPreset("abc", "ABC", "7"),
	}
	for _, p := range seed {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create(%s) error: %v", p.ID, err)
		}
	}

	// Two tunes for TNT, one for ABC, none for ESPN.
	ranker.RecordUse(ctx, "tnt")
	ranker.RecordUse(ctx, "tnt")
	ranker.RecordUse(ctx, "abc")

	ranked, err := ranker.Ranked(ctx)
	if err != nil {
		t.Fatalf("Ranked() error: %v", err)
	}

	want := []string{"tnt", "abc", "espn"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("rank[%d] = %q, want %q", i, ranked[i].ID, id)
		}
	}
}

func TestRanker_RecordUseSwallowsErrors(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ranker := NewRanker(repo, nil)

	// Unknown preset: must log and carry on, not panic or propagate.
	ranker.RecordUse(context.Background(), "ghost")
}
