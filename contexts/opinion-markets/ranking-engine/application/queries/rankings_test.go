package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/adapters/memory"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
)

var queryNow = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

func newQueryHarness() (*memory.Store, RankingQueries) {
	store := memory.NewStore()
	store.SetNow(queryNow)
	return store, RankingQueries{
		Rankings:    store,
		Votes:       store,
		Resolutions: store,
		Clock:       store,
	}
}

func TestCurrentRankingSortsByLiveRank(t *testing.T) {
	ctx := context.Background()
	store, q := newQueryHarness()
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-1",
		Category:   "ai-agents",
		ResolvesAt: queryNow.Add(48 * time.Hour),
		IsActive:   true,
	}, []entities.Item{
		{RowID: "row-1", RankingID: "ranking-1", ItemID: "beta", CurrentScore: 80, CurrentRank: 2},
		{RowID: "row-2", RankingID: "ranking-1", ItemID: "alpha", CurrentScore: 90, CurrentRank: 1},
		{RowID: "row-3", RankingID: "ranking-1", ItemID: "gamma", CurrentScore: 50, CurrentRank: 0},
	})

	view, err := q.CurrentRanking(ctx, "ai-agents")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Week != "2026-W07" {
		t.Fatalf("expected week 2026-W07, got %s", view.Week)
	}
	if len(view.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(view.Items))
	}
	// Ranked items first, unvoted (rank 0) items last.
	if view.Items[0].ItemID != "alpha" || view.Items[1].ItemID != "beta" || view.Items[2].ItemID != "gamma" {
		t.Fatalf("unexpected item order: %+v", view.Items)
	}
}

func TestCurrentRankingUnknownCategory(t *testing.T) {
	_, q := newQueryHarness()
	if _, err := q.CurrentRanking(context.Background(), "unknown"); !errors.Is(err, domainerrors.ErrRankingNotFound) {
		t.Fatalf("expected ranking not found, got %v", err)
	}
}

func seedResolvedRounds(store *memory.Store) {
	resolvedAt := queryNow
	earlier := queryNow.Add(-7 * 24 * time.Hour)
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-old",
		Category:   "ai-agents",
		Title:      "Top AI Agents",
		ResolvesAt: earlier,
		ResolvedAt: &earlier,
	}, nil)
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-new",
		Category:   "ai-agents",
		Title:      "Top AI Agents",
		ResolvesAt: queryNow,
		ResolvedAt: &resolvedAt,
	}, nil)
	ctx := context.Background()
	_ = store.SaveResolution(ctx, entities.Resolution{
		ResolutionID: "res-old",
		RankingID:    "ranking-old",
		Week:         "2026-W06",
		ResolvedAt:   earlier,
	})
	_ = store.SaveResolution(ctx, entities.Resolution{
		ResolutionID:          "res-new",
		RankingID:             "ranking-new",
		Week:                  "2026-W07",
		TotalDroneDistributed: 500,
		ResolvedAt:            resolvedAt,
	})
}

func TestResolvedRankingSelectsWeek(t *testing.T) {
	ctx := context.Background()
	store, q := newQueryHarness()
	seedResolvedRounds(store)

	latest, err := q.ResolvedRanking(ctx, "ai-agents", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Resolution.Week != "2026-W07" || latest.Ranking.RankingID != "ranking-new" {
		t.Fatalf("expected latest resolution, got %+v", latest)
	}

	byAlias, err := q.ResolvedRanking(ctx, "ai-agents", "latest")
	if err != nil || byAlias.Resolution.Week != "2026-W07" {
		t.Fatalf("expected latest alias to match, got %+v err=%v", byAlias, err)
	}

	byWeek, err := q.ResolvedRanking(ctx, "ai-agents", "2026-W06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byWeek.Resolution.Week != "2026-W06" || byWeek.Ranking.RankingID != "ranking-old" {
		t.Fatalf("expected week-selected resolution, got %+v", byWeek)
	}

	if _, err := q.ResolvedRanking(ctx, "ai-agents", "2025-W01"); !errors.Is(err, domainerrors.ErrResolutionNotFound) {
		t.Fatalf("expected resolution not found, got %v", err)
	}
	if _, err := q.ResolvedRanking(ctx, "unknown", ""); !errors.Is(err, domainerrors.ErrRankingNotFound) {
		t.Fatalf("expected ranking not found, got %v", err)
	}
}

func TestHistoryOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, q := newQueryHarness()
	seedResolvedRounds(store)

	entries, err := q.History(ctx, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].Resolution.Week != "2026-W07" || entries[1].Resolution.Week != "2026-W06" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].Category != "ai-agents" || entries[0].Title != "Top AI Agents" {
		t.Fatalf("expected ranking header joined in, got %+v", entries[0])
	}

	limited, err := q.History(ctx, "ai-agents", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit respected, got %d err=%v", len(limited), err)
	}
}

func TestVoterPredictions(t *testing.T) {
	ctx := context.Background()
	store, q := newQueryHarness()
	resolvedAt := queryNow
	finalRank := 2
	accuracy := 0.667
	reward := 46.67
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-1",
		Category:   "ai-agents",
		Title:      "Top AI Agents",
		ResolvesAt: queryNow,
		ResolvedAt: &resolvedAt,
	}, []entities.Item{
		{RowID: "row-1", RankingID: "ranking-1", ItemID: "alpha", Name: "Alpha", FinalRank: &finalRank},
	})
	if _, err := store.UpsertVote(ctx, entities.Vote{
		VoteID:         "vote-1",
		RankingID:      "ranking-1",
		ItemRowID:      "row-1",
		VoterAddress:   "0xvoter",
		RankedPosition: 1,
		StakeAmount:    50,
		Accuracy:       &accuracy,
		RewardEarned:   &reward,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views, err := q.VoterPredictions(ctx, "  0xVOTER  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(views))
	}
	view := views[0]
	if view.ItemID != "alpha" || view.ItemName != "Alpha" || view.Category != "ai-agents" {
		t.Fatalf("expected joined item/ranking fields, got %+v", view)
	}
	if view.RankedPosition != 1 || view.FinalRank == nil || *view.FinalRank != 2 {
		t.Fatalf("unexpected prediction positions: %+v", view)
	}
	if !view.Resolved || view.Accuracy == nil || *view.Accuracy != 0.667 || *view.RewardEarned != 46.67 {
		t.Fatalf("unexpected settlement fields: %+v", view)
	}

	if _, err := q.VoterPredictions(ctx, "   "); !errors.Is(err, domainerrors.ErrInvalidVoteInput) {
		t.Fatalf("expected invalid input for blank address, got %v", err)
	}
}

func TestStatusCounters(t *testing.T) {
	ctx := context.Background()
	store, q := newQueryHarness()
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-due",
		Category:   "ai-agents",
		ResolvesAt: queryNow.Add(-time.Hour),
		IsActive:   true,
	}, nil)
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-future",
		Category:   "defi-protocols",
		ResolvesAt: queryNow.Add(72 * time.Hour),
		IsActive:   true,
	}, nil)
	_, _ = store.UpsertVote(ctx, entities.Vote{VoteID: "v1", RankingID: "ranking-due", ItemRowID: "r1", VoterAddress: "0xaaa", RankedPosition: 1, StakeAmount: 100})
	_, _ = store.UpsertVote(ctx, entities.Vote{VoteID: "v2", RankingID: "ranking-due", ItemRowID: "r2", VoterAddress: "0xbbb", RankedPosition: 2, StakeAmount: 50})
	_ = store.SaveResolution(ctx, entities.Resolution{
		ResolutionID: "res-1",
		RankingID:    "ranking-due",
		Week:         "2026-W06",
		ResolvedAt:   queryNow.Add(-7 * 24 * time.Hour),
	})

	status, err := q.Status(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ActiveRankings != 2 || status.DueRankings != 1 {
		t.Fatalf("unexpected ranking counters: %+v", status)
	}
	if status.TotalResolutions != 1 || status.UniqueVoters != 2 || status.TotalStaked != 150 {
		t.Fatalf("unexpected volume counters: %+v", status)
	}
	if status.NextResolutionAt == nil || !status.NextResolutionAt.Equal(queryNow.Add(-time.Hour)) {
		t.Fatalf("expected earliest active round as horizon, got %+v", status.NextResolutionAt)
	}
	if status.LastResolvedWeek != "2026-W06" || status.LastResolvedAt == nil {
		t.Fatalf("unexpected last resolution fields: %+v", status)
	}
}
