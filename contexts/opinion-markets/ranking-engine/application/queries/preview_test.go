package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/adapters/memory"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
)

func newPreviewHarness() (*memory.Store, PreviewQueries) {
	store := memory.NewStore()
	store.SetNow(queryNow)
	return store, PreviewQueries{
		Rankings: store,
		Votes:    store,
		Clock:    store,
		Params:   services.DefaultResolutionParams(),
	}
}

func seedPreviewRound(store *memory.Store) {
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-1",
		Category:   "ai-agents",
		ResolvesAt: queryNow,
		IsActive:   true,
	}, []entities.Item{
		{RowID: "row-1", RankingID: "ranking-1", ItemID: "alpha", Name: "Alpha", CurrentScore: 90, CurrentRank: 1},
		{RowID: "row-2", RankingID: "ranking-1", ItemID: "beta", Name: "Beta", CurrentScore: 80, CurrentRank: 2},
	})
	ctx := context.Background()
	_, _ = store.UpsertVote(ctx, entities.Vote{
		VoteID: "v1", RankingID: "ranking-1", ItemRowID: "row-1",
		VoterAddress: "0xaaa", RankedPosition: 1, StakeAmount: 100, EffectiveWeight: 130,
	})
	_, _ = store.UpsertVote(ctx, entities.Vote{
		VoteID: "v2", RankingID: "ranking-1", ItemRowID: "row-2",
		VoterAddress: "0xaaa", RankedPosition: 2, StakeAmount: 100, EffectiveWeight: 130,
	})
}

func TestPreviewResolutionProjectsSettlement(t *testing.T) {
	ctx := context.Background()
	store, q := newPreviewHarness()
	seedPreviewRound(store)

	preview, err := q.PreviewResolution(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.Week != "2026-W07" || len(preview.FinalRankings) != 2 {
		t.Fatalf("unexpected preview header: %+v", preview)
	}
	if preview.FinalRankings[0].ItemID != "alpha" || preview.FinalRankings[0].FinalRank != 1 {
		t.Fatalf("unexpected projected order: %+v", preview.FinalRankings)
	}
	if len(preview.Voters) != 1 {
		t.Fatalf("expected 1 voter, got %d", len(preview.Voters))
	}
	voter := preview.Voters[0]
	if voter.Address != "0xaaa" || voter.AvgAccuracy != 1 || !voter.Eligible {
		t.Fatalf("unexpected voter projection: %+v", voter)
	}
	// Sole eligible voter takes the whole pool.
	if voter.Reward != 500 || preview.TotalDroneDistributed != 500 || preview.TotalVotersRewarded != 1 {
		t.Fatalf("unexpected payout projection: %+v", preview)
	}
}

func TestPreviewResolutionDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store, q := newPreviewHarness()
	seedPreviewRound(store)

	if _, err := q.PreviewResolution(ctx, "ranking-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranking, err := store.GetRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ranking.IsActive || ranking.ResolvedAt != nil {
		t.Fatalf("preview must not close the round: %+v", ranking)
	}
	items, err := store.ListItemsByRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range items {
		if item.FinalRank != nil || item.FinalScore != nil {
			t.Fatalf("preview must not freeze items: %+v", item)
		}
	}
	votes, err := store.ListVotesByRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, vote := range votes {
		if vote.Accuracy != nil || vote.RewardEarned != nil {
			t.Fatalf("preview must not settle votes: %+v", vote)
		}
	}
	if count, err := store.CountResolutions(ctx); err != nil || count != 0 {
		t.Fatalf("preview must not persist resolutions, count=%d err=%v", count, err)
	}
}

func TestPreviewResolutionRejectsClosedRound(t *testing.T) {
	store, q := newPreviewHarness()
	resolvedAt := queryNow
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-closed",
		Category:   "ai-agents",
		ResolvesAt: queryNow,
		ResolvedAt: &resolvedAt,
	}, nil)

	if _, err := q.PreviewResolution(context.Background(), "ranking-closed"); !errors.Is(err, domainerrors.ErrRankingAlreadyResolved) {
		t.Fatalf("expected already-resolved error, got %v", err)
	}
}

func TestPreviewExpiredCoversDueRoundsOnly(t *testing.T) {
	ctx := context.Background()
	store, q := newPreviewHarness()
	seedPreviewRound(store)
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-future",
		Category:   "defi-protocols",
		ResolvesAt: queryNow.Add(72 * time.Hour),
		IsActive:   true,
	}, nil)

	previews, err := q.PreviewExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(previews) != 1 || previews[0].RankingID != "ranking-1" {
		t.Fatalf("expected only the due round projected, got %+v", previews)
	}
}
