package commands

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

func newResolveHarness() (*memory.Store, VoteUseCase, ResolveUseCase) {
	store, voteUC := newVoteHarness()
	resolveUC := ResolveUseCase{
		Store:  store,
		Clock:  store,
		IDGen:  store,
		Params: services.DefaultResolutionParams(),
	}
	return store, voteUC, resolveUC
}

func TestResolveRankingSettlesRound(t *testing.T) {
	ctx := context.Background()
	store, voteUC, resolveUC := newResolveHarness()
	store.SeedUser(entities.User{Address: "0xaaa", ReputationScore: 50, FeeTier: entities.FeeTierNormal})
	store.SeedUser(entities.User{Address: "0xbbb", ReputationScore: 50, FeeTier: entities.FeeTierNormal})

	// Voter A nails the final order with 100 staked per item; voter B swaps
	// the top two with 50 staked per item.
	if _, err := voteUC.SubmitRanking(ctx, SubmitRankingCommand{
		Category:     "ai-agents",
		VoterAddress: "0xaaa",
		Entries: []RankingEntry{
			{ItemID: "alpha", Rank: 1, Stake: 100},
			{ItemID: "beta", Rank: 2, Stake: 100},
			{ItemID: "gamma", Rank: 3, Stake: 100},
		},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := voteUC.SubmitRanking(ctx, SubmitRankingCommand{
		Category:     "ai-agents",
		VoterAddress: "0xbbb",
		Entries: []RankingEntry{
			{ItemID: "alpha", Rank: 2, Stake: 50},
			{ItemID: "beta", Rank: 1, Stake: 50},
			{ItemID: "gamma", Rank: 3, Stake: 50},
		},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.SetNow(resolvesAt)
	outcome, err := resolveUC.ResolveRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Week != "2026-W07" {
		t.Fatalf("expected week 2026-W07, got %s", outcome.Week)
	}
	if outcome.ItemsResolved != 3 || outcome.VotersRewarded != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	// A: accuracy 1.0 x 300 stake; B: accuracy 7/9 x 150 stake.
	// 500-unit pool splits 360/140 and is fully distributed.
	if outcome.TotalDroneDistributed != 500 {
		t.Fatalf("expected 500 distributed, got %f", outcome.TotalDroneDistributed)
	}
	if !outcome.NextRankingCreated {
		t.Fatalf("expected next round spawned: %+v", outcome)
	}

	ranking, err := store.GetRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranking.IsActive || ranking.ResolvedAt == nil {
		t.Fatalf("expected ranking closed, got %+v", ranking)
	}

	resolution, found, err := store.GetResolutionByWeek(ctx, "ranking-1", "2026-W07")
	if err != nil || !found {
		t.Fatalf("expected resolution record, found=%v err=%v", found, err)
	}
	if len(resolution.FinalRankings) != 3 || resolution.FinalRankings[0].ItemID != "alpha" {
		t.Fatalf("unexpected frozen order: %+v", resolution.FinalRankings)
	}
	if resolution.FinalRankings[0].FinalScore != 96.7 || resolution.FinalRankings[1].FinalScore != 93.3 {
		t.Fatalf("unexpected final scores: %+v", resolution.FinalRankings)
	}
	if resolution.TotalVotersRewarded != 2 || resolution.AvgRewardPerVoter != 250 {
		t.Fatalf("unexpected resolution aggregates: %+v", resolution)
	}

	userA, _, err := store.GetUser(ctx, "0xaaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10 vote bonus + 360 reward; reputation 50 + 5 gain.
	if userA.DroneBalance != 370 || userA.ReputationScore != 55 {
		t.Fatalf("unexpected account for voter A: %+v", userA)
	}
	userB, _, err := store.GetUser(ctx, "0xbbb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userB.DroneBalance != 150 || userB.ReputationScore != 55 {
		t.Fatalf("unexpected account for voter B: %+v", userB)
	}

	votes, err := store.ListVotesByRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, vote := range votes {
		if vote.Accuracy == nil || vote.RewardEarned == nil {
			t.Fatalf("expected settled vote, got %+v", vote)
		}
		if vote.VoterAddress == "0xaaa" {
			if *vote.Accuracy != 1 || *vote.RewardEarned != 120 {
				t.Fatalf("unexpected settlement for voter A vote: %+v", vote)
			}
		}
		if vote.VoterAddress == "0xbbb" && *vote.RewardEarned != 46.67 {
			t.Fatalf("unexpected per-vote reward for voter B: %+v", vote)
		}
	}

	next, found, err := store.GetActiveRankingByCategory(ctx, "ai-agents")
	if err != nil || !found {
		t.Fatalf("expected spawned round, found=%v err=%v", found, err)
	}
	if !next.ResolvesAt.Equal(resolvesAt.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expected next round one interval later, got %v", next.ResolvesAt)
	}
	nextItems, err := store.ListItemsByRanking(ctx, next.RankingID)
	if err != nil || len(nextItems) != 3 {
		t.Fatalf("expected 3 spawned items, got %d err=%v", len(nextItems), err)
	}
	for _, item := range nextItems {
		if item.CurrentScore != 50 || item.CurrentRank != 0 || item.Consensus != entities.ConsensusWeak {
			t.Fatalf("expected reset item, got %+v", item)
		}
		if item.FinalRank != nil || item.VoterCount != 0 {
			t.Fatalf("expected vote-derived fields cleared, got %+v", item)
		}
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one outbox message, got %d err=%v", len(pending), err)
	}
	if pending[0].EventType != EventTypeRankingResolved {
		t.Fatalf("unexpected outbox event type: %s", pending[0].EventType)
	}
}

func TestResolveRankingWithoutVotes(t *testing.T) {
	ctx := context.Background()
	store, _, resolveUC := newResolveHarness()
	store.SetNow(resolvesAt)

	outcome, err := resolveUC.ResolveRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.TotalDroneDistributed != 0 || outcome.VotersRewarded != 0 {
		t.Fatalf("expected empty settlement, got %+v", outcome)
	}
	if outcome.ItemsResolved != 3 || !outcome.NextRankingCreated {
		t.Fatalf("round must still close and roll forward: %+v", outcome)
	}

	resolution, found, err := store.GetResolutionByWeek(ctx, "ranking-1", "2026-W07")
	if err != nil || !found {
		t.Fatalf("expected resolution record, found=%v err=%v", found, err)
	}
	if resolution.AvgRewardPerVoter != 0 {
		t.Fatalf("expected zero average reward, got %+v", resolution)
	}
}

func TestResolveRankingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, resolveUC := newResolveHarness()
	store.SetNow(resolvesAt)

	if _, err := resolveUC.ResolveRanking(ctx, "ranking-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := resolveUC.ResolveRanking(ctx, "ranking-1"); !errors.Is(err, domainerrors.ErrRankingAlreadyResolved) {
		t.Fatalf("expected already-resolved error, got %v", err)
	}

	// A second sweep finds nothing due: the spawned round is a week out.
	batch, err := resolveUC.ResolveExpiredRankings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Resolved) != 0 || len(batch.Failed) != 0 {
		t.Fatalf("expected empty sweep, got %+v", batch)
	}
}

func TestResolveExpiredRankingsSweepsDueRounds(t *testing.T) {
	ctx := context.Background()
	store, _, resolveUC := newResolveHarness()
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-2",
		Category:   "defi-protocols",
		Title:      "Top DeFi Protocols",
		ResolvesAt: resolvesAt.Add(-24 * time.Hour),
		IsActive:   true,
	}, []entities.Item{
		{RowID: "row-10", RankingID: "ranking-2", ItemID: "delta", Name: "Delta", CurrentScore: 50},
	})
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-3",
		Category:   "l2-networks",
		Title:      "Top L2 Networks",
		ResolvesAt: resolvesAt.Add(72 * time.Hour),
		IsActive:   true,
	}, nil)

	store.SetNow(resolvesAt)
	batch, err := resolveUC.ResolveExpiredRankings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Resolved) != 2 || len(batch.Failed) != 0 {
		t.Fatalf("expected both due rounds resolved, got %+v", batch)
	}
	// Due rounds come back earliest close first.
	if batch.Resolved[0].RankingID != "ranking-2" || batch.Resolved[1].RankingID != "ranking-1" {
		t.Fatalf("unexpected sweep order: %+v", batch.Resolved)
	}

	future, err := store.GetRanking(ctx, "ranking-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !future.IsActive {
		t.Fatalf("round that is not due yet must stay active: %+v", future)
	}
}

func TestResolveRankingCapsReputation(t *testing.T) {
	ctx := context.Background()
	store, voteUC, resolveUC := newResolveHarness()
	store.SeedUser(entities.User{Address: "0xelite", ReputationScore: 98, FeeTier: entities.FeeTierElite})

	if _, err := voteUC.SubmitRanking(ctx, SubmitRankingCommand{
		Category:     "ai-agents",
		VoterAddress: "0xelite",
		Entries: []RankingEntry{
			{ItemID: "alpha", Rank: 1, Stake: 100},
			{ItemID: "beta", Rank: 2, Stake: 100},
			{ItemID: "gamma", Rank: 3, Stake: 100},
		},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.SetNow(resolvesAt)
	if _, err := resolveUC.ResolveRanking(ctx, "ranking-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _, err := store.GetUser(ctx, "0xelite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ReputationScore != 100 || user.FeeTier != entities.FeeTierElite {
		t.Fatalf("expected reputation capped at 100, got %+v", user)
	}
}

func TestResolveRankingRewardsAccuracyWithoutStakeWeight(t *testing.T) {
	ctx := context.Background()
	store, _, resolveUC := newResolveHarness()
	store.SeedUser(entities.User{Address: "0xsharp", ReputationScore: 50, FeeTier: entities.FeeTierNormal})

	// An accurate vote whose stake carries no weight: the reward share rounds
	// to nothing, but the reputation gain must still apply.
	if _, err := store.UpsertVote(ctx, entities.Vote{
		VoteID:          "vote-weightless",
		RankingID:       "ranking-1",
		ItemRowID:       "row-1",
		VoterAddress:    "0xsharp",
		RankedPosition:  1,
		StakeAmount:     0,
		VoterReputation: 50,
		EffectiveWeight: 0,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.SetNow(resolvesAt)
	outcome, err := resolveUC.ResolveRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.TotalDroneDistributed != 0 || outcome.VotersRewarded != 0 {
		t.Fatalf("weightless vote must not draw from the pool, got %+v", outcome)
	}

	user, _, err := store.GetUser(ctx, "0xsharp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ReputationScore != 55 {
		t.Fatalf("accurate voter must gain reputation regardless of stake, got %+v", user)
	}
}

func TestResolveRankingSkipsMissingVoterAccounts(t *testing.T) {
	ctx := context.Background()
	store, _, resolveUC := newResolveHarness()

	// A vote with no backing user record: settlement must skip the account
	// writes without failing the round.
	if _, err := store.UpsertVote(ctx, entities.Vote{
		VoteID:          "vote-orphan",
		RankingID:       "ranking-1",
		ItemRowID:       "row-1",
		VoterAddress:    "0xghost",
		RankedPosition:  1,
		StakeAmount:     100,
		VoterReputation: 30,
		EffectiveWeight: 72,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.SetNow(resolvesAt)
	outcome, err := resolveUC.ResolveRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.ItemsResolved != 3 {
		t.Fatalf("expected round closed despite orphan vote, got %+v", outcome)
	}
	if _, found, err := store.GetUser(ctx, "0xghost"); err != nil || found {
		t.Fatalf("settlement must not create accounts, found=%v err=%v", found, err)
	}
}
