package workers

import (
	"context"
	"testing"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/adapters/memory"
	"scarab/contexts/opinion-markets/ranking-engine/application/commands"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
)

func TestResolutionJobClosesDueRounds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	store.SetNow(now)
	store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-1",
		Category:   "ai-agents",
		Title:      "Top AI Agents",
		ResolvesAt: now.Add(-time.Hour),
		IsActive:   true,
	}, []entities.Item{
		{RowID: "row-1", RankingID: "ranking-1", ItemID: "alpha", Name: "Alpha", CurrentScore: 50},
	})

	job := ResolutionJob{Resolver: commands.ResolveUseCase{
		Store:  store,
		Clock:  store,
		IDGen:  store,
		Params: services.DefaultResolutionParams(),
	}}
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranking, err := store.GetRanking(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranking.IsActive || ranking.ResolvedAt == nil {
		t.Fatalf("expected round closed by the sweep, got %+v", ranking)
	}

	// A second pass is a clean no-op: nothing is due until the spawned round.
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("unexpected error on repeat sweep: %v", err)
	}
}
