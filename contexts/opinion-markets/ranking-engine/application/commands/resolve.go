package commands

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	application "scarab/contexts/opinion-markets/ranking-engine/application"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
)

// ResolutionOutcome summarizes one closed round for the trigger response.
type ResolutionOutcome struct {
	RankingID             string
	Category              string
	Week                  string
	ItemsResolved         int
	VotersRewarded        int
	TotalDroneDistributed float64
	NextRankingCreated    bool
}

// RankingFailure carries one ranking's resolution error without aborting the
// rest of the batch.
type RankingFailure struct {
	RankingID string
	Category  string
	Err       error
}

type BatchResult struct {
	Resolved []ResolutionOutcome
	Failed   []RankingFailure
}

// ResolveUseCase closes out due rounds: it freezes the final order, scores
// voter accuracy, distributes the reward pool, adjusts reputation, persists
// the resolution record, and rolls the ranking into its next round. One
// round's steps run inside a single store transaction.
type ResolveUseCase struct {
	Store  ports.Store
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Params services.ResolutionParams
	Logger *slog.Logger
}

// ResolveExpiredRankings resolves every active ranking whose close time has
// passed. Each ranking is resolved independently; a failure is recorded and
// left for the next scheduled run instead of aborting siblings.
func (uc ResolveUseCase) ResolveExpiredRankings(ctx context.Context) (BatchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()

	due, err := uc.Store.ListDueRankings(ctx, now)
	if err != nil {
		logger.Error("due ranking listing failed",
			"event", "resolution_list_due_failed",
			"module", "opinion-markets/ranking-engine",
			"layer", "application",
			"error", err.Error(),
		)
		return BatchResult{}, err
	}

	result := BatchResult{}
	for _, ranking := range due {
		outcome, err := uc.ResolveRanking(ctx, ranking.RankingID)
		if err != nil {
			logger.Error("ranking resolution failed",
				"event", "resolution_ranking_failed",
				"module", "opinion-markets/ranking-engine",
				"layer", "application",
				"ranking_id", ranking.RankingID,
				"category", ranking.Category,
				"error", err.Error(),
			)
			result.Failed = append(result.Failed, RankingFailure{
				RankingID: ranking.RankingID,
				Category:  ranking.Category,
				Err:       err,
			})
			continue
		}
		logger.Info("ranking resolved",
			"event", "resolution_ranking_resolved",
			"module", "opinion-markets/ranking-engine",
			"layer", "application",
			"ranking_id", outcome.RankingID,
			"category", outcome.Category,
			"week", outcome.Week,
			"voters_rewarded", outcome.VotersRewarded,
			"drone_distributed", outcome.TotalDroneDistributed,
			"next_ranking_created", outcome.NextRankingCreated,
		)
		result.Resolved = append(result.Resolved, outcome)
	}
	return result, nil
}

// ResolveRanking closes one round inside a single transaction.
func (uc ResolveUseCase) ResolveRanking(ctx context.Context, rankingID string) (ResolutionOutcome, error) {
	var outcome ResolutionOutcome
	err := uc.Store.Transact(ctx, func(tx ports.Store) error {
		resolved, err := uc.resolveInTx(ctx, tx, rankingID)
		if err != nil {
			return err
		}
		outcome = resolved
		return nil
	})
	return outcome, err
}

func (uc ResolveUseCase) resolveInTx(ctx context.Context, tx ports.Store, rankingID string) (ResolutionOutcome, error) {
	now := uc.now()
	params := uc.Params.Normalize()

	ranking, err := tx.GetRanking(ctx, rankingID)
	if err != nil {
		return ResolutionOutcome{}, err
	}
	if !ranking.IsActive || ranking.ResolvedAt != nil {
		return ResolutionOutcome{}, domainerrors.ErrRankingAlreadyResolved
	}
	week := services.ISOWeekTag(ranking.ResolvesAt)

	items, err := tx.ListItemsByRanking(ctx, ranking.RankingID)
	if err != nil {
		return ResolutionOutcome{}, err
	}
	votes, err := tx.ListVotesByRanking(ctx, ranking.RankingID)
	if err != nil {
		return ResolutionOutcome{}, err
	}

	// Freeze the final order: live scores become final, ties keep input order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CurrentScore > items[j].CurrentScore
	})
	finalRankings := make([]entities.FinalRankingEntry, 0, len(items))
	finalRankByItem := make(map[string]int, len(items))
	for i := range items {
		finalRank := i + 1
		finalScore := items[i].CurrentScore
		items[i].FinalRank = &finalRank
		items[i].FinalScore = &finalScore
		items[i].UpdatedAt = now
		if err := tx.SaveItem(ctx, items[i]); err != nil {
			return ResolutionOutcome{}, err
		}
		finalRankings = append(finalRankings, entities.FinalRankingEntry{
			ItemID:     items[i].ItemID,
			Name:       items[i].Name,
			FinalRank:  finalRank,
			FinalScore: finalScore,
		})
		finalRankByItem[items[i].RowID] = finalRank
	}

	scores := services.ScoreVoters(votes, finalRankByItem, len(items))
	shares := services.DistributeRewards(scores, params)

	totalDistributed := 0.0
	votersRewarded := 0
	for i, score := range scores {
		share := shares[i]
		totalDistributed += share.Reward
		if share.Eligible {
			votersRewarded++
		}

		rewardPerVote := 0.0
		if len(score.Votes) > 0 {
			rewardPerVote = share.Reward / float64(len(score.Votes))
		}
		for _, vote := range score.Votes {
			finalRank, ok := finalRankByItem[vote.ItemRowID]
			if !ok {
				finalRank = len(items)
			}
			accuracy := services.VoteAccuracy(vote.RankedPosition, finalRank, len(items))
			if err := tx.SetVoteResolution(ctx, vote.VoteID, services.Round3(accuracy), services.Round2(rewardPerVote)); err != nil {
				return ResolutionOutcome{}, err
			}
		}

		accuracyMet := score.AvgAccuracy >= params.AccuracyThreshold
		delta := services.ReputationDelta(accuracyMet, params)
		if _, err := tx.AdjustReputation(ctx, score.Address, delta); err != nil {
			if errors.Is(err, domainerrors.ErrUserNotFound) {
				continue
			}
			return ResolutionOutcome{}, err
		}
		if err := tx.IncrementBalance(ctx, score.Address, share.Reward); err != nil {
			return ResolutionOutcome{}, err
		}
	}

	avgReward := 0.0
	if votersRewarded > 0 {
		avgReward = totalDistributed / float64(votersRewarded)
	}
	resolutionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ResolutionOutcome{}, err
	}
	if err := tx.SaveResolution(ctx, entities.Resolution{
		ResolutionID:          resolutionID,
		RankingID:             ranking.RankingID,
		Week:                  week,
		FinalRankings:         finalRankings,
		TotalDroneDistributed: totalDistributed,
		TotalVotersRewarded:   votersRewarded,
		AvgRewardPerVoter:     avgReward,
		ResolvedAt:            now,
	}); err != nil {
		return ResolutionOutcome{}, err
	}

	ranking.IsActive = false
	ranking.ResolvedAt = &now
	ranking.UpdatedAt = now
	if err := tx.SaveRanking(ctx, ranking); err != nil {
		return ResolutionOutcome{}, err
	}

	nextCreated, err := uc.spawnNextRound(ctx, tx, ranking, items, params, now)
	if err != nil {
		return ResolutionOutcome{}, err
	}

	if err := uc.appendResolvedEvent(ctx, tx, ranking, week, totalDistributed, votersRewarded, nextCreated, now); err != nil {
		return ResolutionOutcome{}, err
	}

	return ResolutionOutcome{
		RankingID:             ranking.RankingID,
		Category:              ranking.Category,
		Week:                  week,
		ItemsResolved:         len(finalRankings),
		VotersRewarded:        votersRewarded,
		TotalDroneDistributed: totalDistributed,
		NextRankingCreated:    nextCreated,
	}, nil
}

// spawnNextRound rolls the category forward one interval. The check-then-act
// here is backed by the store's (category, resolves_at) uniqueness, so a
// concurrent duplicate insert surfaces as created=false instead of a second
// active round.
func (uc ResolveUseCase) spawnNextRound(
	ctx context.Context,
	tx ports.Store,
	ranking entities.Ranking,
	items []entities.Item,
	params services.ResolutionParams,
	now time.Time,
) (bool, error) {
	exists, err := tx.HasActiveRankingSince(ctx, ranking.Category, ranking.ResolvesAt)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	nextID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return false, err
	}
	nextItems := make([]entities.Item, 0, len(items))
	for _, item := range items {
		rowID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return false, err
		}
		nextItems = append(nextItems, services.SpawnItem(item, nextID, rowID, now))
	}
	return tx.CreateRanking(ctx, entities.Ranking{
		RankingID:   nextID,
		Category:    ranking.Category,
		Title:       ranking.Title,
		Description: ranking.Description,
		ResolvesAt:  ranking.ResolvesAt.Add(params.RoundInterval),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nextItems)
}

func (uc ResolveUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
