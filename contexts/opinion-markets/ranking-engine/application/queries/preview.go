package queries

import (
	"context"
	"sort"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
)

// VoterPreview is one voter's projected settlement under the current vote set.
type VoterPreview struct {
	Address     string
	AvgAccuracy float64
	TotalStake  float64
	Eligible    bool
	Reward      float64
}

// ResolutionPreview is a read-only rehearsal of closing one round: the final
// order and payouts it would produce right now, with nothing persisted.
type ResolutionPreview struct {
	RankingID             string
	Category              string
	Week                  string
	ResolvesAt            time.Time
	FinalRankings         []entities.FinalRankingEntry
	Voters                []VoterPreview
	TotalDroneDistributed float64
	TotalVotersRewarded   int
}

type PreviewQueries struct {
	Rankings ports.RankingRepository
	Votes    ports.VoteRepository
	Clock    ports.Clock
	Params   services.ResolutionParams
}

// PreviewResolution projects what resolving the ranking would settle to
// without writing anything.
func (q PreviewQueries) PreviewResolution(ctx context.Context, rankingID string) (ResolutionPreview, error) {
	ranking, err := q.Rankings.GetRanking(ctx, rankingID)
	if err != nil {
		return ResolutionPreview{}, err
	}
	if !ranking.IsActive || ranking.ResolvedAt != nil {
		return ResolutionPreview{}, domainerrors.ErrRankingAlreadyResolved
	}
	return q.preview(ctx, ranking)
}

// PreviewExpired projects every due ranking's settlement, mirroring the batch
// resolver's scope.
func (q PreviewQueries) PreviewExpired(ctx context.Context) ([]ResolutionPreview, error) {
	now := time.Now().UTC()
	if q.Clock != nil {
		now = q.Clock.Now().UTC()
	}
	due, err := q.Rankings.ListDueRankings(ctx, now)
	if err != nil {
		return nil, err
	}
	previews := make([]ResolutionPreview, 0, len(due))
	for _, ranking := range due {
		preview, err := q.preview(ctx, ranking)
		if err != nil {
			return nil, err
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

func (q PreviewQueries) preview(ctx context.Context, ranking entities.Ranking) (ResolutionPreview, error) {
	items, err := q.Rankings.ListItemsByRanking(ctx, ranking.RankingID)
	if err != nil {
		return ResolutionPreview{}, err
	}
	votes, err := q.Votes.ListVotesByRanking(ctx, ranking.RankingID)
	if err != nil {
		return ResolutionPreview{}, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CurrentScore > items[j].CurrentScore
	})
	finalRankings := make([]entities.FinalRankingEntry, 0, len(items))
	finalRankByItem := make(map[string]int, len(items))
	for i, item := range items {
		finalRankings = append(finalRankings, entities.FinalRankingEntry{
			ItemID:     item.ItemID,
			Name:       item.Name,
			FinalRank:  i + 1,
			FinalScore: item.CurrentScore,
		})
		finalRankByItem[item.RowID] = i + 1
	}

	params := q.Params.Normalize()
	scores := services.ScoreVoters(votes, finalRankByItem, len(items))
	shares := services.DistributeRewards(scores, params)

	voters := make([]VoterPreview, 0, len(scores))
	totalDistributed := 0.0
	votersRewarded := 0
	for i, score := range scores {
		share := shares[i]
		totalDistributed += share.Reward
		if share.Eligible {
			votersRewarded++
		}
		voters = append(voters, VoterPreview{
			Address:     score.Address,
			AvgAccuracy: services.Round3(score.AvgAccuracy),
			TotalStake:  score.TotalStake,
			Eligible:    share.Eligible,
			Reward:      share.Reward,
		})
	}

	return ResolutionPreview{
		RankingID:             ranking.RankingID,
		Category:              ranking.Category,
		Week:                  services.ISOWeekTag(ranking.ResolvesAt),
		ResolvesAt:            ranking.ResolvesAt,
		FinalRankings:         finalRankings,
		Voters:                voters,
		TotalDroneDistributed: totalDistributed,
		TotalVotersRewarded:   votersRewarded,
	}, nil
}
