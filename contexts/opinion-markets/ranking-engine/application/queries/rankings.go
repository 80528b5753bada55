package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
)

// RankingView is the read model for one round: header plus its items in live
// rank order.
type RankingView struct {
	Ranking entities.Ranking
	Items   []entities.Item
	Week    string
}

// ResolvedView is a settled round: the frozen final order plus its payout
// bookkeeping.
type ResolvedView struct {
	Ranking    entities.Ranking
	Resolution entities.Resolution
}

// HistoryEntry is one row of the cross-category resolution archive.
type HistoryEntry struct {
	Resolution entities.Resolution
	Category   string
	Title      string
}

// PredictionView is one vote in a voter's history, settled or still live.
type PredictionView struct {
	Category       string
	Title          string
	ItemID         string
	ItemName       string
	RankedPosition int
	FinalRank      *int
	StakeAmount    float64
	Accuracy       *float64
	RewardEarned   *float64
	Resolved       bool
	CreatedAt      time.Time
}

// StatusView summarizes engine state for operators.
type StatusView struct {
	ActiveRankings   int
	DueRankings      int
	TotalResolutions int
	UniqueVoters     int
	TotalStaked      float64
	NextResolutionAt *time.Time
	LastResolvedWeek string
	LastResolvedAt   *time.Time
}

type RankingQueries struct {
	Rankings    ports.RankingRepository
	Votes       ports.VoteRepository
	Resolutions ports.ResolutionRepository
	Clock       ports.Clock
}

// CurrentRanking returns the category's active round with items sorted by
// live rank.
func (q RankingQueries) CurrentRanking(ctx context.Context, category string) (RankingView, error) {
	ranking, found, err := q.Rankings.GetActiveRankingByCategory(ctx, strings.TrimSpace(category))
	if err != nil {
		return RankingView{}, err
	}
	if !found {
		return RankingView{}, domainerrors.ErrRankingNotFound
	}
	items, err := q.Rankings.ListItemsByRanking(ctx, ranking.RankingID)
	if err != nil {
		return RankingView{}, err
	}
	sortItemsByRank(items)
	return RankingView{
		Ranking: ranking,
		Items:   items,
		Week:    services.ISOWeekTag(ranking.ResolvesAt),
	}, nil
}

// ResolvedRanking returns a settled round for the category. week is an ISO
// tag such as "2026-W07"; empty or "latest" selects the most recent
// resolution.
func (q RankingQueries) ResolvedRanking(ctx context.Context, category string, week string) (ResolvedView, error) {
	category = strings.TrimSpace(category)
	week = strings.TrimSpace(week)

	_, found, err := q.Rankings.GetLatestRankingByCategory(ctx, category)
	if err != nil {
		return ResolvedView{}, err
	}
	if !found {
		return ResolvedView{}, domainerrors.ErrRankingNotFound
	}

	records, err := q.Resolutions.ListResolutions(ctx, category, 0)
	if err != nil {
		return ResolvedView{}, err
	}
	if len(records) == 0 {
		return ResolvedView{}, domainerrors.ErrResolutionNotFound
	}
	if week == "" || strings.EqualFold(week, "latest") {
		record := records[0]
		return q.resolvedView(ctx, record)
	}
	for _, record := range records {
		if record.Resolution.Week == week {
			return q.resolvedView(ctx, record)
		}
	}
	return ResolvedView{}, domainerrors.ErrResolutionNotFound
}

func (q RankingQueries) resolvedView(ctx context.Context, record ports.ResolutionRecord) (ResolvedView, error) {
	ranking, err := q.Rankings.GetRanking(ctx, record.Resolution.RankingID)
	if err != nil {
		return ResolvedView{}, err
	}
	return ResolvedView{Ranking: ranking, Resolution: record.Resolution}, nil
}

// History lists settled rounds across categories, most recent first.
func (q RankingQueries) History(ctx context.Context, category string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	records, err := q.Resolutions.ListResolutions(ctx, strings.TrimSpace(category), limit)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{
			Resolution: record.Resolution,
			Category:   record.Category,
			Title:      record.Title,
		})
	}
	return entries, nil
}

// VoterPredictions lists one voter's votes across rounds, newest first.
func (q RankingQueries) VoterPredictions(ctx context.Context, address string) ([]PredictionView, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, domainerrors.ErrInvalidVoteInput
	}
	predictions, err := q.Votes.ListVoterPredictions(ctx, address)
	if err != nil {
		return nil, err
	}
	views := make([]PredictionView, 0, len(predictions))
	for _, prediction := range predictions {
		views = append(views, PredictionView{
			Category:       prediction.Category,
			Title:          prediction.Title,
			ItemID:         prediction.ItemID,
			ItemName:       prediction.ItemName,
			RankedPosition: prediction.Vote.RankedPosition,
			FinalRank:      prediction.ItemFinalRank,
			StakeAmount:    prediction.Vote.StakeAmount,
			Accuracy:       prediction.Vote.Accuracy,
			RewardEarned:   prediction.Vote.RewardEarned,
			Resolved:       prediction.RankingResolvedAt != nil,
			CreatedAt:      prediction.Vote.CreatedAt,
		})
	}
	return views, nil
}

// Status reports engine-wide counters and the resolution horizon.
func (q RankingQueries) Status(ctx context.Context) (StatusView, error) {
	now := time.Now().UTC()
	if q.Clock != nil {
		now = q.Clock.Now().UTC()
	}

	active, err := q.Rankings.CountActiveRankings(ctx)
	if err != nil {
		return StatusView{}, err
	}
	due, err := q.Rankings.CountDueRankings(ctx, now)
	if err != nil {
		return StatusView{}, err
	}
	resolutions, err := q.Resolutions.CountResolutions(ctx)
	if err != nil {
		return StatusView{}, err
	}
	uniqueVoters, totalStaked, err := q.Votes.VoteTotals(ctx)
	if err != nil {
		return StatusView{}, err
	}

	view := StatusView{
		ActiveRankings:   active,
		DueRankings:      due,
		TotalResolutions: resolutions,
		UniqueVoters:     uniqueVoters,
		TotalStaked:      totalStaked,
	}
	if next, found, err := q.Rankings.NextDueRanking(ctx); err != nil {
		return StatusView{}, err
	} else if found {
		at := next.ResolvesAt
		view.NextResolutionAt = &at
	}
	if last, found, err := q.Resolutions.LastResolution(ctx); err != nil {
		return StatusView{}, err
	} else if found {
		at := last.ResolvedAt
		view.LastResolvedWeek = last.Week
		view.LastResolvedAt = &at
	}
	return view, nil
}

func sortItemsByRank(items []entities.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		left, right := items[i].CurrentRank, items[j].CurrentRank
		if left == services.UnrankedPosition {
			left = len(items) + 1
		}
		if right == services.UnrankedPosition {
			right = len(items) + 1
		}
		return left < right
	})
}
