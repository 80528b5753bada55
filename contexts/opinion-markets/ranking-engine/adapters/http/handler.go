package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/application/commands"
	"scarab/contexts/opinion-markets/ranking-engine/application/queries"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	httptransport "scarab/contexts/opinion-markets/ranking-engine/transport/http"
)

type Handler struct {
	Votes    commands.VoteUseCase
	Resolver commands.ResolveUseCase
	Rankings queries.RankingQueries
	Previews queries.PreviewQueries
	Logger   *slog.Logger
}

func (h Handler) SubmitVoteHandler(ctx context.Context, req httptransport.SubmitVoteRequest) (httptransport.SubmitVoteResponse, error) {
	entries := make([]commands.RankingEntry, 0, len(req.Rankings))
	for _, entry := range req.Rankings {
		entries = append(entries, commands.RankingEntry{
			ItemID: entry.ItemID,
			Rank:   entry.Rank,
			Stake:  entry.Stake,
		})
	}
	result, err := h.Votes.SubmitRanking(ctx, commands.SubmitRankingCommand{
		Category:     req.Category,
		VoterAddress: req.VoterAddress,
		Entries:      entries,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}

	outcomes := make([]httptransport.EntryOutcomeResponse, 0, len(result.Entries))
	for _, outcome := range result.Entries {
		outcomes = append(outcomes, httptransport.EntryOutcomeResponse{
			ItemID:          outcome.ItemID,
			Status:          outcome.Status,
			Message:         outcome.Message,
			VoteID:          outcome.VoteID,
			EffectiveWeight: outcome.EffectiveWeight,
		})
	}
	return httptransport.SubmitVoteResponse{
		Entries:          outcomes,
		VoterReputation:  result.VoterReputation,
		WeightMultiplier: result.WeightMultiplier,
		TotalStaked:      result.TotalStaked,
		DroneEarned:      result.DroneEarned,
		NextResolutionAt: formatTime(result.NextResolutionAt),
	}, nil
}

func (h Handler) CurrentRankingHandler(ctx context.Context, category string) (httptransport.RankingResponse, error) {
	view, err := h.Rankings.CurrentRanking(ctx, category)
	if err != nil {
		return httptransport.RankingResponse{}, err
	}
	return httptransport.RankingResponse{
		RankingID:   view.Ranking.RankingID,
		Category:    view.Ranking.Category,
		Title:       view.Ranking.Title,
		Description: view.Ranking.Description,
		Week:        view.Week,
		ResolvesAt:  formatTime(view.Ranking.ResolvesAt),
		IsActive:    view.Ranking.IsActive,
		TotalStaked: view.Ranking.TotalStaked,
		TotalVoters: view.Ranking.TotalVoters,
		Items:       mapItems(view.Items),
	}, nil
}

func (h Handler) ResolvedRankingHandler(ctx context.Context, category string, week string) (httptransport.ResolvedRankingResponse, error) {
	view, err := h.Rankings.ResolvedRanking(ctx, category, week)
	if err != nil {
		return httptransport.ResolvedRankingResponse{}, err
	}
	return httptransport.ResolvedRankingResponse{
		RankingID:             view.Ranking.RankingID,
		Category:              view.Ranking.Category,
		Title:                 view.Ranking.Title,
		Week:                  view.Resolution.Week,
		FinalRankings:         mapFinalRankings(view.Resolution.FinalRankings),
		TotalDroneDistributed: view.Resolution.TotalDroneDistributed,
		TotalVotersRewarded:   view.Resolution.TotalVotersRewarded,
		AvgRewardPerVoter:     view.Resolution.AvgRewardPerVoter,
		ResolvedAt:            formatTime(view.Resolution.ResolvedAt),
	}, nil
}

func (h Handler) HistoryHandler(ctx context.Context, category string, limit int) (httptransport.HistoryResponse, error) {
	entries, err := h.Rankings.History(ctx, category, limit)
	if err != nil {
		return httptransport.HistoryResponse{}, err
	}
	response := httptransport.HistoryResponse{
		Entries: make([]httptransport.HistoryEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		response.Entries = append(response.Entries, httptransport.HistoryEntryResponse{
			Category:              entry.Category,
			Title:                 entry.Title,
			Week:                  entry.Resolution.Week,
			FinalRankings:         mapFinalRankings(entry.Resolution.FinalRankings),
			TotalDroneDistributed: entry.Resolution.TotalDroneDistributed,
			TotalVotersRewarded:   entry.Resolution.TotalVotersRewarded,
			ResolvedAt:            formatTime(entry.Resolution.ResolvedAt),
		})
	}
	return response, nil
}

func (h Handler) PredictionsHandler(ctx context.Context, address string) (httptransport.PredictionsResponse, error) {
	predictions, err := h.Rankings.VoterPredictions(ctx, address)
	if err != nil {
		return httptransport.PredictionsResponse{}, err
	}
	response := httptransport.PredictionsResponse{
		Address:     address,
		Predictions: make([]httptransport.PredictionResponse, 0, len(predictions)),
	}
	for _, prediction := range predictions {
		response.Predictions = append(response.Predictions, httptransport.PredictionResponse{
			Category:       prediction.Category,
			Title:          prediction.Title,
			ItemID:         prediction.ItemID,
			ItemName:       prediction.ItemName,
			RankedPosition: prediction.RankedPosition,
			FinalRank:      prediction.FinalRank,
			StakeAmount:    prediction.StakeAmount,
			Accuracy:       prediction.Accuracy,
			RewardEarned:   prediction.RewardEarned,
			Resolved:       prediction.Resolved,
			CreatedAt:      formatTime(prediction.CreatedAt),
		})
	}
	return response, nil
}

// ResolveExpiredHandler runs the batch resolver, or a read-only preview of it
// when dryRun is set.
func (h Handler) ResolveExpiredHandler(ctx context.Context, dryRun bool) (any, error) {
	if dryRun {
		previews, err := h.Previews.PreviewExpired(ctx)
		if err != nil {
			return nil, err
		}
		response := httptransport.PreviewBatchResponse{
			DryRun:   true,
			Previews: make([]httptransport.PreviewResponse, 0, len(previews)),
		}
		for _, preview := range previews {
			response.Previews = append(response.Previews, mapPreview(preview))
		}
		return response, nil
	}

	result, err := h.Resolver.ResolveExpiredRankings(ctx)
	if err != nil {
		return nil, err
	}
	response := httptransport.ResolveResponse{
		DryRun:   false,
		Resolved: make([]httptransport.ResolutionOutcomeResponse, 0, len(result.Resolved)),
	}
	for _, outcome := range result.Resolved {
		response.Resolved = append(response.Resolved, httptransport.ResolutionOutcomeResponse{
			RankingID:             outcome.RankingID,
			Category:              outcome.Category,
			Week:                  outcome.Week,
			ItemsResolved:         outcome.ItemsResolved,
			VotersRewarded:        outcome.VotersRewarded,
			TotalDroneDistributed: outcome.TotalDroneDistributed,
			NextRankingCreated:    outcome.NextRankingCreated,
		})
	}
	for _, failure := range result.Failed {
		response.Failed = append(response.Failed, httptransport.ResolutionFailureResponse{
			RankingID: failure.RankingID,
			Category:  failure.Category,
			Error:     failure.Err.Error(),
		})
	}
	return response, nil
}

// HealthHandler builds the liveness snapshot: engine counters plus the
// countdown to the next scheduled resolution.
func (h Handler) HealthHandler(ctx context.Context, serviceName string) (httptransport.HealthResponse, error) {
	view, err := h.Rankings.Status(ctx)
	if err != nil {
		return httptransport.HealthResponse{}, err
	}
	response := httptransport.HealthResponse{
		Status:         "ok",
		Service:        serviceName,
		ActiveRankings: view.ActiveRankings,
		UniqueVoters:   view.UniqueVoters,
		TotalStaked:    view.TotalStaked,
	}
	if view.NextResolutionAt != nil {
		now := time.Now().UTC()
		if h.Rankings.Clock != nil {
			now = h.Rankings.Clock.Now().UTC()
		}
		seconds := int64(view.NextResolutionAt.Sub(now).Seconds())
		if seconds < 0 {
			seconds = 0
		}
		response.NextResolutionInSeconds = &seconds
	}
	return response, nil
}

func (h Handler) StatusHandler(ctx context.Context) (httptransport.StatusResponse, error) {
	view, err := h.Rankings.Status(ctx)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	response := httptransport.StatusResponse{
		ActiveRankings:   view.ActiveRankings,
		DueRankings:      view.DueRankings,
		TotalResolutions: view.TotalResolutions,
		UniqueVoters:     view.UniqueVoters,
		TotalStaked:      view.TotalStaked,
		LastResolvedWeek: view.LastResolvedWeek,
	}
	if view.NextResolutionAt != nil {
		response.NextResolutionAt = formatTime(*view.NextResolutionAt)
	}
	if view.LastResolvedAt != nil {
		response.LastResolvedAt = formatTime(*view.LastResolvedAt)
	}
	return response, nil
}

func mapItems(items []entities.Item) []httptransport.ItemResponse {
	responses := make([]httptransport.ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, httptransport.ItemResponse{
			ItemID:             item.ItemID,
			Name:               item.Name,
			Description:        item.Description,
			LogoURL:            item.LogoURL,
			Chain:              item.Chain,
			CurrentScore:       item.CurrentScore,
			CurrentRank:        item.CurrentRank,
			StakeWeightedVotes: item.StakeWeightedVotes,
			VoterCount:         item.VoterCount,
			Consensus:          string(item.Consensus),
			FinalRank:          item.FinalRank,
			FinalScore:         item.FinalScore,
		})
	}
	return responses
}

func mapFinalRankings(entries []entities.FinalRankingEntry) []httptransport.FinalRankingResponse {
	responses := make([]httptransport.FinalRankingResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, httptransport.FinalRankingResponse{
			ItemID:     entry.ItemID,
			Name:       entry.Name,
			FinalRank:  entry.FinalRank,
			FinalScore: entry.FinalScore,
		})
	}
	return responses
}

func mapPreview(preview queries.ResolutionPreview) httptransport.PreviewResponse {
	voters := make([]httptransport.VoterPreviewResponse, 0, len(preview.Voters))
	for _, voter := range preview.Voters {
		voters = append(voters, httptransport.VoterPreviewResponse{
			Address:     voter.Address,
			AvgAccuracy: voter.AvgAccuracy,
			TotalStake:  voter.TotalStake,
			Eligible:    voter.Eligible,
			Reward:      voter.Reward,
		})
	}
	return httptransport.PreviewResponse{
		RankingID:             preview.RankingID,
		Category:              preview.Category,
		Week:                  preview.Week,
		FinalRankings:         mapFinalRankings(preview.FinalRankings),
		Voters:                voters,
		TotalDroneDistributed: preview.TotalDroneDistributed,
		TotalVotersRewarded:   preview.TotalVotersRewarded,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
