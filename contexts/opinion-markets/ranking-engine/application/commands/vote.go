package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "scarab/contexts/opinion-markets/ranking-engine/application"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
)

// RankingEntry is one (item, position, stake) triple inside a submission.
type RankingEntry struct {
	ItemID string
	Rank   int
	Stake  float64
}

// SubmitRankingCommand is the write-model input for a voter's ranked ballot
// within a category's active round.
type SubmitRankingCommand struct {
	Category     string
	VoterAddress string
	Entries      []RankingEntry
}

// EntryOutcome reports per-item acceptance so a partially valid ballot still
// lands the votes that resolved cleanly.
type EntryOutcome struct {
	ItemID          string
	Status          string
	Message         string
	VoteID          string
	EffectiveWeight float64
}

type SubmitRankingResult struct {
	Entries          []EntryOutcome
	VoterReputation  float64
	WeightMultiplier float64
	TotalStaked      float64
	DroneEarned      float64
	NextResolutionAt time.Time
}

// VoteUseCase ingests ranked ballots: it upserts votes with
// reputation-derived effective weights, refreshes the round's aggregates, and
// recomputes every item's live score, rank, and consensus.
type VoteUseCase struct {
	Rankings     ports.RankingRepository
	Votes        ports.VoteRepository
	Users        ports.UserRepository
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	DefaultStake float64
	VoteBonus    float64
	Logger       *slog.Logger
}

// SubmitRanking validates and applies one ballot. Resubmitting for the same
// (ranking, item) overwrites the prior vote in place.
func (uc VoteUseCase) SubmitRanking(ctx context.Context, cmd SubmitRankingCommand) (SubmitRankingResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	address := strings.ToLower(strings.TrimSpace(cmd.VoterAddress))
	category := strings.TrimSpace(cmd.Category)

	logger.Info("ranking vote processing started",
		"event", "ranking_vote_started",
		"module", "opinion-markets/ranking-engine",
		"layer", "application",
		"category", category,
		"voter_address", address,
		"entry_count", len(cmd.Entries),
	)

	if address == "" || category == "" || len(cmd.Entries) == 0 {
		logger.Warn("ranking vote validation failed",
			"event", "ranking_vote_validation_failed",
			"module", "opinion-markets/ranking-engine",
			"layer", "application",
			"category", category,
			"voter_address", address,
		)
		return SubmitRankingResult{}, domainerrors.ErrInvalidVoteInput
	}
	seenRanks := make(map[int]struct{}, len(cmd.Entries))
	for _, entry := range cmd.Entries {
		if strings.TrimSpace(entry.ItemID) == "" || entry.Rank < 1 || entry.Stake < 0 {
			return SubmitRankingResult{}, domainerrors.ErrInvalidVoteInput
		}
		if _, dup := seenRanks[entry.Rank]; dup {
			return SubmitRankingResult{}, domainerrors.ErrDuplicateRankPositions
		}
		seenRanks[entry.Rank] = struct{}{}
	}

	now := uc.now()
	ranking, found, err := uc.Rankings.GetActiveRankingByCategory(ctx, category)
	if err != nil {
		return SubmitRankingResult{}, err
	}
	if !found {
		return SubmitRankingResult{}, domainerrors.ErrRankingNotFound
	}
	if ranking.ResolvesAt.Before(now) {
		return SubmitRankingResult{}, domainerrors.ErrRankingClosed
	}

	reputation, err := uc.resolveReputation(ctx, address, now)
	if err != nil {
		return SubmitRankingResult{}, err
	}
	multiplier := services.StakeWeightMultiplier(reputation)

	outcomes := make([]EntryOutcome, 0, len(cmd.Entries))
	totalStaked := 0.0
	for _, entry := range cmd.Entries {
		itemID := strings.TrimSpace(entry.ItemID)
		item, found, err := uc.Rankings.GetItemByKey(ctx, ranking.RankingID, itemID)
		if err != nil {
			return SubmitRankingResult{}, err
		}
		if !found {
			outcomes = append(outcomes, EntryOutcome{
				ItemID:  itemID,
				Status:  "error",
				Message: "item not found",
			})
			continue
		}

		stake := entry.Stake
		if stake == 0 {
			stake = uc.resolveDefaultStake()
		}
		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return SubmitRankingResult{}, err
		}
		vote, err := uc.Votes.UpsertVote(ctx, entities.Vote{
			VoteID:          voteID,
			RankingID:       ranking.RankingID,
			ItemRowID:       item.RowID,
			VoterAddress:    address,
			RankedPosition:  entry.Rank,
			StakeAmount:     stake,
			VoterReputation: reputation,
			EffectiveWeight: services.EffectiveWeight(stake, reputation),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return SubmitRankingResult{}, err
		}
		totalStaked += stake
		outcomes = append(outcomes, EntryOutcome{
			ItemID:          itemID,
			Status:          "ok",
			VoteID:          vote.VoteID,
			EffectiveWeight: vote.EffectiveWeight,
		})
	}

	allVotes, err := uc.Votes.ListVotesByRanking(ctx, ranking.RankingID)
	if err != nil {
		return SubmitRankingResult{}, err
	}
	voters := make(map[string]struct{}, len(allVotes))
	stakedAll := 0.0
	for _, vote := range allVotes {
		voters[vote.VoterAddress] = struct{}{}
		stakedAll += vote.StakeAmount
	}
	ranking.TotalVoters = len(voters)
	ranking.TotalStaked = stakedAll
	ranking.UpdatedAt = now
	if err := uc.Rankings.SaveRanking(ctx, ranking); err != nil {
		return SubmitRankingResult{}, err
	}

	if err := uc.refreshScores(ctx, ranking.RankingID, allVotes, now); err != nil {
		return SubmitRankingResult{}, err
	}

	bonus := uc.resolveVoteBonus()
	if err := uc.Users.IncrementBalance(ctx, address, bonus); err != nil {
		return SubmitRankingResult{}, err
	}

	logger.Info("ranking vote applied",
		"event", "ranking_vote_applied",
		"module", "opinion-markets/ranking-engine",
		"layer", "application",
		"ranking_id", ranking.RankingID,
		"category", category,
		"voter_address", address,
		"accepted_entries", len(outcomes),
		"total_staked", totalStaked,
		"weight_multiplier", multiplier,
	)
	return SubmitRankingResult{
		Entries:          outcomes,
		VoterReputation:  reputation,
		WeightMultiplier: services.Round2(multiplier),
		TotalStaked:      totalStaked,
		DroneEarned:      bonus,
		NextResolutionAt: ranking.ResolvesAt,
	}, nil
}

// refreshScores recomputes every item's live aggregate from the current vote
// set, then reassigns ranks so they form the contiguous permutation 1..N.
func (uc VoteUseCase) refreshScores(
	ctx context.Context,
	rankingID string,
	votes []entities.Vote,
	now time.Time,
) error {
	items, err := uc.Rankings.ListItemsByRanking(ctx, rankingID)
	if err != nil {
		return err
	}
	votesByItem := make(map[string][]entities.Vote, len(items))
	for _, vote := range votes {
		votesByItem[vote.ItemRowID] = append(votesByItem[vote.ItemRowID], vote)
	}
	for i := range items {
		score := services.ScoreItemVotes(votesByItem[items[i].RowID])
		items[i].CurrentScore = score.Score
		items[i].StakeWeightedVotes = score.StakeWeightedVotes
		items[i].VoterCount = score.VoterCount
		items[i].Consensus = score.Consensus
		items[i].UpdatedAt = now
	}
	services.AssignRanks(items)
	for _, item := range items {
		if err := uc.Rankings.SaveItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (uc VoteUseCase) resolveReputation(ctx context.Context, address string, now time.Time) (float64, error) {
	user, found, err := uc.Users.GetUser(ctx, address)
	if err != nil {
		return 0, err
	}
	if !found {
		user, err = uc.Users.CreateUser(ctx, entities.User{
			Address:         address,
			ReputationScore: services.DefaultReputation,
			FeeTier:         entities.FeeTierNormal,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return 0, err
		}
	}
	if user.ReputationScore <= 0 {
		return services.DefaultReputation, nil
	}
	return user.ReputationScore, nil
}

func (uc VoteUseCase) resolveDefaultStake() float64 {
	if uc.DefaultStake <= 0 {
		return 10
	}
	return uc.DefaultStake
}

func (uc VoteUseCase) resolveVoteBonus() float64 {
	if uc.VoteBonus <= 0 {
		return 10
	}
	return uc.VoteBonus
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
