package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
)

// ResolutionParams are the tunables applied when a round closes. They are
// passed into the orchestrator instead of living as package constants so
// alternate parameterizations stay testable.
type ResolutionParams struct {
	RewardPool        float64
	AccuracyThreshold float64
	ReputationGain    float64
	ReputationLoss    float64
	RoundInterval     time.Duration
}

func DefaultResolutionParams() ResolutionParams {
	return ResolutionParams{
		RewardPool:        500,
		AccuracyThreshold: 0.5,
		ReputationGain:    5,
		ReputationLoss:    2,
		RoundInterval:     7 * 24 * time.Hour,
	}
}

func (p ResolutionParams) Normalize() ResolutionParams {
	defaults := DefaultResolutionParams()
	if p.RewardPool <= 0 {
		p.RewardPool = defaults.RewardPool
	}
	if p.AccuracyThreshold <= 0 {
		p.AccuracyThreshold = defaults.AccuracyThreshold
	}
	if p.ReputationGain <= 0 {
		p.ReputationGain = defaults.ReputationGain
	}
	if p.ReputationLoss <= 0 {
		p.ReputationLoss = defaults.ReputationLoss
	}
	if p.RoundInterval <= 0 {
		p.RoundInterval = defaults.RoundInterval
	}
	return p
}

// VoteAccuracy measures how close a predicted position landed to the final
// rank, normalized by item count so rounds of different size stay comparable.
// Exact match yields 1; being off by the full item count floors at 0.
func VoteAccuracy(rankedPosition int, finalRank int, totalItems int) float64 {
	if totalItems <= 0 {
		return 0
	}
	distance := math.Abs(float64(rankedPosition - finalRank))
	accuracy := 1 - distance/float64(totalItems)
	if accuracy < 0 {
		return 0
	}
	return accuracy
}

// VoterScore is one voter's aggregate over all their votes in a ranking.
type VoterScore struct {
	Address       string
	AvgAccuracy   float64
	TotalStake    float64
	WeightedScore float64
	Votes         []entities.Vote
}

// ScoreVoters groups votes by voter and computes each voter's average
// accuracy against the frozen final order. finalRankByItem maps item row IDs
// to final ranks; votes on items missing from the map count as maximally
// wrong. The result is sorted by address for deterministic downstream math.
func ScoreVoters(votes []entities.Vote, finalRankByItem map[string]int, totalItems int) []VoterScore {
	byVoter := make(map[string][]entities.Vote)
	for _, vote := range votes {
		byVoter[vote.VoterAddress] = append(byVoter[vote.VoterAddress], vote)
	}

	scores := make([]VoterScore, 0, len(byVoter))
	for address, voterVotes := range byVoter {
		accuracySum := 0.0
		totalStake := 0.0
		for _, vote := range voterVotes {
			finalRank, ok := finalRankByItem[vote.ItemRowID]
			if !ok {
				finalRank = totalItems
			}
			accuracySum += VoteAccuracy(vote.RankedPosition, finalRank, totalItems)
			totalStake += vote.StakeAmount
		}
		avgAccuracy := accuracySum / float64(len(voterVotes))
		scores = append(scores, VoterScore{
			Address:       address,
			AvgAccuracy:   avgAccuracy,
			TotalStake:    totalStake,
			WeightedScore: avgAccuracy * totalStake,
			Votes:         voterVotes,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Address < scores[j].Address
	})
	return scores
}

// RewardShare is one voter's settled reward for a resolved round.
type RewardShare struct {
	Address  string
	Eligible bool
	Reward   float64
}

// DistributeRewards splits the reward pool across eligible voters
// proportional to accuracy x stake. Ineligible voters receive zero; if nobody
// clears the threshold the pool stays undistributed for the round. Per-voter
// rewards are rounded to whole units but capped by the pool remainder, so the
// distributed total never exceeds the pool.
func DistributeRewards(scores []VoterScore, params ResolutionParams) []RewardShare {
	totalWeightedScore := 0.0
	for _, score := range scores {
		if score.AvgAccuracy >= params.AccuracyThreshold {
			totalWeightedScore += score.WeightedScore
		}
	}

	shares := make([]RewardShare, 0, len(scores))
	remaining := params.RewardPool
	for _, score := range scores {
		share := RewardShare{Address: score.Address}
		if score.AvgAccuracy >= params.AccuracyThreshold && totalWeightedScore > 0 {
			share.Eligible = true
			reward := math.Round(score.WeightedScore / totalWeightedScore * params.RewardPool)
			if reward > remaining {
				reward = remaining
			}
			share.Reward = reward
			remaining -= reward
		}
		shares = append(shares, share)
	}
	return shares
}

// ReputationDelta is the post-resolution reputation adjustment. It keys off
// the accuracy gate alone: a voter who predicted well is never penalized for
// a reward share that rounded to nothing.
func ReputationDelta(accuracyMet bool, params ResolutionParams) float64 {
	if accuracyMet {
		return params.ReputationGain
	}
	return -params.ReputationLoss
}

// NextReputation applies a reputation delta, clamped to [0,100].
func NextReputation(current float64, delta float64) float64 {
	next := current + delta
	if next < 0 {
		return 0
	}
	if next > 100 {
		return 100
	}
	return next
}

// FeeTierFor rederives the trust tier from a reputation score.
func FeeTierFor(reputation float64) entities.FeeTier {
	switch {
	case reputation >= 80:
		return entities.FeeTierElite
	case reputation >= 60:
		return entities.FeeTierTrusted
	case reputation >= 20:
		return entities.FeeTierNormal
	default:
		return entities.FeeTierRisky
	}
}

// ISOWeekTag renders the ISO-8601 week identifier ("2026-W07") used to tag
// resolution records. Dates in early January that fall into the prior year's
// last ISO week carry that year's tag.
func ISOWeekTag(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
