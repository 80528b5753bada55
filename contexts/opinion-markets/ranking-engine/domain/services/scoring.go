package services

import (
	"math"
	"sort"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
)

const (
	// NeutralScore is the midpoint assigned to items with no votes and to
	// items copied into a freshly spawned round.
	NeutralScore = 50.0

	// UnrankedPosition marks an item that has not been placed by any vote yet.
	UnrankedPosition = 0

	// DefaultReputation is assumed for voters with no reputation record.
	DefaultReputation = 30.0
)

// StakeWeightTier buckets reputation into 1..6 for the vote-weight bonus.
func StakeWeightTier(reputation float64) int {
	tier := int(math.Floor(reputation / 15))
	if tier < 1 {
		return 1
	}
	if tier > 6 {
		return 6
	}
	return tier
}

// StakeWeightMultiplier converts voter reputation into the multiplier applied
// to staked amounts. Reputation 50 with tier bonus yields slightly above 1x;
// proven voters get a small convexity bonus through the tier term.
func StakeWeightMultiplier(reputation float64) float64 {
	tier := StakeWeightTier(reputation)
	return (reputation / 50) * (1 + float64(tier)/10)
}

// EffectiveWeight is the stake-and-reputation weight one vote contributes.
func EffectiveWeight(stakeAmount float64, reputation float64) float64 {
	return stakeAmount * StakeWeightMultiplier(reputation)
}

// ItemScore is the recomputed live aggregate for one item.
type ItemScore struct {
	Score              float64
	StakeWeightedVotes float64
	VoterCount         int
	Consensus          entities.Consensus
}

// ScoreItemVotes recomputes an item's consensus score from its live vote set.
// Rank 1 maps to score 100 and rank 10 to score 10 on a linear scale; the
// result is clamped to [0,100]. Items without votes sit at the neutral midpoint
// with weak consensus.
func ScoreItemVotes(votes []entities.Vote) ItemScore {
	if len(votes) == 0 {
		return ItemScore{
			Score:     NeutralScore,
			Consensus: entities.ConsensusWeak,
		}
	}

	totalWeight := 0.0
	weightedRankSum := 0.0
	for _, vote := range votes {
		totalWeight += vote.EffectiveWeight
		weightedRankSum += float64(vote.RankedPosition) * vote.EffectiveWeight
	}
	avgWeightedRank := weightedRankSum / totalWeight

	score := 110 - avgWeightedRank*10
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	variance := 0.0
	for _, vote := range votes {
		diff := float64(vote.RankedPosition) - avgWeightedRank
		variance += diff * diff
	}
	rankStdDev := math.Sqrt(variance / float64(len(votes)))

	consensus := entities.ConsensusWeak
	if rankStdDev < 1.5 {
		consensus = entities.ConsensusStrong
	} else if rankStdDev < 3 {
		consensus = entities.ConsensusModerate
	}

	return ItemScore{
		Score:              Round1(score),
		StakeWeightedVotes: Round2(totalWeight),
		VoterCount:         len(votes),
		Consensus:          consensus,
	}
}

// AssignRanks rewrites CurrentRank across all items of one ranking so the
// values form the contiguous permutation 1..N, ordered by CurrentScore
// descending. Ties keep first-seen input order.
func AssignRanks(items []entities.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CurrentScore > items[j].CurrentScore
	})
	for i := range items {
		items[i].CurrentRank = i + 1
	}
}

// SpawnItem copies an item into the next round with every vote-derived field
// reset to its neutral state.
func SpawnItem(item entities.Item, rankingID string, rowID string, now time.Time) entities.Item {
	return entities.Item{
		RowID:        rowID,
		RankingID:    rankingID,
		ItemID:       item.ItemID,
		Name:         item.Name,
		Description:  item.Description,
		LogoURL:      item.LogoURL,
		Chain:        item.Chain,
		CurrentScore: NeutralScore,
		CurrentRank:  UnrankedPosition,
		Consensus:    entities.ConsensusWeak,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func Round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func Round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
