package entities

import "time"

type Consensus string

const (
	ConsensusStrong   Consensus = "strong"
	ConsensusModerate Consensus = "moderate"
	ConsensusWeak     Consensus = "weak"
)

type FeeTier string

const (
	FeeTierElite   FeeTier = "elite"
	FeeTierTrusted FeeTier = "trusted"
	FeeTierNormal  FeeTier = "normal"
	FeeTierRisky   FeeTier = "risky"
)

// Ranking is one weekly competition round within a category. Closing a round
// never deletes it: resolution flips IsActive off and stamps ResolvedAt.
type Ranking struct {
	RankingID   string
	Category    string
	Title       string
	Description string
	ResolvesAt  time.Time
	IsActive    bool
	ResolvedAt  *time.Time
	TotalStaked float64
	TotalVoters int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a competing entity inside a ranking. ItemID is the business key,
// stable across rounds; RowID is the storage key for this round's copy.
// FinalRank/FinalScore stay nil until the round resolves and are written once.
type Item struct {
	RowID              string
	RankingID          string
	ItemID             string
	Name               string
	Description        string
	LogoURL            string
	Chain              string
	CurrentScore       float64
	CurrentRank        int
	StakeWeightedVotes float64
	VoterCount         int
	Consensus          Consensus
	FinalRank          *int
	FinalScore         *float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Vote is one voter's position submission for one item in one ranking.
// A voter holds at most one vote per (ranking, item); resubmission overwrites.
// Accuracy and RewardEarned are populated exactly once, at resolution.
type Vote struct {
	VoteID          string
	RankingID       string
	ItemRowID       string
	VoterAddress    string
	IsAgent         bool
	RankedPosition  int
	StakeAmount     float64
	VoterReputation float64
	EffectiveWeight float64
	Accuracy        *float64
	RewardEarned    *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FinalRankingEntry is one row of a resolution's frozen ordering, serialized
// into the resolution record.
type FinalRankingEntry struct {
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name"`
	FinalRank  int     `json:"final_rank"`
	FinalScore float64 `json:"final_score"`
}

// Resolution is the immutable record of one closed round. Exactly one exists
// per (ranking, week) and it is never mutated after creation.
type Resolution struct {
	ResolutionID          string
	RankingID             string
	Week                  string
	FinalRankings         []FinalRankingEntry
	TotalDroneDistributed float64
	TotalVotersRewarded   int
	AvgRewardPerVoter     float64
	ResolvedAt            time.Time
}

// User carries the voter-facing reputation and reward-currency balance the
// engine reads for vote weighting and writes after each resolution.
type User struct {
	Address         string
	ReputationScore float64
	FeeTier         FeeTier
	DroneBalance    float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
