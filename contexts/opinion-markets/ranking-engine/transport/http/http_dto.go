package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RankingEntryRequest struct {
	ItemID string  `json:"item_id"`
	Rank   int     `json:"rank"`
	Stake  float64 `json:"stake,omitempty"`
}

type SubmitVoteRequest struct {
	Category     string                `json:"category"`
	VoterAddress string                `json:"voter_address"`
	Rankings     []RankingEntryRequest `json:"rankings"`
}

type EntryOutcomeResponse struct {
	ItemID          string  `json:"item_id"`
	Status          string  `json:"status"`
	Message         string  `json:"message,omitempty"`
	VoteID          string  `json:"vote_id,omitempty"`
	EffectiveWeight float64 `json:"effective_weight,omitempty"`
}

type SubmitVoteResponse struct {
	Entries          []EntryOutcomeResponse `json:"entries"`
	VoterReputation  float64                `json:"voter_reputation"`
	WeightMultiplier float64                `json:"weight_multiplier"`
	TotalStaked      float64                `json:"total_staked"`
	DroneEarned      float64                `json:"drone_earned"`
	NextResolutionAt string                 `json:"next_resolution_at"`
}

type ItemResponse struct {
	ItemID             string   `json:"item_id"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	LogoURL            string   `json:"logo_url,omitempty"`
	Chain              string   `json:"chain,omitempty"`
	CurrentScore       float64  `json:"current_score"`
	CurrentRank        int      `json:"current_rank"`
	StakeWeightedVotes float64  `json:"stake_weighted_votes"`
	VoterCount         int      `json:"voter_count"`
	Consensus          string   `json:"consensus"`
	FinalRank          *int     `json:"final_rank,omitempty"`
	FinalScore         *float64 `json:"final_score,omitempty"`
}

type RankingResponse struct {
	RankingID   string         `json:"ranking_id"`
	Category    string         `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Week        string         `json:"week"`
	ResolvesAt  string         `json:"resolves_at"`
	IsActive    bool           `json:"is_active"`
	TotalStaked float64        `json:"total_staked"`
	TotalVoters int            `json:"total_voters"`
	Items       []ItemResponse `json:"items"`
}

type FinalRankingResponse struct {
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name"`
	FinalRank  int     `json:"final_rank"`
	FinalScore float64 `json:"final_score"`
}

type ResolvedRankingResponse struct {
	RankingID             string                 `json:"ranking_id"`
	Category              string                 `json:"category"`
	Title                 string                 `json:"title"`
	Week                  string                 `json:"week"`
	FinalRankings         []FinalRankingResponse `json:"final_rankings"`
	TotalDroneDistributed float64                `json:"total_drone_distributed"`
	TotalVotersRewarded   int                    `json:"total_voters_rewarded"`
	AvgRewardPerVoter     float64                `json:"avg_reward_per_voter"`
	ResolvedAt            string                 `json:"resolved_at"`
}

type HistoryEntryResponse struct {
	Category              string                 `json:"category"`
	Title                 string                 `json:"title"`
	Week                  string                 `json:"week"`
	FinalRankings         []FinalRankingResponse `json:"final_rankings"`
	TotalDroneDistributed float64                `json:"total_drone_distributed"`
	TotalVotersRewarded   int                    `json:"total_voters_rewarded"`
	ResolvedAt            string                 `json:"resolved_at"`
}

type HistoryResponse struct {
	Entries []HistoryEntryResponse `json:"entries"`
}

type PredictionResponse struct {
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	ItemID         string   `json:"item_id"`
	ItemName       string   `json:"item_name"`
	RankedPosition int      `json:"ranked_position"`
	FinalRank      *int     `json:"final_rank,omitempty"`
	StakeAmount    float64  `json:"stake_amount"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
	RewardEarned   *float64 `json:"reward_earned,omitempty"`
	Resolved       bool     `json:"resolved"`
	CreatedAt      string   `json:"created_at"`
}

type PredictionsResponse struct {
	Address     string               `json:"address"`
	Predictions []PredictionResponse `json:"predictions"`
}

type ResolutionOutcomeResponse struct {
	RankingID             string  `json:"ranking_id"`
	Category              string  `json:"category"`
	Week                  string  `json:"week"`
	ItemsResolved         int     `json:"items_resolved"`
	VotersRewarded        int     `json:"voters_rewarded"`
	TotalDroneDistributed float64 `json:"total_drone_distributed"`
	NextRankingCreated    bool    `json:"next_ranking_created"`
}

type ResolutionFailureResponse struct {
	RankingID string `json:"ranking_id"`
	Category  string `json:"category"`
	Error     string `json:"error"`
}

type ResolveResponse struct {
	DryRun   bool                        `json:"dry_run"`
	Resolved []ResolutionOutcomeResponse `json:"resolved"`
	Failed   []ResolutionFailureResponse `json:"failed,omitempty"`
}

type VoterPreviewResponse struct {
	Address     string  `json:"address"`
	AvgAccuracy float64 `json:"avg_accuracy"`
	TotalStake  float64 `json:"total_stake"`
	Eligible    bool    `json:"eligible"`
	Reward      float64 `json:"reward"`
}

type PreviewResponse struct {
	RankingID             string                 `json:"ranking_id"`
	Category              string                 `json:"category"`
	Week                  string                 `json:"week"`
	FinalRankings         []FinalRankingResponse `json:"final_rankings"`
	Voters                []VoterPreviewResponse `json:"voters"`
	TotalDroneDistributed float64                `json:"total_drone_distributed"`
	TotalVotersRewarded   int                    `json:"total_voters_rewarded"`
}

type PreviewBatchResponse struct {
	DryRun   bool              `json:"dry_run"`
	Previews []PreviewResponse `json:"previews"`
}

type StatusResponse struct {
	ActiveRankings   int     `json:"active_rankings"`
	DueRankings      int     `json:"due_rankings"`
	TotalResolutions int     `json:"total_resolutions"`
	UniqueVoters     int     `json:"unique_voters"`
	TotalStaked      float64 `json:"total_staked"`
	NextResolutionAt string  `json:"next_resolution_at,omitempty"`
	LastResolvedWeek string  `json:"last_resolved_week,omitempty"`
	LastResolvedAt   string  `json:"last_resolved_at,omitempty"`
}

type HealthResponse struct {
	Status                  string  `json:"status"`
	Service                 string  `json:"service"`
	ActiveRankings          int     `json:"active_rankings"`
	UniqueVoters            int     `json:"unique_voters"`
	TotalStaked             float64 `json:"total_staked"`
	NextResolutionInSeconds *int64  `json:"next_resolution_in_seconds,omitempty"`
}
