package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
)

type rankingModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	Category    string     `gorm:"column:category"`
	Title       string     `gorm:"column:title"`
	Description string     `gorm:"column:description"`
	ResolvesAt  time.Time  `gorm:"column:resolves_at"`
	IsActive    bool       `gorm:"column:is_active"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
	TotalStaked float64    `gorm:"column:total_staked"`
	TotalVoters int        `gorm:"column:total_voters"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (rankingModel) TableName() string {
	return "opinion_rankings"
}

func rankingModelFromEntity(ranking entities.Ranking) rankingModel {
	row := rankingModel{
		ID:          strings.TrimSpace(ranking.RankingID),
		Category:    strings.TrimSpace(ranking.Category),
		Title:       strings.TrimSpace(ranking.Title),
		Description: ranking.Description,
		ResolvesAt:  ranking.ResolvesAt.UTC(),
		IsActive:    ranking.IsActive,
		ResolvedAt:  normalizeOptionalTime(ranking.ResolvedAt),
		TotalStaked: ranking.TotalStaked,
		TotalVoters: ranking.TotalVoters,
		CreatedAt:   ranking.CreatedAt.UTC(),
		UpdatedAt:   ranking.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m rankingModel) toEntity() entities.Ranking {
	return entities.Ranking{
		RankingID:   m.ID,
		Category:    m.Category,
		Title:       m.Title,
		Description: m.Description,
		ResolvesAt:  m.ResolvesAt.UTC(),
		IsActive:    m.IsActive,
		ResolvedAt:  normalizeOptionalTime(m.ResolvedAt),
		TotalStaked: m.TotalStaked,
		TotalVoters: m.TotalVoters,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type itemModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	RankingID          string    `gorm:"column:ranking_id"`
	ItemID             string    `gorm:"column:item_id"`
	Name               string    `gorm:"column:name"`
	Description        string    `gorm:"column:description"`
	LogoURL            string    `gorm:"column:logo_url"`
	Chain              string    `gorm:"column:chain"`
	CurrentScore       float64   `gorm:"column:current_score"`
	CurrentRank        int       `gorm:"column:current_rank"`
	StakeWeightedVotes float64   `gorm:"column:stake_weighted_votes"`
	VoterCount         int       `gorm:"column:voter_count"`
	Consensus          string    `gorm:"column:consensus"`
	FinalRank          *int      `gorm:"column:final_rank"`
	FinalScore         *float64  `gorm:"column:final_score"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (itemModel) TableName() string {
	return "opinion_items"
}

func itemModelFromEntity(item entities.Item) itemModel {
	row := itemModel{
		ID:                 strings.TrimSpace(item.RowID),
		RankingID:          strings.TrimSpace(item.RankingID),
		ItemID:             strings.TrimSpace(item.ItemID),
		Name:               strings.TrimSpace(item.Name),
		Description:        item.Description,
		LogoURL:            strings.TrimSpace(item.LogoURL),
		Chain:              strings.TrimSpace(item.Chain),
		CurrentScore:       item.CurrentScore,
		CurrentRank:        item.CurrentRank,
		StakeWeightedVotes: item.StakeWeightedVotes,
		VoterCount:         item.VoterCount,
		Consensus:          string(item.Consensus),
		FinalRank:          item.FinalRank,
		FinalScore:         item.FinalScore,
		CreatedAt:          item.CreatedAt.UTC(),
		UpdatedAt:          item.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m itemModel) toEntity() entities.Item {
	return entities.Item{
		RowID:              m.ID,
		RankingID:          m.RankingID,
		ItemID:             m.ItemID,
		Name:               m.Name,
		Description:        m.Description,
		LogoURL:            m.LogoURL,
		Chain:              m.Chain,
		CurrentScore:       m.CurrentScore,
		CurrentRank:        m.CurrentRank,
		StakeWeightedVotes: m.StakeWeightedVotes,
		VoterCount:         m.VoterCount,
		Consensus:          entities.Consensus(m.Consensus),
		FinalRank:          m.FinalRank,
		FinalScore:         m.FinalScore,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

type voteModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	RankingID       string    `gorm:"column:ranking_id"`
	ItemRowID       string    `gorm:"column:item_row_id"`
	VoterAddress    string    `gorm:"column:voter_address"`
	IsAgent         bool      `gorm:"column:is_agent"`
	RankedPosition  int       `gorm:"column:ranked_position"`
	StakeAmount     float64   `gorm:"column:stake_amount"`
	VoterReputation float64   `gorm:"column:voter_reputation"`
	EffectiveWeight float64   `gorm:"column:effective_weight"`
	Accuracy        *float64  `gorm:"column:accuracy"`
	RewardEarned    *float64  `gorm:"column:reward_earned"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (voteModel) TableName() string {
	return "opinion_votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:              strings.TrimSpace(vote.VoteID),
		RankingID:       strings.TrimSpace(vote.RankingID),
		ItemRowID:       strings.TrimSpace(vote.ItemRowID),
		VoterAddress:    strings.ToLower(strings.TrimSpace(vote.VoterAddress)),
		IsAgent:         vote.IsAgent,
		RankedPosition:  vote.RankedPosition,
		StakeAmount:     vote.StakeAmount,
		VoterReputation: vote.VoterReputation,
		EffectiveWeight: vote.EffectiveWeight,
		Accuracy:        vote.Accuracy,
		RewardEarned:    vote.RewardEarned,
		CreatedAt:       vote.CreatedAt.UTC(),
		UpdatedAt:       vote.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:          m.ID,
		RankingID:       m.RankingID,
		ItemRowID:       m.ItemRowID,
		VoterAddress:    m.VoterAddress,
		IsAgent:         m.IsAgent,
		RankedPosition:  m.RankedPosition,
		StakeAmount:     m.StakeAmount,
		VoterReputation: m.VoterReputation,
		EffectiveWeight: m.EffectiveWeight,
		Accuracy:        m.Accuracy,
		RewardEarned:    m.RewardEarned,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type resolutionModel struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	RankingID             string    `gorm:"column:ranking_id"`
	Week                  string    `gorm:"column:week"`
	FinalRankings         []byte    `gorm:"column:final_rankings"`
	TotalDroneDistributed float64   `gorm:"column:total_drone_distributed"`
	TotalVotersRewarded   int       `gorm:"column:total_voters_rewarded"`
	AvgRewardPerVoter     float64   `gorm:"column:avg_reward_per_voter"`
	ResolvedAt            time.Time `gorm:"column:resolved_at"`
}

func (resolutionModel) TableName() string {
	return "opinion_resolutions"
}

func resolutionModelFromEntity(resolution entities.Resolution) (resolutionModel, error) {
	finalRankings, err := json.Marshal(resolution.FinalRankings)
	if err != nil {
		return resolutionModel{}, err
	}
	return resolutionModel{
		ID:                    strings.TrimSpace(resolution.ResolutionID),
		RankingID:             strings.TrimSpace(resolution.RankingID),
		Week:                  strings.TrimSpace(resolution.Week),
		FinalRankings:         finalRankings,
		TotalDroneDistributed: resolution.TotalDroneDistributed,
		TotalVotersRewarded:   resolution.TotalVotersRewarded,
		AvgRewardPerVoter:     resolution.AvgRewardPerVoter,
		ResolvedAt:            resolution.ResolvedAt.UTC(),
	}, nil
}

func (m resolutionModel) toEntity() (entities.Resolution, error) {
	var finalRankings []entities.FinalRankingEntry
	if len(m.FinalRankings) > 0 {
		if err := json.Unmarshal(m.FinalRankings, &finalRankings); err != nil {
			return entities.Resolution{}, err
		}
	}
	return entities.Resolution{
		ResolutionID:          m.ID,
		RankingID:             m.RankingID,
		Week:                  m.Week,
		FinalRankings:         finalRankings,
		TotalDroneDistributed: m.TotalDroneDistributed,
		TotalVotersRewarded:   m.TotalVotersRewarded,
		AvgRewardPerVoter:     m.AvgRewardPerVoter,
		ResolvedAt:            m.ResolvedAt.UTC(),
	}, nil
}

type userModel struct {
	Address         string    `gorm:"column:address;primaryKey"`
	ReputationScore float64   `gorm:"column:reputation_score"`
	FeeTier         string    `gorm:"column:fee_tier"`
	DroneBalance    float64   `gorm:"column:drone_balance"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string {
	return "users"
}

func userModelFromEntity(user entities.User) userModel {
	row := userModel{
		Address:         strings.ToLower(strings.TrimSpace(user.Address)),
		ReputationScore: user.ReputationScore,
		FeeTier:         string(user.FeeTier),
		DroneBalance:    user.DroneBalance,
		CreatedAt:       user.CreatedAt.UTC(),
		UpdatedAt:       user.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m userModel) toEntity() entities.User {
	return entities.User{
		Address:         m.Address,
		ReputationScore: m.ReputationScore,
		FeeTier:         entities.FeeTier(m.FeeTier),
		DroneBalance:    m.DroneBalance,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ranking_engine_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
