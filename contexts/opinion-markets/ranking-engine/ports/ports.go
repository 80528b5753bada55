package ports

import (
	"context"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	"scarab/internal/shared/events"
)

type RankingRepository interface {
	GetRanking(ctx context.Context, rankingID string) (entities.Ranking, error)
	GetActiveRankingByCategory(ctx context.Context, category string) (entities.Ranking, bool, error)
	GetLatestRankingByCategory(ctx context.Context, category string) (entities.Ranking, bool, error)
	ListDueRankings(ctx context.Context, now time.Time) ([]entities.Ranking, error)
	CountDueRankings(ctx context.Context, now time.Time) (int, error)
	CountActiveRankings(ctx context.Context) (int, error)
	NextDueRanking(ctx context.Context) (entities.Ranking, bool, error)
	SaveRanking(ctx context.Context, ranking entities.Ranking) error
	// HasActiveRankingSince reports whether an active round already covers the
	// post-roll window; it backs the idempotent next-round spawn check.
	HasActiveRankingSince(ctx context.Context, category string, since time.Time) (bool, error)
	// CreateRanking inserts a new round together with its reset items. The
	// store enforces (category, resolves_at) uniqueness; created is false when
	// a concurrent spawn already inserted the same round.
	CreateRanking(ctx context.Context, ranking entities.Ranking, items []entities.Item) (created bool, err error)

	ListItemsByRanking(ctx context.Context, rankingID string) ([]entities.Item, error)
	GetItemByKey(ctx context.Context, rankingID string, itemID string) (entities.Item, bool, error)
	SaveItem(ctx context.Context, item entities.Item) error
}

type VoteRepository interface {
	// UpsertVote writes a vote keyed by (ranking, item, voter); resubmission
	// overwrites in place rather than appending.
	UpsertVote(ctx context.Context, vote entities.Vote) (entities.Vote, error)
	ListVotesByRanking(ctx context.Context, rankingID string) ([]entities.Vote, error)
	// SetVoteResolution writes the once-per-resolution accuracy and reward
	// bookkeeping onto a vote.
	SetVoteResolution(ctx context.Context, voteID string, accuracy float64, rewardEarned float64) error
	ListVoterPredictions(ctx context.Context, voterAddress string) ([]VoterPrediction, error)
	// VoteTotals reports platform-wide unique voters and total staked amount.
	VoteTotals(ctx context.Context) (uniqueVoters int, totalStaked float64, err error)
}

// VoterPrediction joins one vote with the item and round context a voter's
// prediction history needs.
type VoterPrediction struct {
	Vote              entities.Vote
	ItemID            string
	ItemName          string
	ItemFinalRank     *int
	Category          string
	Title             string
	RankingActive     bool
	RankingResolvedAt *time.Time
}

type ResolutionRepository interface {
	// SaveResolution fails with ErrResolutionExists when a record for the
	// same (ranking, week) pair is already present.
	SaveResolution(ctx context.Context, resolution entities.Resolution) error
	GetResolutionByWeek(ctx context.Context, rankingID string, week string) (entities.Resolution, bool, error)
	GetLatestResolutionByRanking(ctx context.Context, rankingID string) (entities.Resolution, bool, error)
	ListResolutions(ctx context.Context, category string, limit int) ([]ResolutionRecord, error)
	CountResolutions(ctx context.Context) (int, error)
	LastResolution(ctx context.Context) (entities.Resolution, bool, error)
}

// ResolutionRecord joins a resolution with its round's category and title for
// history listings.
type ResolutionRecord struct {
	Resolution entities.Resolution
	Category   string
	Title      string
}

type UserRepository interface {
	GetUser(ctx context.Context, address string) (entities.User, bool, error)
	CreateUser(ctx context.Context, user entities.User) (entities.User, error)
	IncrementBalance(ctx context.Context, address string, amount float64) error
	// AdjustReputation applies a bounded reputation delta and returns the
	// rederived fee tier.
	AdjustReputation(ctx context.Context, address string, delta float64) (entities.FeeTier, error)
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

// Store bundles every repository the resolution orchestrator touches so one
// round's closing steps can run against a single transactional view.
type Store interface {
	RankingRepository
	VoteRepository
	ResolutionRepository
	UserRepository
	OutboxRepository

	// Transact runs fn against a store view whose writes commit atomically,
	// or not at all.
	Transact(ctx context.Context, fn func(Store) error) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
