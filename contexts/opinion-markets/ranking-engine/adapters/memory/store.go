package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
	"scarab/internal/shared/events"

	"github.com/google/uuid"
)

type itemRecord struct {
	item entities.Item
	seq  int
}

type voteRecord struct {
	vote entities.Vote
	seq  int
}

type resolutionRecord struct {
	resolution entities.Resolution
	seq        int
}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
	seq       int
}

// Store is the in-memory implementation of every ranking-engine port plus the
// Clock and IDGenerator used by tests and the in-memory module wiring.
type Store struct {
	mu sync.RWMutex

	rankings    map[string]entities.Ranking
	items       map[string]itemRecord
	votes       map[string]voteRecord
	voteIndex   map[string]string
	resolutions map[string]resolutionRecord
	weekIndex   map[string]string
	users       map[string]entities.User
	outbox      map[string]outboxRecord

	seq      int
	fixedNow time.Time
}

func NewStore() *Store {
	return &Store{
		rankings:    make(map[string]entities.Ranking),
		items:       make(map[string]itemRecord),
		votes:       make(map[string]voteRecord),
		voteIndex:   make(map[string]string),
		resolutions: make(map[string]resolutionRecord),
		weekIndex:   make(map[string]string),
		users:       make(map[string]entities.User),
		outbox:      make(map[string]outboxRecord),
	}
}

// SetNow pins the clock for deterministic tests; zero restores wall time.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixedNow = now
}

// SeedRanking installs a ranking and its items without uniqueness checks.
func (s *Store) SeedRanking(ranking entities.Ranking, items []entities.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[ranking.RankingID] = ranking
	for _, item := range items {
		s.seq++
		s.items[item.RowID] = itemRecord{item: item, seq: s.seq}
	}
}

// SeedUser installs a user record directly.
func (s *Store) SeedUser(user entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(strings.TrimSpace(user.Address))] = user
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.fixedNow.IsZero() {
		return s.fixedNow
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Transact runs fn against the store itself. Writes apply immediately; the
// memory adapter offers per-operation isolation only, which the single-writer
// test harness relies on.
func (s *Store) Transact(_ context.Context, fn func(ports.Store) error) error {
	return fn(s)
}

func (s *Store) GetRanking(_ context.Context, rankingID string) (entities.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranking, ok := s.rankings[strings.TrimSpace(rankingID)]
	if !ok {
		return entities.Ranking{}, domainerrors.ErrRankingNotFound
	}
	return ranking, nil
}

func (s *Store) GetActiveRankingByCategory(_ context.Context, category string) (entities.Ranking, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best entities.Ranking
	found := false
	for _, ranking := range s.rankings {
		if !ranking.IsActive || !strings.EqualFold(ranking.Category, strings.TrimSpace(category)) {
			continue
		}
		if !found || ranking.ResolvesAt.After(best.ResolvesAt) {
			best = ranking
			found = true
		}
	}
	return best, found, nil
}

func (s *Store) GetLatestRankingByCategory(_ context.Context, category string) (entities.Ranking, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best entities.Ranking
	found := false
	for _, ranking := range s.rankings {
		if !strings.EqualFold(ranking.Category, strings.TrimSpace(category)) {
			continue
		}
		if !found || ranking.ResolvesAt.After(best.ResolvesAt) {
			best = ranking
			found = true
		}
	}
	return best, found, nil
}

func (s *Store) ListDueRankings(_ context.Context, now time.Time) ([]entities.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	due := make([]entities.Ranking, 0)
	for _, ranking := range s.rankings {
		if ranking.IsActive && !ranking.ResolvesAt.After(now) {
			due = append(due, ranking)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ResolvesAt.Equal(due[j].ResolvesAt) {
			return due[i].RankingID < due[j].RankingID
		}
		return due[i].ResolvesAt.Before(due[j].ResolvesAt)
	})
	return due, nil
}

func (s *Store) CountDueRankings(ctx context.Context, now time.Time) (int, error) {
	due, err := s.ListDueRankings(ctx, now)
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

func (s *Store) CountActiveRankings(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ranking := range s.rankings {
		if ranking.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *Store) NextDueRanking(_ context.Context) (entities.Ranking, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var next entities.Ranking
	found := false
	for _, ranking := range s.rankings {
		if !ranking.IsActive {
			continue
		}
		if !found || ranking.ResolvesAt.Before(next.ResolvesAt) {
			next = ranking
			found = true
		}
	}
	return next, found, nil
}

func (s *Store) SaveRanking(_ context.Context, ranking entities.Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[ranking.RankingID] = ranking
	return nil
}

func (s *Store) HasActiveRankingSince(_ context.Context, category string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ranking := range s.rankings {
		if ranking.IsActive && strings.EqualFold(ranking.Category, strings.TrimSpace(category)) && ranking.ResolvesAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateRanking(_ context.Context, ranking entities.Ranking, items []entities.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rankings {
		if strings.EqualFold(existing.Category, ranking.Category) && existing.ResolvesAt.Equal(ranking.ResolvesAt) {
			return false, nil
		}
	}
	s.rankings[ranking.RankingID] = ranking
	for _, item := range items {
		s.seq++
		s.items[item.RowID] = itemRecord{item: item, seq: s.seq}
	}
	return true, nil
}

func (s *Store) ListItemsByRanking(_ context.Context, rankingID string) ([]entities.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]itemRecord, 0)
	for _, record := range s.items {
		if record.item.RankingID == rankingID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	items := make([]entities.Item, 0, len(records))
	for _, record := range records {
		items = append(items, record.item)
	}
	return items, nil
}

func (s *Store) GetItemByKey(_ context.Context, rankingID string, itemID string) (entities.Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.items {
		if record.item.RankingID == rankingID && strings.EqualFold(record.item.ItemID, strings.TrimSpace(itemID)) {
			return record.item, true, nil
		}
	}
	return entities.Item{}, false, nil
}

func (s *Store) SaveItem(_ context.Context, item entities.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.items[item.RowID]
	if !ok {
		s.seq++
		record = itemRecord{seq: s.seq}
	}
	record.item = item
	s.items[item.RowID] = record
	return nil
}

func voteKey(rankingID, itemRowID, voterAddress string) string {
	return rankingID + "|" + itemRowID + "|" + strings.ToLower(voterAddress)
}

func (s *Store) UpsertVote(_ context.Context, vote entities.Vote) (entities.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := voteKey(vote.RankingID, vote.ItemRowID, vote.VoterAddress)
	if existingID, ok := s.voteIndex[key]; ok {
		record := s.votes[existingID]
		vote.VoteID = record.vote.VoteID
		vote.CreatedAt = record.vote.CreatedAt
		record.vote = vote
		s.votes[existingID] = record
		return vote, nil
	}
	s.seq++
	s.votes[vote.VoteID] = voteRecord{vote: vote, seq: s.seq}
	s.voteIndex[key] = vote.VoteID
	return vote, nil
}

func (s *Store) ListVotesByRanking(_ context.Context, rankingID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]voteRecord, 0)
	for _, record := range s.votes {
		if record.vote.RankingID == rankingID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	votes := make([]entities.Vote, 0, len(records))
	for _, record := range records {
		votes = append(votes, record.vote)
	}
	return votes, nil
}

func (s *Store) SetVoteResolution(_ context.Context, voteID string, accuracy float64, rewardEarned float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.votes[voteID]
	if !ok {
		return domainerrors.ErrVoteNotFound
	}
	record.vote.Accuracy = &accuracy
	record.vote.RewardEarned = &rewardEarned
	if !s.fixedNow.IsZero() {
		record.vote.UpdatedAt = s.fixedNow
	} else {
		record.vote.UpdatedAt = time.Now().UTC()
	}
	s.votes[voteID] = record
	return nil
}

func (s *Store) ListVoterPredictions(_ context.Context, voterAddress string) ([]ports.VoterPrediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	address := strings.ToLower(strings.TrimSpace(voterAddress))
	records := make([]voteRecord, 0)
	for _, record := range s.votes {
		if strings.ToLower(record.vote.VoterAddress) == address {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })

	predictions := make([]ports.VoterPrediction, 0, len(records))
	for _, record := range records {
		prediction := ports.VoterPrediction{Vote: record.vote}
		if item, ok := s.items[record.vote.ItemRowID]; ok {
			prediction.ItemID = item.item.ItemID
			prediction.ItemName = item.item.Name
			prediction.ItemFinalRank = item.item.FinalRank
		}
		if ranking, ok := s.rankings[record.vote.RankingID]; ok {
			prediction.Category = ranking.Category
			prediction.Title = ranking.Title
			prediction.RankingActive = ranking.IsActive
			prediction.RankingResolvedAt = ranking.ResolvedAt
		}
		predictions = append(predictions, prediction)
	}
	return predictions, nil
}

func (s *Store) VoteTotals(_ context.Context) (int, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voters := make(map[string]struct{})
	totalStaked := 0.0
	for _, record := range s.votes {
		voters[strings.ToLower(record.vote.VoterAddress)] = struct{}{}
		totalStaked += record.vote.StakeAmount
	}
	return len(voters), totalStaked, nil
}

func resolutionKey(rankingID, week string) string {
	return rankingID + "|" + week
}

func (s *Store) SaveResolution(_ context.Context, resolution entities.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := resolutionKey(resolution.RankingID, resolution.Week)
	if _, ok := s.weekIndex[key]; ok {
		return domainerrors.ErrResolutionExists
	}
	s.seq++
	s.resolutions[resolution.ResolutionID] = resolutionRecord{resolution: resolution, seq: s.seq}
	s.weekIndex[key] = resolution.ResolutionID
	return nil
}

func (s *Store) GetResolutionByWeek(_ context.Context, rankingID string, week string) (entities.Resolution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolutionID, ok := s.weekIndex[resolutionKey(rankingID, week)]
	if !ok {
		return entities.Resolution{}, false, nil
	}
	return s.resolutions[resolutionID].resolution, true, nil
}

func (s *Store) GetLatestResolutionByRanking(_ context.Context, rankingID string) (entities.Resolution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best resolutionRecord
	found := false
	for _, record := range s.resolutions {
		if record.resolution.RankingID != rankingID {
			continue
		}
		if !found || record.seq > best.seq {
			best = record
			found = true
		}
	}
	return best.resolution, found, nil
}

func (s *Store) ListResolutions(_ context.Context, category string, limit int) ([]ports.ResolutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category = strings.TrimSpace(category)
	records := make([]resolutionRecord, 0, len(s.resolutions))
	for _, record := range s.resolutions {
		ranking, ok := s.rankings[record.resolution.RankingID]
		if !ok {
			continue
		}
		if category != "" && !strings.EqualFold(ranking.Category, category) {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].resolution.ResolvedAt.Equal(records[j].resolution.ResolvedAt) {
			return records[i].seq > records[j].seq
		}
		return records[i].resolution.ResolvedAt.After(records[j].resolution.ResolvedAt)
	})

	result := make([]ports.ResolutionRecord, 0, len(records))
	for _, record := range records {
		if limit > 0 && len(result) >= limit {
			break
		}
		ranking := s.rankings[record.resolution.RankingID]
		result = append(result, ports.ResolutionRecord{
			Resolution: record.resolution,
			Category:   ranking.Category,
			Title:      ranking.Title,
		})
	}
	return result, nil
}

func (s *Store) CountResolutions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resolutions), nil
}

func (s *Store) LastResolution(_ context.Context) (entities.Resolution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best resolutionRecord
	found := false
	for _, record := range s.resolutions {
		if !found || record.seq > best.seq {
			best = record
			found = true
		}
	}
	return best.resolution, found, nil
}

func (s *Store) GetUser(_ context.Context, address string) (entities.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[strings.ToLower(strings.TrimSpace(address))]
	return user, ok, nil
}

func (s *Store) CreateUser(_ context.Context, user entities.User) (entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(user.Address))
	if existing, ok := s.users[key]; ok {
		return existing, nil
	}
	user.Address = key
	s.users[key] = user
	return user, nil
}

func (s *Store) IncrementBalance(_ context.Context, address string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(address))
	user, ok := s.users[key]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	user.DroneBalance += amount
	user.UpdatedAt = s.nowLocked()
	s.users[key] = user
	return nil
}

func (s *Store) AdjustReputation(_ context.Context, address string, delta float64) (entities.FeeTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(address))
	user, ok := s.users[key]
	if !ok {
		return "", domainerrors.ErrUserNotFound
	}
	next := services.NextReputation(user.ReputationScore, delta)
	user.ReputationScore = next
	user.FeeTier = services.FeeTierFor(next)
	user.UpdatedAt = s.nowLocked()
	s.users[key] = user
	return user.FeeTier, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.seq++
	s.outbox[envelope.EventID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.EntityID,
			Payload:      payload,
			CreatedAt:    s.nowLocked(),
		},
		seq: s.seq,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]outboxRecord, 0)
	for _, record := range s.outbox {
		if !record.published {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	messages := make([]ports.OutboxMessage, 0, len(records))
	for _, record := range records {
		if limit > 0 && len(messages) >= limit {
			break
		}
		messages = append(messages, record.message)
	}
	return messages, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

func (s *Store) nowLocked() time.Time {
	if !s.fixedNow.IsZero() {
		return s.fixedNow
	}
	return time.Now().UTC()
}

var _ ports.Store = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
