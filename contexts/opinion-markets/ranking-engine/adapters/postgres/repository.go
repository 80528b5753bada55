package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	domainerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
	"scarab/internal/shared/events"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Transact binds a repository view to one database transaction so a round's
// closing writes commit atomically.
func (r *Repository) Transact(ctx context.Context, fn func(ports.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

func (r *Repository) GetRanking(ctx context.Context, rankingID string) (entities.Ranking, error) {
	var row rankingModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(rankingID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ranking{}, domainerrors.ErrRankingNotFound
		}
		return entities.Ranking{}, r.logError("ranking_repo_get_ranking_failed", err, "ranking_id", strings.TrimSpace(rankingID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetActiveRankingByCategory(ctx context.Context, category string) (entities.Ranking, bool, error) {
	var row rankingModel
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Where("LOWER(category) = LOWER(?)", strings.TrimSpace(category)).
		Order("resolves_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ranking{}, false, nil
		}
		return entities.Ranking{}, false, r.logError("ranking_repo_get_active_ranking_failed", err, "category", strings.TrimSpace(category))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetLatestRankingByCategory(ctx context.Context, category string) (entities.Ranking, bool, error) {
	var row rankingModel
	err := r.db.WithContext(ctx).
		Where("LOWER(category) = LOWER(?)", strings.TrimSpace(category)).
		Order("resolves_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ranking{}, false, nil
		}
		return entities.Ranking{}, false, r.logError("ranking_repo_get_latest_ranking_failed", err, "category", strings.TrimSpace(category))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListDueRankings(ctx context.Context, now time.Time) ([]entities.Ranking, error) {
	var rows []rankingModel
	if err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Where("resolves_at <= ?", now.UTC()).
		Order("resolves_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_due_rankings_failed", err)
	}
	rankings := make([]entities.Ranking, 0, len(rows))
	for _, row := range rows {
		rankings = append(rankings, row.toEntity())
	}
	return rankings, nil
}

func (r *Repository) CountDueRankings(ctx context.Context, now time.Time) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&rankingModel{}).
		Where("is_active = TRUE").
		Where("resolves_at <= ?", now.UTC()).
		Count(&count).Error; err != nil {
		return 0, r.logError("ranking_repo_count_due_rankings_failed", err)
	}
	return int(count), nil
}

func (r *Repository) CountActiveRankings(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&rankingModel{}).
		Where("is_active = TRUE").
		Count(&count).Error; err != nil {
		return 0, r.logError("ranking_repo_count_active_rankings_failed", err)
	}
	return int(count), nil
}

func (r *Repository) NextDueRanking(ctx context.Context) (entities.Ranking, bool, error) {
	var row rankingModel
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Order("resolves_at ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ranking{}, false, nil
		}
		return entities.Ranking{}, false, r.logError("ranking_repo_next_due_ranking_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveRanking(ctx context.Context, ranking entities.Ranking) error {
	row := rankingModelFromEntity(ranking)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":        row.Title,
			"description":  row.Description,
			"resolves_at":  row.ResolvesAt,
			"is_active":    row.IsActive,
			"resolved_at":  row.ResolvedAt,
			"total_staked": row.TotalStaked,
			"total_voters": row.TotalVoters,
			"updated_at":   row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ranking_repo_save_ranking_failed", create.Error, "ranking_id", row.ID)
	}
	return nil
}

func (r *Repository) HasActiveRankingSince(ctx context.Context, category string, since time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&rankingModel{}).
		Where("is_active = TRUE").
		Where("LOWER(category) = LOWER(?)", strings.TrimSpace(category)).
		Where("resolves_at > ?", since.UTC()).
		Count(&count).Error; err != nil {
		return false, r.logError("ranking_repo_has_active_ranking_failed", err, "category", strings.TrimSpace(category))
	}
	return count > 0, nil
}

func (r *Repository) CreateRanking(ctx context.Context, ranking entities.Ranking, items []entities.Item) (bool, error) {
	row := rankingModelFromEntity(ranking)
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// (category, resolves_at) uniqueness absorbs concurrent spawns of the
		// same round.
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}, {Name: "resolves_at"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			if isUniqueViolation(create.Error) {
				return nil
			}
			return create.Error
		}
		if create.RowsAffected == 0 {
			return nil
		}
		created = true
		for _, item := range items {
			itemRow := itemModelFromEntity(item)
			if err := tx.Create(&itemRow).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, r.logError("ranking_repo_create_ranking_failed", err,
			"ranking_id", row.ID,
			"category", row.Category,
		)
	}
	return created, nil
}

func (r *Repository) ListItemsByRanking(ctx context.Context, rankingID string) ([]entities.Item, error) {
	var rows []itemModel
	if err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_items_failed", err, "ranking_id", strings.TrimSpace(rankingID))
	}
	items := make([]entities.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetItemByKey(ctx context.Context, rankingID string, itemID string) (entities.Item, bool, error) {
	var row itemModel
	err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		Where("LOWER(item_id) = LOWER(?)", strings.TrimSpace(itemID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Item{}, false, nil
		}
		return entities.Item{}, false, r.logError("ranking_repo_get_item_failed", err,
			"ranking_id", strings.TrimSpace(rankingID),
			"item_id", strings.TrimSpace(itemID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveItem(ctx context.Context, item entities.Item) error {
	row := itemModelFromEntity(item)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":                 row.Name,
			"description":          row.Description,
			"logo_url":             row.LogoURL,
			"chain":                row.Chain,
			"current_score":        row.CurrentScore,
			"current_rank":         row.CurrentRank,
			"stake_weighted_votes": row.StakeWeightedVotes,
			"voter_count":          row.VoterCount,
			"consensus":            row.Consensus,
			"final_rank":           row.FinalRank,
			"final_score":          row.FinalScore,
			"updated_at":           row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ranking_repo_save_item_failed", create.Error, "item_row_id", row.ID)
	}
	return nil
}

func (r *Repository) UpsertVote(ctx context.Context, vote entities.Vote) (entities.Vote, error) {
	row := voteModelFromEntity(vote)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ranking_id"}, {Name: "item_row_id"}, {Name: "voter_address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"is_agent":         row.IsAgent,
			"ranked_position":  row.RankedPosition,
			"stake_amount":     row.StakeAmount,
			"voter_reputation": row.VoterReputation,
			"effective_weight": row.EffectiveWeight,
			"updated_at":       row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return entities.Vote{}, r.logError("ranking_repo_upsert_vote_failed", create.Error,
			"ranking_id", row.RankingID,
			"voter_address", row.VoterAddress,
		)
	}

	var stored voteModel
	err := r.db.WithContext(ctx).
		Where("ranking_id = ?", row.RankingID).
		Where("item_row_id = ?", row.ItemRowID).
		Where("voter_address = ?", row.VoterAddress).
		First(&stored).
		Error
	if err != nil {
		return entities.Vote{}, r.logError("ranking_repo_load_upserted_vote_failed", err,
			"ranking_id", row.RankingID,
			"voter_address", row.VoterAddress,
		)
	}
	return stored.toEntity(), nil
}

func (r *Repository) ListVotesByRanking(ctx context.Context, rankingID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_votes_failed", err, "ranking_id", strings.TrimSpace(rankingID))
	}
	votes := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, row.toEntity())
	}
	return votes, nil
}

func (r *Repository) SetVoteResolution(ctx context.Context, voteID string, accuracy float64, rewardEarned float64) error {
	update := r.db.WithContext(ctx).Model(&voteModel{}).
		Where("id = ?", strings.TrimSpace(voteID)).
		Updates(map[string]any{
			"accuracy":      accuracy,
			"reward_earned": rewardEarned,
			"updated_at":    time.Now().UTC(),
		})
	if update.Error != nil {
		return r.logError("ranking_repo_set_vote_resolution_failed", update.Error, "vote_id", strings.TrimSpace(voteID))
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrVoteNotFound
	}
	return nil
}

type predictionRow struct {
	voteModel
	ItemKey           string     `gorm:"column:item_key"`
	ItemName          string     `gorm:"column:item_name"`
	ItemFinalRank     *int       `gorm:"column:item_final_rank"`
	Category          string     `gorm:"column:category"`
	Title             string     `gorm:"column:title"`
	RankingActive     bool       `gorm:"column:ranking_active"`
	RankingResolvedAt *time.Time `gorm:"column:ranking_resolved_at"`
}

func (r *Repository) ListVoterPredictions(ctx context.Context, voterAddress string) ([]ports.VoterPrediction, error) {
	address := strings.ToLower(strings.TrimSpace(voterAddress))
	var rows []predictionRow
	err := r.db.WithContext(ctx).
		Table("opinion_votes AS v").
		Select("v.*, i.item_id AS item_key, i.name AS item_name, i.final_rank AS item_final_rank, rk.category, rk.title, rk.is_active AS ranking_active, rk.resolved_at AS ranking_resolved_at").
		Joins("JOIN opinion_items AS i ON i.id = v.item_row_id").
		Joins("JOIN opinion_rankings AS rk ON rk.id = v.ranking_id").
		Where("v.voter_address = ?", address).
		Order("v.created_at DESC, v.id DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, r.logError("ranking_repo_list_voter_predictions_failed", err, "voter_address", address)
	}

	predictions := make([]ports.VoterPrediction, 0, len(rows))
	for _, row := range rows {
		predictions = append(predictions, ports.VoterPrediction{
			Vote:              row.voteModel.toEntity(),
			ItemID:            row.ItemKey,
			ItemName:          row.ItemName,
			ItemFinalRank:     row.ItemFinalRank,
			Category:          row.Category,
			Title:             row.Title,
			RankingActive:     row.RankingActive,
			RankingResolvedAt: normalizeOptionalTime(row.RankingResolvedAt),
		})
	}
	return predictions, nil
}

func (r *Repository) VoteTotals(ctx context.Context) (int, float64, error) {
	var totals struct {
		UniqueVoters int64   `gorm:"column:unique_voters"`
		TotalStaked  float64 `gorm:"column:total_staked"`
	}
	err := r.db.WithContext(ctx).Model(&voteModel{}).
		Select("COUNT(DISTINCT voter_address) AS unique_voters, COALESCE(SUM(stake_amount), 0) AS total_staked").
		Scan(&totals).
		Error
	if err != nil {
		return 0, 0, r.logError("ranking_repo_vote_totals_failed", err)
	}
	return int(totals.UniqueVoters), totals.TotalStaked, nil
}

func (r *Repository) SaveResolution(ctx context.Context, resolution entities.Resolution) error {
	row, err := resolutionModelFromEntity(resolution)
	if err != nil {
		return r.logError("ranking_repo_encode_resolution_failed", err, "resolution_id", strings.TrimSpace(resolution.ResolutionID))
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ranking_id"}, {Name: "week"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrResolutionExists
		}
		return r.logError("ranking_repo_save_resolution_failed", create.Error,
			"ranking_id", row.RankingID,
			"week", row.Week,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrResolutionExists
	}
	return nil
}

func (r *Repository) GetResolutionByWeek(ctx context.Context, rankingID string, week string) (entities.Resolution, bool, error) {
	var row resolutionModel
	err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		Where("week = ?", strings.TrimSpace(week)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Resolution{}, false, nil
		}
		return entities.Resolution{}, false, r.logError("ranking_repo_get_resolution_by_week_failed", err,
			"ranking_id", strings.TrimSpace(rankingID),
			"week", strings.TrimSpace(week),
		)
	}
	resolution, err := row.toEntity()
	if err != nil {
		return entities.Resolution{}, false, r.logError("ranking_repo_decode_resolution_failed", err, "resolution_id", row.ID)
	}
	return resolution, true, nil
}

func (r *Repository) GetLatestResolutionByRanking(ctx context.Context, rankingID string) (entities.Resolution, bool, error) {
	var row resolutionModel
	err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		Order("resolved_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Resolution{}, false, nil
		}
		return entities.Resolution{}, false, r.logError("ranking_repo_get_latest_resolution_failed", err, "ranking_id", strings.TrimSpace(rankingID))
	}
	resolution, err := row.toEntity()
	if err != nil {
		return entities.Resolution{}, false, r.logError("ranking_repo_decode_resolution_failed", err, "resolution_id", row.ID)
	}
	return resolution, true, nil
}

type resolutionListRow struct {
	resolutionModel
	Category string `gorm:"column:category"`
	Title    string `gorm:"column:title"`
}

func (r *Repository) ListResolutions(ctx context.Context, category string, limit int) ([]ports.ResolutionRecord, error) {
	tx := r.db.WithContext(ctx).
		Table("opinion_resolutions AS res").
		Select("res.*, rk.category, rk.title").
		Joins("JOIN opinion_rankings AS rk ON rk.id = res.ranking_id").
		Order("res.resolved_at DESC, res.id DESC")
	if strings.TrimSpace(category) != "" {
		tx = tx.Where("LOWER(rk.category) = LOWER(?)", strings.TrimSpace(category))
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []resolutionListRow
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_resolutions_failed", err, "category", strings.TrimSpace(category))
	}

	records := make([]ports.ResolutionRecord, 0, len(rows))
	for _, row := range rows {
		resolution, err := row.resolutionModel.toEntity()
		if err != nil {
			return nil, r.logError("ranking_repo_decode_resolution_failed", err, "resolution_id", row.ID)
		}
		records = append(records, ports.ResolutionRecord{
			Resolution: resolution,
			Category:   row.Category,
			Title:      row.Title,
		})
	}
	return records, nil
}

func (r *Repository) CountResolutions(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&resolutionModel{}).Count(&count).Error; err != nil {
		return 0, r.logError("ranking_repo_count_resolutions_failed", err)
	}
	return int(count), nil
}

func (r *Repository) LastResolution(ctx context.Context) (entities.Resolution, bool, error) {
	var row resolutionModel
	err := r.db.WithContext(ctx).
		Order("resolved_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Resolution{}, false, nil
		}
		return entities.Resolution{}, false, r.logError("ranking_repo_last_resolution_failed", err)
	}
	resolution, err := row.toEntity()
	if err != nil {
		return entities.Resolution{}, false, r.logError("ranking_repo_decode_resolution_failed", err, "resolution_id", row.ID)
	}
	return resolution, true, nil
}

func (r *Repository) GetUser(ctx context.Context, address string) (entities.User, bool, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("address = ?", strings.ToLower(strings.TrimSpace(address))).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.User{}, false, nil
		}
		return entities.User{}, false, r.logError("ranking_repo_get_user_failed", err, "address", strings.ToLower(strings.TrimSpace(address)))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CreateUser(ctx context.Context, user entities.User) (entities.User, error) {
	row := userModelFromEntity(user)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return entities.User{}, r.logError("ranking_repo_create_user_failed", create.Error, "address", row.Address)
	}

	var stored userModel
	if err := r.db.WithContext(ctx).
		Where("address = ?", row.Address).
		First(&stored).Error; err != nil {
		return entities.User{}, r.logError("ranking_repo_load_created_user_failed", err, "address", row.Address)
	}
	return stored.toEntity(), nil
}

func (r *Repository) IncrementBalance(ctx context.Context, address string, amount float64) error {
	update := r.db.WithContext(ctx).Model(&userModel{}).
		Where("address = ?", strings.ToLower(strings.TrimSpace(address))).
		Updates(map[string]any{
			"drone_balance": gorm.Expr("drone_balance + ?", amount),
			"updated_at":    time.Now().UTC(),
		})
	if update.Error != nil {
		return r.logError("ranking_repo_increment_balance_failed", update.Error, "address", strings.ToLower(strings.TrimSpace(address)))
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (r *Repository) AdjustReputation(ctx context.Context, address string, delta float64) (entities.FeeTier, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	var row userModel
	err := r.db.WithContext(ctx).
		Where("address = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domainerrors.ErrUserNotFound
		}
		return "", r.logError("ranking_repo_load_user_for_reputation_failed", err, "address", key)
	}

	next := services.NextReputation(row.ReputationScore, delta)
	tier := services.FeeTierFor(next)
	update := r.db.WithContext(ctx).Model(&userModel{}).
		Where("address = ?", key).
		Updates(map[string]any{
			"reputation_score": next,
			"fee_tier":         string(tier),
			"updated_at":       time.Now().UTC(),
		})
	if update.Error != nil {
		return "", r.logError("ranking_repo_adjust_reputation_failed", update.Error, "address", key)
	}
	return tier, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ranking_repo_encode_outbox_failed", err, "event_id", envelope.EventID)
	}
	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.EntityID,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAtUTC.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ranking_repo_append_outbox_failed", err, "event_id", envelope.EventID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC, outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_pending_outbox_failed", err)
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	timestamp := publishedAt.UTC()
	update := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &timestamp,
		})
	if update.Error != nil {
		return r.logError("ranking_repo_mark_outbox_published_failed", update.Error, "outbox_id", strings.TrimSpace(outboxID))
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "opinion-markets/ranking-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ranking repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Store = (*Repository)(nil)
