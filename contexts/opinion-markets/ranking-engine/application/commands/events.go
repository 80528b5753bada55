package commands

import (
	"context"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
	"scarab/internal/shared/events"
)

// EventTypeRankingResolved announces a closed round to downstream consumers.
const EventTypeRankingResolved = "ranking.resolved"

func (uc ResolveUseCase) appendResolvedEvent(
	ctx context.Context,
	tx ports.Store,
	ranking entities.Ranking,
	week string,
	totalDistributed float64,
	votersRewarded int,
	nextCreated bool,
	now time.Time,
) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	// Resolution events are partitioned by ranking so per-category consumers
	// observe rounds in order.
	return tx.AppendOutbox(ctx, events.Envelope{
		EventID:        eventID,
		EventType:      EventTypeRankingResolved,
		SourceService:  "ranking-engine",
		OccurredAtUTC:  now.UTC(),
		CorrelationID:  eventID,
		EntityType:     "opinion_ranking",
		EntityID:       ranking.RankingID,
		PayloadVersion: 1,
		Payload: map[string]any{
			"ranking_id":              ranking.RankingID,
			"category":                ranking.Category,
			"week":                    week,
			"total_drone_distributed": totalDistributed,
			"total_voters_rewarded":   votersRewarded,
			"next_ranking_created":    nextCreated,
		},
	})
}
