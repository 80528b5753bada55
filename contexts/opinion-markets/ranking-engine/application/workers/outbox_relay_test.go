package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"scarab/contexts/opinion-markets/ranking-engine/adapters/memory"
	"scarab/internal/shared/events"
)

type capturingPublisher struct {
	topics []string
	events []events.Envelope
	failAt int
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event events.Envelope) error {
	if p.failAt > 0 && len(p.events)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, eventIDs ...string) {
	t.Helper()
	for _, id := range eventIDs {
		err := store.AppendOutbox(context.Background(), events.Envelope{
			EventID:        id,
			EventType:      "ranking.resolved",
			SourceService:  "ranking-engine",
			OccurredAtUTC:  time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC),
			EntityType:     "opinion_ranking",
			EntityID:       "ranking-1",
			PayloadVersion: 1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestOutboxRelayPublishesPendingRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedOutbox(t, store, "evt-1", "evt-2")
	publisher := &capturingPublisher{}

	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	if publisher.topics[0] != "ranking.resolved" {
		t.Fatalf("expected event type as topic, got %s", publisher.topics[0])
	}
	if publisher.events[0].EventID != "evt-1" || publisher.events[1].EventID != "evt-2" {
		t.Fatalf("expected append order preserved, got %+v", publisher.events)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d err=%v", len(pending), err)
	}
}

func TestOutboxRelayNoopWhenEmpty(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no publishes, got %d", len(publisher.events))
	}
}

func TestOutboxRelayStopsOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedOutbox(t, store, "evt-1", "evt-2")
	publisher := &capturingPublisher{failAt: 2}

	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(ctx); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	// The first row is marked, the failed one stays pending for the next cycle.
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending row, got %d err=%v", len(pending), err)
	}
	if pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected failed row retained, got %+v", pending[0])
	}
}

func TestOutboxRelayHonorsBatchSize(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedOutbox(t, store, "evt-1", "evt-2", "evt-3")
	publisher := &capturingPublisher{}

	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 2}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected batch limited to 2, got %d", len(publisher.events))
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 row left for the next cycle, got %d err=%v", len(pending), err)
	}
}
