package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pos/internal/db"
)

// PGStore persists events into the domain_events table.
type PGStore struct {
	Queries *db.Queries
}

// InsertDomainEvent implements EventStore.
func (s PGStore) InsertDomainEvent(ctx context.Context, ev Event) error {
	return s.Queries.InsertDomainEvent(ctx, db.InsertDomainEventParams{
		ID:          pgtype.UUID{Bytes: ev.ID, Valid: true},
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		Payload:     ev.Payload,
		OccurredAt:  pgtype.Timestamptz{Time: ev.OccurredAt, Valid: true},
	})
}
