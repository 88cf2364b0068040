package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertDomainEvent = `-- name: InsertDomainEvent :exec
INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)
`

type InsertDomainEventParams struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID string
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) error {
	_, err := q.db.Exec(ctx, insertDomainEvent,
		arg.ID,
		arg.Topic,
		arg.AggregateID,
		arg.Payload,
		arg.OccurredAt,
	)
	return err
}
