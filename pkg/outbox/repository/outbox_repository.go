package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/domain"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type outboxRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewOutboxRepository(pool *pgxpool.Pool, logger *zap.Logger) worker.OutboxRepository {
	return &outboxRepo{
		pool:   pool,
		tracer: otel.Tracer("outbox/outbox_repo"),
		logger: logger,
	}
}

// Save inserts the message in the caller's transaction so the state change
// and its announcement commit or roll back together.
func (r *outboxRepo) Save(ctx context.Context, tx pgx.Tx, msg *domain.Message) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("aggregate_type", msg.AggregateType),
		attribute.String("aggregate_id", msg.AggregateID),
		attribute.String("event_type", msg.EventType),
	)

	query := `
		INSERT INTO outbox (aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`

	_, err := tx.Exec(
		ctx,
		query,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.Payload,
	)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

// FetchBatch returns up to limit of the oldest pending messages. It is a
// plain snapshot read; a single relayer per process is assumed, so no row
// locking is taken (scaling out relayer replicas would need
// FOR UPDATE SKIP LOCKED here).
func (r *outboxRepo) FetchBatch(ctx context.Context, limit int) ([]domain.Message, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.FetchBatch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", limit))

	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to query outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.AggregateType,
			&m.AggregateID,
			&m.EventType,
			&m.Payload,
			&m.CreatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning outbox message: %w", err)
		}

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error reading outbox messages: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(messages)))

	return messages, nil
}

// Delete removes a published message. Deleting an already-deleted row is a
// no-op, which keeps the relayer idempotent across overlapping retries.
func (r *outboxRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("message_id", id))

	_, err := r.pool.Exec(ctx, `DELETE FROM outbox WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
	}

	return err
}
