package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/dedup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProcessedEventRepository is the order-side dedup keyspace: one claim per
// (orderId, eventType), so the reserved and failed replies for the same
// order dedup independently.
type ProcessedEventRepository interface {
	Claim(ctx context.Context, tx pgx.Tx, orderID int64, eventType string) (bool, error)
}

type processedEventRepo struct {
	tracer trace.Tracer
}

func NewProcessedEventRepository() ProcessedEventRepository {
	return &processedEventRepo{tracer: otel.Tracer("processed_inventory_events_repo")}
}

func (r *processedEventRepo) Claim(ctx context.Context, tx pgx.Tx, orderID int64, eventType string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProcessedEventRepository.Claim")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("event_type", eventType),
	)

	query := `
		INSERT INTO processed_inventory_events (order_id, event_type)
		VALUES ($1, $2)
	`

	claimed, err := dedup.Claim(ctx, tx, query, orderID, eventType)
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("claimed", claimed))

	return claimed, err
}
