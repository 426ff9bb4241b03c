package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/dedup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProcessedEventRepository is the inventory-side dedup keyspace: one claim
// per order id. Failed reservations roll the claim back together with the
// rest of the transaction, so a failed order can be retried after restocking.
type ProcessedEventRepository interface {
	Claim(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error)
}

type processedEventRepo struct {
	tracer trace.Tracer
}

func NewProcessedEventRepository() ProcessedEventRepository {
	return &processedEventRepo{tracer: otel.Tracer("processed_order_events_repo")}
}

func (r *processedEventRepo) Claim(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProcessedEventRepository.Claim")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		INSERT INTO processed_order_events (order_id)
		VALUES ($1)
	`

	claimed, err := dedup.Claim(ctx, tx, query, orderID)
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("claimed", claimed))

	return claimed, err
}
