// Package worker runs the outbox relayer: a background poller that turns
// committed outbox rows into broker publishes, giving every row at-least-once
// delivery. Duplicates caused by a crash between publish and delete are the
// consumers' problem (they dedup); ordering across rows is oldest-first
// best-effort only.
package worker

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	Save(ctx context.Context, tx pgx.Tx, msg *domain.Message) error
	FetchBatch(ctx context.Context, limit int) ([]domain.Message, error)
	Delete(ctx context.Context, id int64) error
}

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, message any) error
}

// Codec resolves a stored event type to its decoder and topic.
type Codec interface {
	Decode(eventType string, payload []byte) (any, error)
	TopicFor(eventType string) (string, error)
}

type Relayer struct {
	repo      OutboxRepository
	producer  Producer
	codec     Codec
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewRelayer(
	repo OutboxRepository,
	producer Producer,
	codec Codec,
	logger *zap.Logger,
	interval time.Duration,
	batchSize int,
) *Relayer {
	return &Relayer{
		repo:      repo,
		producer:  producer,
		codec:     codec,
		logger:    logger,
		batchSize: batchSize,
		interval:  interval,
		tracer:    otel.Tracer("outbox-relayer"),
	}
}

// Start polls on a fixed interval until the context is cancelled. At most
// one cycle is in flight at a time per process.
func (r *Relayer) Start(ctx context.Context) {
	logging.Info(ctx, r.logger, "Starting outbox relayer", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info(ctx, r.logger, "Outbox relayer stopping")

			return
		case <-ticker.C:
			if _, _, err := r.RelayOnce(ctx); err != nil {
				logging.Error(ctx, r.logger, "Error relaying outbox batch", zap.Error(err))
			}
		}
	}
}

// RelayOnce processes one batch of the oldest pending messages. Each message
// is handled independently: published and deleted on success, retained for
// the next cycle on publish failure, skipped (and retained) when its payload
// does not decode. There is no quarantine for undecodable rows, so a poison
// message retries forever.
func (r *Relayer) RelayOnce(ctx context.Context) (published, retained int, err error) {
	ctx, span := r.tracer.Start(ctx, "Relayer.RelayOnce")
	defer span.End()

	messages, err := r.repo.FetchBatch(ctx, r.batchSize)
	if err != nil {
		span.RecordError(err)

		return 0, 0, err
	}

	if len(messages) == 0 {
		return 0, 0, nil
	}

	logging.Info(ctx, r.logger, "Processing outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		event, err := r.codec.Decode(msg.EventType, msg.Payload)
		if err != nil {
			logging.Error(
				ctx,
				r.logger,
				"Failed to decode outbox payload, skipping",
				zap.Int64("id", msg.ID),
				zap.String("event_type", msg.EventType),
				zap.Error(err),
			)
			retained++
			continue
		}

		topic, err := r.codec.TopicFor(msg.EventType)
		if err != nil {
			logging.Error(
				ctx,
				r.logger,
				"No topic for outbox event type, skipping",
				zap.Int64("id", msg.ID),
				zap.String("event_type", msg.EventType),
				zap.Error(err),
			)
			retained++
			continue
		}

		if err := r.producer.ProduceMessage(ctx, topic, event); err != nil {
			// Broker trouble: leave the row, retried next cycle.
			logging.Error(
				ctx,
				r.logger,
				"Failed to publish outbox message, will retry later",
				zap.Int64("id", msg.ID),
				zap.String("topic", topic),
				zap.Error(err),
			)
			retained++
			continue
		}

		if err := r.repo.Delete(ctx, msg.ID); err != nil {
			// Publish succeeded but the delete did not; the row will be
			// re-published next cycle and consumers dedup the duplicate.
			logging.Error(
				ctx,
				r.logger,
				"Failed to delete published outbox message",
				zap.Int64("id", msg.ID),
				zap.Error(err),
			)
			retained++
			continue
		}

		logging.Debug(
			ctx,
			r.logger,
			"Outbox message published",
			zap.Int64("id", msg.ID),
			zap.String("event_type", msg.EventType),
			zap.String("aggregate_id", msg.AggregateID),
		)
		published++
	}

	span.SetAttributes(
		attribute.Int("outbox.published", published),
		attribute.Int("outbox.retained", retained),
	)

	return published, retained, nil
}
