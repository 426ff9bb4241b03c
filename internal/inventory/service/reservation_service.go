package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/repository"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/db"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	outboxDomain "github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/domain"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReservationService interface {
	HandleOrderCreated(ctx context.Context, event *events.OrderCreatedEvent) error
}

type reservationService struct {
	db            db.Beginner
	logger        *zap.Logger
	inventoryRepo repository.InventoryRepository
	processedRepo repository.ProcessedEventRepository
	outboxRepo    worker.OutboxRepository
	tracer        trace.Tracer
	now           func() time.Time
}

func NewReservationService(
	database db.Beginner,
	logger *zap.Logger,
	inventoryRepo repository.InventoryRepository,
	processedRepo repository.ProcessedEventRepository,
	outboxRepo worker.OutboxRepository,
) ReservationService {
	return &reservationService{
		db:            database,
		logger:        logger,
		inventoryRepo: inventoryRepo,
		processedRepo: processedRepo,
		outboxRepo:    outboxRepo,
		tracer:        otel.Tracer("reservation_service"),
		now:           time.Now,
	}
}

// HandleOrderCreated reserves stock for every line of the order, or none.
//
// On success the dedup claim, the stock mutations and the StockReservedEvent
// outbox row commit together. On failure everything rolls back — including
// the claim, so the order can be retried after restocking — and only the
// StockReservationFailedEvent outbox row is committed, in its own
// transaction.
func (s *reservationService) HandleOrderCreated(ctx context.Context, event *events.OrderCreatedEvent) error {
	ctx, span := s.tracer.Start(ctx, "ReservationService.HandleOrderCreated")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
		attribute.Int("line_count", len(event.OrderItems)),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	claimed, err := s.processedRepo.Claim(ctx, tx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to claim dedup key: %w", err)
	}
	if !claimed {
		logging.Warn(
			ctx,
			s.logger,
			"Order already processed, skipping",
			zap.Int64("order_id", event.OrderID),
		)

		return nil
	}

	stock, err := s.inventoryRepo.GetForUpdate(ctx, tx, productIDsOf(event.OrderItems))
	if err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}

	plan := domain.BuildReservationPlan(event.OrderItems, stock)
	span.SetAttributes(attribute.Bool("all_reserved", plan.AllReserved()))

	if !plan.AllReserved() {
		// Drop the claim and the row locks before announcing the failure.
		s.rollback(ctx, tx)

		return s.emitReservationFailed(ctx, event, plan)
	}

	for _, line := range plan.Reserved {
		if err := s.inventoryRepo.ApplyReservation(ctx, tx, line.ProductID, line.QuantityReserved); err != nil {
			return fmt.Errorf("failed to apply reservation: %w", err)
		}
	}

	msg, err := s.buildStockReservedMessage(event, plan)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to serialize StockReservedEvent: %w", err)
	}

	if err := s.outboxRepo.Save(ctx, tx, msg); err != nil {
		logging.Error(ctx, s.logger, "Failed to save outbox message", zap.Error(err))

		return fmt.Errorf("failed to save outbox message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Stock reserved, StockReservedEvent queued in outbox",
		zap.Int64("order_id", event.OrderID),
		zap.Int("reserved_lines", len(plan.Reserved)),
	)

	return nil
}

func (s *reservationService) emitReservationFailed(ctx context.Context, event *events.OrderCreatedEvent, plan domain.ReservationPlan) error {
	logging.Warn(
		ctx,
		s.logger,
		"Stock reservation failed",
		zap.Int64("order_id", event.OrderID),
		zap.Int("failed_lines", len(plan.Failed)),
	)

	msg, err := s.buildReservationFailedMessage(event, plan)
	if err != nil {
		return fmt.Errorf("failed to serialize StockReservationFailedEvent: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.outboxRepo.Save(ctx, tx, msg); err != nil {
		logging.Error(ctx, s.logger, "Failed to save outbox message", zap.Error(err))

		return fmt.Errorf("failed to save outbox message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *reservationService) buildStockReservedMessage(event *events.OrderCreatedEvent, plan domain.ReservationPlan) (*outboxDomain.Message, error) {
	reply := events.StockReservedEvent{
		OrderID:        event.OrderID,
		CustomerID:     event.CustomerID,
		EventTimestamp: s.now().UTC(),
		ReservedItems:  plan.Reserved,
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return nil, err
	}

	return outboxDomain.NewMessage("Inventory", strconv.FormatInt(event.OrderID, 10), events.TypeStockReserved, payload), nil
}

func (s *reservationService) buildReservationFailedMessage(event *events.OrderCreatedEvent, plan domain.ReservationPlan) (*outboxDomain.Message, error) {
	reply := events.StockReservationFailedEvent{
		OrderID:        event.OrderID,
		CustomerID:     event.CustomerID,
		EventTimestamp: s.now().UTC(),
		Reason:         fmt.Sprintf("Insufficient stock for some items in order %d", event.OrderID),
		FailedItems:    plan.Failed,
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return nil, err
	}

	return outboxDomain.NewMessage("Inventory", strconv.FormatInt(event.OrderID, 10), events.TypeStockReservationFailed, payload), nil
}

func (s *reservationService) rollback(ctx context.Context, tx pgx.Tx) {
	cleanupCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logging.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}

func productIDsOf(lines []events.OrderCreatedItem) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	return ids
}
