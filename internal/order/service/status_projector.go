package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/saraiyakush/scalableshop-monorepo/internal/order/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/repository"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ConfirmOrder moves the order to CONFIRMED when stock was reserved.
// Processing is idempotent: the (orderId, eventType) claim and the status
// change commit together, and a duplicate delivery is a success no-op.
func (s *orderService) ConfirmOrder(ctx context.Context, event *events.StockReservedEvent) error {
	return s.applyStatusChange(ctx, event.OrderID, events.TypeStockReserved, domain.StatusConfirmed)
}

// FailOrder moves the order to FAILED when stock reservation failed.
func (s *orderService) FailOrder(ctx context.Context, event *events.StockReservationFailedEvent) error {
	logging.Info(
		ctx,
		s.logger,
		"Stock reservation failed for order",
		zap.Int64("order_id", event.OrderID),
		zap.String("reason", event.Reason),
	)

	return s.applyStatusChange(ctx, event.OrderID, events.TypeStockReservationFailed, domain.StatusFailed)
}

func (s *orderService) applyStatusChange(ctx context.Context, orderID int64, eventType string, target domain.OrderStatus) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.applyStatusChange")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("event_type", eventType),
		attribute.String("target_status", string(target)),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	claimed, err := s.processedRepo.Claim(ctx, tx, orderID, eventType)
	if err != nil {
		return fmt.Errorf("failed to claim dedup key: %w", err)
	}
	if !claimed {
		logging.Warn(
			ctx,
			s.logger,
			"Event already processed, skipping",
			zap.Int64("order_id", orderID),
			zap.String("event_type", eventType),
		)

		return nil
	}

	status, err := s.orderRepo.GetOrderStatusForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			// The event is still considered handled: commit the claim so a
			// redelivery does not spin on a missing order.
			logging.Warn(
				ctx,
				s.logger,
				"Order not found, cannot update status",
				zap.Int64("order_id", orderID),
				zap.String("event_type", eventType),
			)

			return tx.Commit(ctx)
		}

		return fmt.Errorf("failed to load order: %w", err)
	}

	if status != domain.StatusPending {
		// Second safety net on top of the dedup claim: never move an order
		// that already left PENDING.
		logging.Warn(
			ctx,
			s.logger,
			"Order is not PENDING, skipping status update",
			zap.Int64("order_id", orderID),
			zap.String("current_status", string(status)),
			zap.String("target_status", string(target)),
		)

		return tx.Commit(ctx)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, target); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(target)),
	)

	return nil
}
