package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/catalog"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/repository"
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

type OrderService interface {
	CreateOrder(ctx context.Context, customerID int64, items []domain.OrderItem) (*domain.Order, error)
	GetOrderByID(ctx context.Context, orderID int64) (*domain.Order, error)
	ConfirmOrder(ctx context.Context, event *events.StockReservedEvent) error
	FailOrder(ctx context.Context, event *events.StockReservationFailedEvent) error
}

type orderService struct {
	db            db.Beginner
	logger        *zap.Logger
	orderRepo     repository.OrderRepository
	processedRepo repository.ProcessedEventRepository
	outboxRepo    worker.OutboxRepository
	catalog       catalog.Client
	tracer        trace.Tracer
}

func NewOrderService(
	database db.Beginner,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	processedRepo repository.ProcessedEventRepository,
	outboxRepo worker.OutboxRepository,
	catalogClient catalog.Client,
) OrderService {
	return &orderService{
		db:            database,
		logger:        logger,
		orderRepo:     orderRepo,
		processedRepo: processedRepo,
		outboxRepo:    outboxRepo,
		catalog:       catalogClient,
		tracer:        otel.Tracer("order_service"),
	}
}

// CreateOrder persists a PENDING order together with the outbox row that
// announces it, in one transaction. The caller supplies pre-validated item
// snapshots (product id, name, unit price, quantity); the catalog is only
// consulted to warn when it cannot confirm current product data.
func (s *orderService) CreateOrder(ctx context.Context, customerID int64, items []domain.OrderItem) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("customer_id", customerID))

	s.checkCatalog(ctx, items)

	order := domain.NewOrder(customerID, items)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		logging.Error(ctx, s.logger, "Failed to create order", zap.Error(err))

		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	msg, err := buildOrderCreatedMessage(order)
	if err != nil {
		// The order must not become visible without its announcement.
		span.RecordError(err)
		logging.Error(
			ctx,
			s.logger,
			"Failed to serialize OrderCreatedEvent, aborting order creation",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to serialize OrderCreatedEvent: %w", err)
	}

	if err := s.outboxRepo.Save(ctx, tx, msg); err != nil {
		logging.Error(ctx, s.logger, "Failed to save outbox message", zap.Error(err))

		return nil, fmt.Errorf("failed to save outbox message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Order created, OrderCreatedEvent queued in outbox",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customerID),
	)

	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrderByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	return s.orderRepo.GetOrderByID(ctx, orderID)
}

func (s *orderService) checkCatalog(ctx context.Context, items []domain.OrderItem) {
	if s.catalog == nil {
		return
	}

	for _, item := range items {
		details, err := s.catalog.GetProductDetails(ctx, item.ProductID)
		if err != nil {
			continue
		}
		if details.FallbackUsed {
			logging.Warn(
				ctx,
				s.logger,
				"Product catalog unavailable, proceeding with snapshot data",
				zap.Int64("product_id", item.ProductID),
			)
		}
	}
}

func buildOrderCreatedMessage(order *domain.Order) (*outboxDomain.Message, error) {
	event := events.OrderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		OrderDate:   order.OrderDate,
		TotalAmount: order.TotalAmount,
	}
	for _, item := range order.Items {
		event.OrderItems = append(event.OrderItems, events.OrderCreatedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return outboxDomain.NewMessage("Order", strconv.FormatInt(order.ID, 10), events.TypeOrderCreated, payload), nil
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	cleanupCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logging.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}
