package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/repository"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/db"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type InventoryService interface {
	InitializeStock(ctx context.Context, productID int64, quantity int32) (*domain.InventoryItem, error)
	UpdateStock(ctx context.Context, productID int64, delta int32) (*domain.InventoryItem, error)
	GetInventoryByProductID(ctx context.Context, productID int64) (*domain.InventoryItem, error)
}

type inventoryService struct {
	db            db.Beginner
	logger        *zap.Logger
	inventoryRepo repository.InventoryRepository
	tracer        trace.Tracer
}

func NewInventoryService(
	database db.Beginner,
	logger *zap.Logger,
	inventoryRepo repository.InventoryRepository,
) InventoryService {
	return &inventoryService{
		db:            database,
		logger:        logger,
		inventoryRepo: inventoryRepo,
		tracer:        otel.Tracer("inventory_service"),
	}
}

// InitializeStock sets the available quantity for a product, creating the
// record if it does not exist yet. Any previously reserved quantity is
// cleared; this is an operator action, not part of the saga.
func (s *inventoryService) InitializeStock(ctx context.Context, productID int64, quantity int32) (*domain.InventoryItem, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.InitializeStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative, got %d", quantity)
	}

	item, err := s.inventoryRepo.UpsertStock(ctx, productID, quantity)
	if err != nil {
		logging.Error(ctx, s.logger, "Failed to initialize stock", zap.Error(err))

		return nil, err
	}

	logging.Info(
		ctx,
		s.logger,
		"Stock initialized",
		zap.Int64("product_id", productID),
		zap.Int32("quantity_available", item.QuantityAvailable),
	)

	return item, nil
}

// UpdateStock applies a signed delta to the available quantity. A delta that
// would drive the quantity negative is rejected.
func (s *inventoryService) UpdateStock(ctx context.Context, productID int64, delta int32) (*domain.InventoryItem, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.UpdateStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("delta", int(delta)),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	item, err := s.inventoryRepo.AdjustStock(ctx, tx, productID, delta)
	if err != nil {
		if !errors.Is(err, repository.ErrInventoryItemNotFound) && !errors.Is(err, repository.ErrInsufficientStock) {
			logging.Error(ctx, s.logger, "Failed to adjust stock", zap.Error(err))
		}

		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Stock adjusted",
		zap.Int64("product_id", productID),
		zap.Int32("delta", delta),
		zap.Int32("quantity_available", item.QuantityAvailable),
	)

	return item, nil
}

func (s *inventoryService) GetInventoryByProductID(ctx context.Context, productID int64) (*domain.InventoryItem, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetInventoryByProductID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	return s.inventoryRepo.GetByProductID(ctx, productID)
}

func (s *inventoryService) rollback(ctx context.Context, tx pgx.Tx) {
	cleanupCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logging.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}
