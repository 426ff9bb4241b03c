package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type InventoryRepository interface {
	GetByProductID(ctx context.Context, productID int64) (*domain.InventoryItem, error)
	// GetForUpdate locks the rows for the given products and returns what
	// exists; products without a row are simply absent from the map.
	GetForUpdate(ctx context.Context, tx pgx.Tx, productIDs []int64) (map[int64]domain.InventoryItem, error)
	ApplyReservation(ctx context.Context, tx pgx.Tx, productID int64, quantity int32) error
	UpsertStock(ctx context.Context, productID int64, quantity int32) (*domain.InventoryItem, error)
	AdjustStock(ctx context.Context, tx pgx.Tx, productID int64, delta int32) (*domain.InventoryItem, error)
}

type inventoryRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewInventoryRepository(pool *pgxpool.Pool, logger *zap.Logger) InventoryRepository {
	return &inventoryRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("inventory_repository"),
	}
}

func (r *inventoryRepo) GetByProductID(ctx context.Context, productID int64) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.GetByProductID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	query := `
		SELECT product_id, quantity_available, quantity_reserved
		FROM inventory_items
		WHERE product_id = $1
	`

	var item domain.InventoryItem
	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&item.ProductID,
		&item.QuantityAvailable,
		&item.QuantityReserved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		span.RecordError(err)

		return nil, fmt.Errorf("failed to query inventory item: %w", err)
	}

	return &item, nil
}

// GetForUpdate locks every row it finds so concurrent reservations against
// the same products serialize for the rest of the transaction. Rows are
// locked in product id order to keep the lock order stable across orders.
func (r *inventoryRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, productIDs []int64) (map[int64]domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int("product_count", len(productIDs)))

	query := `
		SELECT product_id, quantity_available, quantity_reserved
		FROM inventory_items
		WHERE product_id = ANY($1)
		ORDER BY product_id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, productIDs)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to lock inventory rows: %w", err)
	}
	defer rows.Close()

	stock := make(map[int64]domain.InventoryItem, len(productIDs))
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ProductID, &item.QuantityAvailable, &item.QuantityReserved); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning inventory item: %w", err)
		}

		stock[item.ProductID] = item
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, err
	}

	return stock, nil
}

// ApplyReservation moves quantity from available to reserved. The WHERE
// clause re-checks availability so the database, not just the snapshot the
// caller planned against, is the last word.
func (r *inventoryRepo) ApplyReservation(ctx context.Context, tx pgx.Tx, productID int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.ApplyReservation")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE inventory_items
		SET quantity_available = quantity_available - $1,
		    quantity_reserved = quantity_reserved + $1
		WHERE product_id = $2 AND quantity_available >= $1
	`

	tag, err := tx.Exec(ctx, query, quantity, productID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to apply reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// UpsertStock sets the available quantity for a product, creating the row if
// needed and resetting any reserved quantity.
func (r *inventoryRepo) UpsertStock(ctx context.Context, productID int64, quantity int32) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.UpsertStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		INSERT INTO inventory_items (product_id, quantity_available, quantity_reserved)
		VALUES ($1, $2, 0)
		ON CONFLICT (product_id) DO UPDATE
		SET quantity_available = EXCLUDED.quantity_available,
		    quantity_reserved = 0
		RETURNING product_id, quantity_available, quantity_reserved
	`

	var item domain.InventoryItem
	if err := r.pool.QueryRow(ctx, query, productID, quantity).Scan(
		&item.ProductID,
		&item.QuantityAvailable,
		&item.QuantityReserved,
	); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to upsert stock: %w", err)
	}

	return &item, nil
}

// AdjustStock applies a signed delta to the available quantity. A delta that
// would drive the quantity negative leaves the row untouched.
func (r *inventoryRepo) AdjustStock(ctx context.Context, tx pgx.Tx, productID int64, delta int32) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.AdjustStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("delta", int(delta)),
	)

	query := `
		UPDATE inventory_items
		SET quantity_available = quantity_available + $1
		WHERE product_id = $2 AND quantity_available + $1 >= 0
		RETURNING product_id, quantity_available, quantity_reserved
	`

	var item domain.InventoryItem
	err := tx.QueryRow(ctx, query, delta, productID).Scan(
		&item.ProductID,
		&item.QuantityAvailable,
		&item.QuantityReserved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := r.productExists(ctx, tx, productID)
			if existsErr != nil {
				span.RecordError(existsErr)

				return nil, existsErr
			}
			if !exists {
				return nil, ErrInventoryItemNotFound
			}

			return nil, ErrInsufficientStock
		}
		span.RecordError(err)

		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	return &item, nil
}

func (r *inventoryRepo) productExists(ctx context.Context, tx pgx.Tx, productID int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory_items WHERE product_id = $1)`,
		productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check inventory item: %w", err)
	}

	return exists, nil
}
