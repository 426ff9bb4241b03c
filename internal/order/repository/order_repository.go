package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/domain"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetOrderByID(ctx context.Context, orderID int64) (*domain.Order, error)
	GetOrderStatusForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (domain.OrderStatus, error)
	UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

// CreateOrder inserts the order and its items, filling in the generated ids.
func (r *orderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("customer_id", order.CustomerID))

	query := `
		INSERT INTO orders (customer_id, order_date, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := tx.QueryRow(
		ctx,
		query,
		order.CustomerID,
		order.OrderDate,
		order.Status,
		order.TotalAmount,
	).Scan(&order.ID); err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			itemQuery,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) GetOrderByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetOrderByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		SELECT id, customer_id, order_date, status, total_amount
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.OrderDate,
		&order.Status,
		&order.TotalAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		span.RecordError(err)

		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemQuery := `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, itemQuery, orderID)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning order item: %w", err)
		}

		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		logging.Error(ctx, r.logger, "Rows error", zap.Error(err))

		return nil, err
	}

	return &order, nil
}

// GetOrderStatusForUpdate locks the order row for the rest of the
// transaction so concurrent projections of the same order serialize.
func (r *orderRepo) GetOrderStatusForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (domain.OrderStatus, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetOrderStatusForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		SELECT status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var status domain.OrderStatus
	if err := tx.QueryRow(ctx, query, orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		span.RecordError(err)

		return "", fmt.Errorf("failed to query order status: %w", err)
	}

	return status, nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateOrderStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
