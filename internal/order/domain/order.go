package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusFailed    OrderStatus = "FAILED"
)

type Order struct {
	ID          int64       `db:"id" json:"id"`
	CustomerID  int64       `db:"customer_id" json:"customer_id"`
	OrderDate   time.Time   `db:"order_date" json:"order_date"`
	Status      OrderStatus `db:"status" json:"status"`
	TotalAmount int64       `db:"total_amount" json:"total_amount"`
	Items       []OrderItem `db:"-" json:"items"`
}

// OrderItem snapshots the product name and unit price at order time. Prices
// are minor currency units.
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     int64  `db:"order_id" json:"order_id"`
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
	Quantity    int32  `db:"quantity" json:"quantity"`
	Subtotal    int64  `db:"subtotal" json:"subtotal"`
}

// NewOrder builds a PENDING order, filling in item subtotals and the order
// total from the provided line items.
func NewOrder(customerID int64, items []OrderItem) *Order {
	order := &Order{
		CustomerID: customerID,
		OrderDate:  time.Now().UTC(),
		Status:     StatusPending,
	}

	for _, item := range items {
		item.Subtotal = item.UnitPrice * int64(item.Quantity)
		order.TotalAmount += item.Subtotal
		order.Items = append(order.Items, item)
	}

	return order
}
