// Package events holds the saga event records exchanged between the order
// and inventory services, plus the registry that maps a stored event type
// name to its Kafka topic and decoder.
package events

import "time"

const (
	TypeOrderCreated           = "OrderCreatedEvent"
	TypeStockReserved          = "StockReservedEvent"
	TypeStockReservationFailed = "StockReservationFailedEvent"
)

const (
	TopicOrderCreated           = "order.created"
	TopicStockReserved          = "stock.reserved"
	TopicStockReservationFailed = "stock.reservation_failed"
)

type OrderCreatedEvent struct {
	OrderID     int64              `json:"order_id"`
	CustomerID  int64              `json:"customer_id"`
	OrderDate   time.Time          `json:"order_date"`
	TotalAmount int64              `json:"total_amount"`
	OrderItems  []OrderCreatedItem `json:"order_items"`
}

type OrderCreatedItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type StockReservedEvent struct {
	OrderID        int64          `json:"order_id"`
	CustomerID     int64          `json:"customer_id"`
	EventTimestamp time.Time      `json:"event_timestamp"`
	ReservedItems  []ReservedItem `json:"reserved_items"`
}

type ReservedItem struct {
	ProductID        int64 `json:"product_id"`
	QuantityReserved int32 `json:"quantity_reserved"`
}

type StockReservationFailedEvent struct {
	OrderID        int64        `json:"order_id"`
	CustomerID     int64        `json:"customer_id"`
	EventTimestamp time.Time    `json:"event_timestamp"`
	Reason         string       `json:"reason"`
	FailedItems    []FailedItem `json:"failed_items"`
}

type FailedItem struct {
	ProductID         int64 `json:"product_id"`
	RequestedQuantity int32 `json:"requested_quantity"`
	AvailableQuantity int32 `json:"available_quantity"`
}
