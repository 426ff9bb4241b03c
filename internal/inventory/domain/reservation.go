package domain

import "github.com/saraiyakush/scalableshop-monorepo/pkg/events"

// ReservationPlan is the outcome of evaluating an order's line items against
// a stock snapshot. It carries every line, succeeded and failed, so the
// caller decides whether to commit the mutations or discard everything —
// reservation is all-or-nothing per order.
type ReservationPlan struct {
	Reserved []events.ReservedItem
	Failed   []events.FailedItem
}

func (p ReservationPlan) AllReserved() bool {
	return len(p.Failed) == 0
}

// BuildReservationPlan evaluates the requested line items against the given
// stock snapshot without mutating it. A missing product fails with available
// quantity 0; an insufficient line fails with the true available quantity.
// Repeated lines for the same product draw down the same snapshot entry.
func BuildReservationPlan(lines []events.OrderCreatedItem, stock map[int64]InventoryItem) ReservationPlan {
	var plan ReservationPlan

	remaining := make(map[int64]int32, len(stock))
	for productID, item := range stock {
		remaining[productID] = item.QuantityAvailable
	}

	for _, line := range lines {
		if _, ok := stock[line.ProductID]; !ok {
			plan.Failed = append(plan.Failed, events.FailedItem{
				ProductID:         line.ProductID,
				RequestedQuantity: line.Quantity,
				AvailableQuantity: 0,
			})
			continue
		}

		available := remaining[line.ProductID]
		if available < line.Quantity {
			plan.Failed = append(plan.Failed, events.FailedItem{
				ProductID:         line.ProductID,
				RequestedQuantity: line.Quantity,
				AvailableQuantity: available,
			})
			continue
		}

		remaining[line.ProductID] = available - line.Quantity
		plan.Reserved = append(plan.Reserved, events.ReservedItem{
			ProductID:        line.ProductID,
			QuantityReserved: line.Quantity,
		})
	}

	return plan
}
