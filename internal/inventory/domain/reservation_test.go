package domain

import (
	"testing"

	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockOf(items ...InventoryItem) map[int64]InventoryItem {
	stock := make(map[int64]InventoryItem, len(items))
	for _, item := range items {
		stock[item.ProductID] = item
	}
	return stock
}

func TestBuildReservationPlan_AllLinesReserved(t *testing.T) {
	stock := stockOf(
		InventoryItem{ProductID: 1, QuantityAvailable: 10},
		InventoryItem{ProductID: 2, QuantityAvailable: 3},
	)
	lines := []events.OrderCreatedItem{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 3},
	}

	plan := BuildReservationPlan(lines, stock)

	assert.True(t, plan.AllReserved())
	require.Len(t, plan.Reserved, 2)
	assert.Equal(t, events.ReservedItem{ProductID: 1, QuantityReserved: 5}, plan.Reserved[0])
	assert.Equal(t, events.ReservedItem{ProductID: 2, QuantityReserved: 3}, plan.Reserved[1])
}

func TestBuildReservationPlan_InsufficientStockReportsTrueAvailability(t *testing.T) {
	stock := stockOf(InventoryItem{ProductID: 1, QuantityAvailable: 3})
	lines := []events.OrderCreatedItem{{ProductID: 1, Quantity: 5}}

	plan := BuildReservationPlan(lines, stock)

	assert.False(t, plan.AllReserved())
	require.Len(t, plan.Failed, 1)
	assert.Equal(t, events.FailedItem{ProductID: 1, RequestedQuantity: 5, AvailableQuantity: 3}, plan.Failed[0])
	assert.Empty(t, plan.Reserved)
}

func TestBuildReservationPlan_MissingProductFailsWithZeroAvailability(t *testing.T) {
	plan := BuildReservationPlan(
		[]events.OrderCreatedItem{{ProductID: 99, Quantity: 1}},
		stockOf(),
	)

	assert.False(t, plan.AllReserved())
	require.Len(t, plan.Failed, 1)
	assert.Equal(t, events.FailedItem{ProductID: 99, RequestedQuantity: 1, AvailableQuantity: 0}, plan.Failed[0])
}

func TestBuildReservationPlan_MixedOutcomeKeepsAllLines(t *testing.T) {
	// One good line does not rescue the order; the plan still records it so
	// the failure event can list exactly what went wrong.
	stock := stockOf(
		InventoryItem{ProductID: 1, QuantityAvailable: 10},
		InventoryItem{ProductID: 2, QuantityAvailable: 1},
	)
	lines := []events.OrderCreatedItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 4},
	}

	plan := BuildReservationPlan(lines, stock)

	assert.False(t, plan.AllReserved())
	assert.Len(t, plan.Reserved, 1)
	assert.Len(t, plan.Failed, 1)
}

func TestBuildReservationPlan_RepeatedLinesShareTheSnapshot(t *testing.T) {
	stock := stockOf(InventoryItem{ProductID: 1, QuantityAvailable: 5})
	lines := []events.OrderCreatedItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 1, Quantity: 3},
	}

	plan := BuildReservationPlan(lines, stock)

	assert.False(t, plan.AllReserved())
	require.Len(t, plan.Failed, 1)
	assert.Equal(t, int32(2), plan.Failed[0].AvailableQuantity)
}

func TestBuildReservationPlan_NoLines(t *testing.T) {
	plan := BuildReservationPlan(nil, stockOf())

	assert.True(t, plan.AllReserved())
	assert.Empty(t, plan.Reserved)
}
