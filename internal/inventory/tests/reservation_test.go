package tests

import (
	"sync"

	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
)

func (s *IntegrationTestSuite) TestHandleOrderCreated_ReservesStock() {
	s.seedStock(1, 10)

	err := s.ReservationService.HandleOrderCreated(s.Ctx, &events.OrderCreatedEvent{
		OrderID:    42,
		CustomerID: 7,
		OrderItems: []events.OrderCreatedItem{{ProductID: 1, Quantity: 5}},
	})
	s.Require().NoError(err)

	available, reserved := s.stockOf(1)
	s.Require().Equal(int32(5), available)
	s.Require().Equal(int32(5), reserved)

	published, retained, err := s.Relayer.RelayOnce(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, published)
	s.Require().Equal(0, retained)

	messages := s.Producer.messages()
	s.Require().Len(messages, 1)
	s.Require().Equal(events.TopicStockReserved, messages[0].topic)

	reply, ok := messages[0].event.(*events.StockReservedEvent)
	s.Require().True(ok)
	s.Require().Equal(int64(42), reply.OrderID)
	s.Require().Len(reply.ReservedItems, 1)
}

func (s *IntegrationTestSuite) TestHandleOrderCreated_DuplicateDeliveryIsANoOp() {
	s.seedStock(1, 10)

	event := &events.OrderCreatedEvent{
		OrderID:    42,
		CustomerID: 7,
		OrderItems: []events.OrderCreatedItem{{ProductID: 1, Quantity: 5}},
	}

	s.Require().NoError(s.ReservationService.HandleOrderCreated(s.Ctx, event))
	s.Require().NoError(s.ReservationService.HandleOrderCreated(s.Ctx, event))

	available, reserved := s.stockOf(1)
	s.Require().Equal(int32(5), available, "stock must not be drawn down twice")
	s.Require().Equal(int32(5), reserved)

	var outboxRows int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxRows)
	s.Require().NoError(err)
	s.Require().Equal(1, outboxRows)
}

func (s *IntegrationTestSuite) TestHandleOrderCreated_InsufficientStockEmitsFailure() {
	s.seedStock(1, 3)

	err := s.ReservationService.HandleOrderCreated(s.Ctx, &events.OrderCreatedEvent{
		OrderID:    42,
		CustomerID: 7,
		OrderItems: []events.OrderCreatedItem{{ProductID: 1, Quantity: 5}},
	})
	s.Require().NoError(err)

	available, reserved := s.stockOf(1)
	s.Require().Equal(int32(3), available)
	s.Require().Equal(int32(0), reserved)

	// The failed attempt releases its dedup claim.
	var claims int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_order_events`).Scan(&claims)
	s.Require().NoError(err)
	s.Require().Equal(0, claims)

	published, _, err := s.Relayer.RelayOnce(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, published)

	messages := s.Producer.messages()
	s.Require().Len(messages, 1)
	s.Require().Equal(events.TopicStockReservationFailed, messages[0].topic)

	reply, ok := messages[0].event.(*events.StockReservationFailedEvent)
	s.Require().True(ok)
	s.Require().Len(reply.FailedItems, 1)
	s.Require().Equal(int32(5), reply.FailedItems[0].RequestedQuantity)
	s.Require().Equal(int32(3), reply.FailedItems[0].AvailableQuantity)
}

// Concurrent deliveries of the same order race on the dedup claim and on the
// locked inventory rows; the stock must be drawn down exactly once.
func (s *IntegrationTestSuite) TestHandleOrderCreated_ConcurrentDeliveries() {
	s.seedStock(1, 10)

	event := &events.OrderCreatedEvent{
		OrderID:    42,
		CustomerID: 7,
		OrderItems: []events.OrderCreatedItem{{ProductID: 1, Quantity: 5}},
	}

	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.ReservationService.HandleOrderCreated(s.Ctx, event)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	available, reserved := s.stockOf(1)
	s.Require().Equal(int32(5), available)
	s.Require().Equal(int32(5), reserved)

	var outboxRows int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxRows)
	s.Require().NoError(err)
	s.Require().Equal(1, outboxRows)
}

func (s *IntegrationTestSuite) TestUpdateStock_CannotGoNegative() {
	s.seedStock(1, 3)

	_, err := s.InventoryService.UpdateStock(s.Ctx, 1, -5)
	s.Require().Error(err)

	available, _ := s.stockOf(1)
	s.Require().Equal(int32(3), available)
}
