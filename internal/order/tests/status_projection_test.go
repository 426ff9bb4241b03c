package tests

import (
	"sync"
	"time"

	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
)

func (s *IntegrationTestSuite) orderStatus(orderID int64) string {
	var status string
	err := s.DbPool.QueryRow(s.Ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	s.Require().NoError(err)
	return status
}

func (s *IntegrationTestSuite) TestConfirmOrder_MovesPendingToConfirmed() {
	order := s.createOrder()

	err := s.OrderService.ConfirmOrder(s.Ctx, &events.StockReservedEvent{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		EventTimestamp: time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Require().Equal("CONFIRMED", s.orderStatus(order.ID))
}

func (s *IntegrationTestSuite) TestFailOrder_MovesPendingToFailed() {
	order := s.createOrder()

	err := s.OrderService.FailOrder(s.Ctx, &events.StockReservationFailedEvent{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		EventTimestamp: time.Now().UTC(),
		Reason:         "Insufficient stock for some items in order",
	})
	s.Require().NoError(err)
	s.Require().Equal("FAILED", s.orderStatus(order.ID))
}

func (s *IntegrationTestSuite) TestConfirmOrder_DuplicateDeliveryIsANoOp() {
	order := s.createOrder()
	event := &events.StockReservedEvent{OrderID: order.ID, CustomerID: order.CustomerID}

	s.Require().NoError(s.OrderService.ConfirmOrder(s.Ctx, event))
	s.Require().NoError(s.OrderService.ConfirmOrder(s.Ctx, event))

	s.Require().Equal("CONFIRMED", s.orderStatus(order.ID))

	var claims int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_inventory_events WHERE order_id = $1`, order.ID).Scan(&claims)
	s.Require().NoError(err)
	s.Require().Equal(1, claims)
}

func (s *IntegrationTestSuite) TestFailedOrderStaysFailedOnLateReservedEvent() {
	order := s.createOrder()

	s.Require().NoError(s.OrderService.FailOrder(s.Ctx, &events.StockReservationFailedEvent{OrderID: order.ID}))
	s.Require().NoError(s.OrderService.ConfirmOrder(s.Ctx, &events.StockReservedEvent{OrderID: order.ID}))

	s.Require().Equal("FAILED", s.orderStatus(order.ID))
}

// Concurrent deliveries of the same event race on the dedup claim; exactly
// one wins and the order is updated once.
func (s *IntegrationTestSuite) TestConfirmOrder_ConcurrentDeliveries() {
	order := s.createOrder()
	event := &events.StockReservedEvent{OrderID: order.ID, CustomerID: order.CustomerID}

	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.OrderService.ConfirmOrder(s.Ctx, event)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	s.Require().Equal("CONFIRMED", s.orderStatus(order.ID))

	var claims int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_inventory_events WHERE order_id = $1`, order.ID).Scan(&claims)
	s.Require().NoError(err)
	s.Require().Equal(1, claims)
}
