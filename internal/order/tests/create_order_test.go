package tests

import (
	"strconv"

	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
)

func (s *IntegrationTestSuite) TestCreateOrder_PersistsOrderAndOutboxRow() {
	order := s.createOrder()

	s.Require().Equal("PENDING", string(order.Status))
	s.Require().Equal(int64(5350), order.TotalAmount)

	var status string
	err := s.DbPool.QueryRow(s.Ctx, `SELECT status FROM orders WHERE id = $1`, order.ID).Scan(&status)
	s.Require().NoError(err)
	s.Require().Equal("PENDING", status)

	var eventType string
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT event_type FROM outbox WHERE aggregate_id = $1`,
		strconv.FormatInt(order.ID, 10),
	).Scan(&eventType)
	s.Require().NoError(err)
	s.Require().Equal(events.TypeOrderCreated, eventType)
}

func (s *IntegrationTestSuite) TestRelayer_PublishesAndDeletesOutboxRow() {
	order := s.createOrder()

	published, retained, err := s.Relayer.RelayOnce(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, published)
	s.Require().Equal(0, retained)

	messages := s.Producer.messages()
	s.Require().Len(messages, 1)
	s.Require().Equal(events.TopicOrderCreated, messages[0].topic)

	event, ok := messages[0].event.(*events.OrderCreatedEvent)
	s.Require().True(ok)
	s.Require().Equal(order.ID, event.OrderID)
	s.Require().Len(event.OrderItems, 1)

	var count int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&count)
	s.Require().NoError(err)
	s.Require().Equal(0, count, "published rows must be deleted")
}

func (s *IntegrationTestSuite) TestRelayer_EmptyOutboxIsANoOp() {
	published, retained, err := s.Relayer.RelayOnce(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(0, published)
	s.Require().Equal(0, retained)
	s.Require().Empty(s.Producer.messages())
}
