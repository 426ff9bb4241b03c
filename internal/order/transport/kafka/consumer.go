package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/service"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/kafka"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.uber.org/zap"
)

// Consumer feeds inventory replies into the order status projector.
type Consumer struct {
	service service.OrderService
	logger  *zap.Logger
}

func NewConsumer(service service.OrderService, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID string) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{events.TopicStockReserved, events.TopicStockReservationFailed},
		c.processMessage,
		c.logger,
	)

	consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logging.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
	)

	switch msg.Topic {
	case events.TopicStockReserved:
		var event events.StockReservedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logging.Error(ctx, c.logger, "Failed to unmarshal StockReservedEvent", zap.Error(err))
			return err
		}

		if err := c.service.ConfirmOrder(ctx, &event); err != nil {
			logging.Error(ctx, c.logger, "Failed to confirm order", zap.Int64("order_id", event.OrderID), zap.Error(err))
			return err
		}
	case events.TopicStockReservationFailed:
		var event events.StockReservationFailedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logging.Error(ctx, c.logger, "Failed to unmarshal StockReservationFailedEvent", zap.Error(err))
			return err
		}

		if err := c.service.FailOrder(ctx, &event); err != nil {
			logging.Error(ctx, c.logger, "Failed to fail order", zap.Int64("order_id", event.OrderID), zap.Error(err))
			return err
		}
	default:
		logging.Warn(ctx, c.logger, "Ignored message from unexpected topic", zap.String("topic", msg.Topic))
	}

	return nil
}
