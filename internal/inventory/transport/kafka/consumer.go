package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/service"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/kafka"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.uber.org/zap"
)

// Consumer feeds order announcements into the reservation service.
type Consumer struct {
	service service.ReservationService
	logger  *zap.Logger
}

func NewConsumer(service service.ReservationService, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID string) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{events.TopicOrderCreated},
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

	var event events.OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logging.Error(ctx, c.logger, "Failed to unmarshal OrderCreatedEvent", zap.Error(err))
		return err
	}

	if err := c.service.HandleOrderCreated(ctx, &event); err != nil {
		logging.Error(ctx, c.logger, "Failed to handle order", zap.Int64("order_id", event.OrderID), zap.Error(err))
		return err
	}

	return nil
}
