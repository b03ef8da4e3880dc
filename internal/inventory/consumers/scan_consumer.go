package consumers

import (
	"context"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

// ScanQueueName is the durable queue shared by all scan workers
const ScanQueueName = "inventory-service.notification-scan"

// ScanConsumer runs notification scans requested over the broker
type ScanConsumer struct {
	consumer *messaging.Consumer
	runner   service.ScanRunner
	logger   *logger.Logger
}

// NewScanConsumer creates a new scan request consumer
func NewScanConsumer(rmq *messaging.RabbitMQ, runner service.ScanRunner, log *logger.Logger) (*ScanConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, ScanQueueName, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, messaging.EventScanRequested); err != nil {
		return nil, err
	}

	c := &ScanConsumer{
		consumer: consumer,
		runner:   runner,
		logger:   log.WithComponent("scan-consumer"),
	}
	consumer.RegisterHandler(messaging.EventScanRequested, c.handleScanRequested)

	return c, nil
}

// Start starts consuming messages
func (c *ScanConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *ScanConsumer) handleScanRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.ScanRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Debug().
		Str("reason", data.Reason).
		Int64("entity_id", data.EntityID).
		Str("correlation_id", event.CorrelationID).
		Msg("received scan request")

	return c.runner.ScanAll(ctx)
}
