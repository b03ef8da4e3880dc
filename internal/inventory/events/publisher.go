package events

import (
	"context"

	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events.
// A nil *InventoryEventPublisher is valid and drops every event, which is
// how the service runs without a broker.
type InventoryEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a publisher on the inventory exchange
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing EventPublisher
func NewWithPublisher(publisher messaging.EventPublisher, log *logger.Logger) *InventoryEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("inventory-events"),
	}
}

// PublishBatchChanged publishes a batch added/updated/disposed event
func (p *InventoryEventPublisher) PublishBatchChanged(ctx context.Context, eventType string, b *repository.Batch, change, itemQuantity int) {
	if p == nil {
		return
	}

	data := messaging.BatchChangedEvent{
		BatchID:        b.ID,
		ItemID:         b.ItemID,
		BatchNumber:    b.BatchNumber,
		QuantityChange: change,
		ItemQuantity:   itemQuantity,
		ExpiryDate:     b.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Int64("batch_id", b.ID).Str("event_type", eventType).Msg("failed to publish batch event")
	}
}

// PublishStockReduced publishes a disbursement event
func (p *InventoryEventPublisher) PublishStockReduced(ctx context.Context, item *repository.InventoryItem, quantity int, patientName string) {
	if p == nil {
		return
	}

	data := messaging.StockReducedEvent{
		ItemID:       item.ID,
		ItemName:     item.Name,
		Quantity:     quantity,
		ItemQuantity: item.QuantityInStock,
		PatientName:  patientName,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockReduced, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to publish stock reduced event")
	}
}

// PublishItemDeleted publishes an item soft delete
func (p *InventoryEventPublisher) PublishItemDeleted(ctx context.Context, item *repository.InventoryItem) {
	if p == nil {
		return
	}

	data := messaging.ItemDeletedEvent{ItemID: item.ID, ItemName: item.Name}
	if err := p.publisher.Publish(ctx, messaging.EventItemDeleted, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to publish item deleted event")
	}
}

// PublishNotificationCreated publishes a newly opened notification
func (p *InventoryEventPublisher) PublishNotificationCreated(ctx context.Context, n *repository.Notification) {
	if p == nil {
		return
	}

	data := messaging.NotificationCreatedEvent{
		NotificationID:   n.ID,
		NotificationType: n.Type,
		EntityID:         n.EntityID,
		Title:            n.Title,
		Message:          n.Message,
	}

	if err := p.publisher.Publish(ctx, messaging.EventNotificationCreated, data); err != nil {
		p.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("failed to publish notification created event")
	}
}

// PublishImportCompleted publishes the outcome of a bulk import
func (p *InventoryEventPublisher) PublishImportCompleted(ctx context.Context, fileName string, succeeded, failed int) {
	if p == nil {
		return
	}

	data := messaging.ImportCompletedEvent{FileName: fileName, Succeeded: succeeded, Failed: failed}
	if err := p.publisher.Publish(ctx, messaging.EventImportCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("file", fileName).Msg("failed to publish import completed event")
	}
}

// PublishScanRequested asks the scan consumer to run. Unlike the other
// events the error is returned, since a lost request means a missed scan.
func (p *InventoryEventPublisher) PublishScanRequested(ctx context.Context, reason string, entityID int64) error {
	if p == nil {
		return nil
	}
	return p.publisher.Publish(ctx, messaging.EventScanRequested, messaging.ScanRequestedEvent{
		Reason:   reason,
		EntityID: entityID,
	})
}
