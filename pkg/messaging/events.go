package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory events
	EventBatchAdded          = "inventory.batch.added"
	EventBatchUpdated        = "inventory.batch.updated"
	EventBatchDisposed       = "inventory.batch.disposed"
	EventStockReduced        = "inventory.stock.reduced"
	EventItemDeleted         = "inventory.item.deleted"
	EventNotificationCreated = "inventory.notification.created"
	EventScanRequested       = "inventory.scan.requested"
	EventImportCompleted     = "inventory.import.completed"

	// Auth events
	EventVoucherIssued = "auth.voucher.issued"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangeAuthEvents      = "auth.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Inventory Events

// BatchChangedEvent is published when a batch is added, corrected or disposed
type BatchChangedEvent struct {
	BatchID        int64      `json:"batch_id"`
	ItemID         int64      `json:"item_id"`
	BatchNumber    string     `json:"batch_number"`
	QuantityChange int        `json:"quantity_change"`
	ItemQuantity   int        `json:"item_quantity"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

// StockReducedEvent is published when stock is disbursed to a patient
type StockReducedEvent struct {
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int    `json:"quantity"`
	ItemQuantity int    `json:"item_quantity"`
	PatientName  string `json:"patient_name"`
}

// ItemDeletedEvent is published when an item is soft deleted
type ItemDeletedEvent struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
}

// NotificationCreatedEvent is published for every newly opened alert
type NotificationCreatedEvent struct {
	NotificationID   int64  `json:"notification_id"`
	NotificationType string `json:"notification_type"`
	EntityID         int64  `json:"entity_id"`
	Title            string `json:"title"`
	Message          string `json:"message"`
}

// ScanRequestedEvent asks a worker to re-evaluate notification thresholds
type ScanRequestedEvent struct {
	Reason   string `json:"reason"`
	EntityID int64  `json:"entity_id,omitempty"`
}

// ImportCompletedEvent summarises a bulk import
type ImportCompletedEvent struct {
	FileName  string `json:"file_name"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// Auth Events

// VoucherIssuedEvent carries a one-time setup voucher to the mailer
type VoucherIssuedEvent struct {
	Email   string `json:"email"`
	Voucher string `json:"voucher"`
}
