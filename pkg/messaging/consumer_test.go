package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock-backend/pkg/logger"
)

func encodeEvent(t *testing.T, eventType, correlationID string, data interface{}) []byte {
	t.Helper()
	event, err := NewEvent(eventType, "test", correlationID, data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestConsumer_Process(t *testing.T) {
	t.Run("malformed body is rejected", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		assert.Equal(t, reject, c.process(context.Background(), []byte("{not json")))
	})

	t.Run("unhandled type is acked", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		body := encodeEvent(t, EventBatchAdded, "", BatchChangedEvent{BatchID: 1})
		assert.Equal(t, ack, c.process(context.Background(), body))
	})

	t.Run("handler sees payload and correlation id", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())

		var got ScanRequestedEvent
		var corr string
		c.RegisterHandler(EventScanRequested, func(ctx context.Context, e *Event) error {
			corr = CorrelationID(ctx)
			return e.UnmarshalData(&got)
		})

		body := encodeEvent(t, EventScanRequested, "req-42", ScanRequestedEvent{Reason: "batch.added", EntityID: 7})
		assert.Equal(t, ack, c.process(context.Background(), body))
		assert.Equal(t, "req-42", corr)
		assert.Equal(t, ScanRequestedEvent{Reason: "batch.added", EntityID: 7}, got)
	})

	t.Run("handler failure is rejected without requeue", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		c.RegisterHandler(EventScanRequested, func(context.Context, *Event) error {
			return errors.New("db down")
		})

		body := encodeEvent(t, EventScanRequested, "", ScanRequestedEvent{Reason: "manual"})
		assert.Equal(t, reject, c.process(context.Background(), body))
	})
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(EventVoucherIssued, "inventory-service", "corr", VoucherIssuedEvent{Email: "admin@clinic.test", Voucher: "v"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventVoucherIssued, event.Type)
	assert.Equal(t, "corr", event.CorrelationID)
	assert.False(t, event.Timestamp.IsZero())

	var data VoucherIssuedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "admin@clinic.test", data.Email)
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
	assert.Equal(t, "abc", CorrelationID(WithCorrelationID(context.Background(), "abc")))
}
