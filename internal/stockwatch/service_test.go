package stockwatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/events"
	kafkax "github.com/ariefcatur/go-order-backoffice/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newService(threshold int) (*Service, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return &Service{
		Log:         zap.New(core),
		Threshold:   threshold,
		ServiceName: "stockwatch-test",
	}, logs
}

func envelope(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafkago.Message{Value: kafkax.MustMarshal(events.Envelope{
		EventID:      "evt-1",
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "backoffice-api",
		Payload:      raw,
	})}
}

func TestHandleItemEventWarnsBelowThreshold(t *testing.T) {
	svc, logs := newService(5)

	m := envelope(t, events.EventItemAdded, events.ItemAddedPayload{
		OrderID: "o-1", ProductID: "p-1", Qty: 7, StockAfter: 3,
	})
	require.NoError(t, svc.HandleItemEvent(context.Background(), m))

	entries := logs.FilterMessage("low stock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "p-1", entries[0].ContextMap()["product_id"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["stock"])
}

func TestHandleItemEventQuietAboveThreshold(t *testing.T) {
	svc, logs := newService(5)

	m := envelope(t, events.EventItemRemoved, events.ItemRemovedPayload{
		OrderID: "o-1", ProductID: "p-1", Qty: 2, StockAfter: 9,
	})
	require.NoError(t, svc.HandleItemEvent(context.Background(), m))
	assert.Zero(t, logs.Len())
}

func TestHandleItemEventIgnoresUnknownType(t *testing.T) {
	svc, logs := newService(5)

	m := envelope(t, "SomethingElse", map[string]any{"order_id": "o-1"})
	require.NoError(t, svc.HandleItemEvent(context.Background(), m))
	assert.Zero(t, logs.Len())
}

func TestHandleItemEventRejectsMalformedEnvelope(t *testing.T) {
	svc, _ := newService(5)

	err := svc.HandleItemEvent(context.Background(), kafkago.Message{Value: []byte("{not json")})
	require.Error(t, err)
}
