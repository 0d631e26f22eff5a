package events

import (
	"encoding/json"
	"time"
)

const (
	EventItemAdded         = "LineItemAdded"
	EventItemUpdated       = "LineItemUpdated"
	EventItemRemoved       = "LineItemRemoved"
	EventTotalRecalculated = "OrderTotalRecalculated"
)

const (
	TopicItemAdded   = "backoffice.item.added"
	TopicItemUpdated = "backoffice.item.updated"
	TopicItemRemoved = "backoffice.item.removed"
	TopicOrderTotal  = "backoffice.order.total"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // salah satu const di atas
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g., "backoffice-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemAddedPayload struct {
	OrderID       string `json:"order_id"`
	ItemID        string `json:"item_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	SubtotalCents int    `json:"subtotal_cents"`
	StockAfter    int    `json:"stock_after"`
	TotalCents    int    `json:"total_cents"`
}

type ItemUpdatedPayload struct {
	OrderID       string `json:"order_id"`
	ItemID        string `json:"item_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	SubtotalCents int    `json:"subtotal_cents"`
	StockAfter    int    `json:"stock_after"`
	TotalCents    int    `json:"total_cents"`
}

type ItemRemovedPayload struct {
	OrderID    string `json:"order_id"`
	ItemID     string `json:"item_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"` // qty yang dikembalikan ke stock
	StockAfter int    `json:"stock_after"`
	TotalCents int    `json:"total_cents"`
}

type TotalRecalculatedPayload struct {
	OrderID    string `json:"order_id"`
	TotalCents int    `json:"total_cents"`
}
