package redisx

import "time"

const (
	// Cache ringkasan order: order_summary:{order_id} -> {"status":..., "total_cents":...}
	// Di-refresh setiap mutasi line item supaya GET tidak baca total basi.
	KeyOrderSummary = "order_summary:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Latch alert low-stock per product, biar tidak spam warning tiap event.
	KeyStockAlert = "stock_alert:%s"
)

var (
	TTLSummaryCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
	TTLStockAlert   = 15 * time.Minute
)
