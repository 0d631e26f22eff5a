package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/events"
	kafkax "github.com/ariefcatur/go-order-backoffice/internal/kafka"
	"github.com/ariefcatur/go-order-backoffice/internal/redisx"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Publishers: satu producer per topic, dipakai bareng oleh handler item.
// Boleh nil (mis. di test) -> publish di-skip.
type Publishers struct {
	ItemAdded   *kafkax.Producer
	ItemUpdated *kafkax.Producer
	ItemRemoved *kafkax.Producer
	OrderTotal  *kafkax.Producer
}

type ItemsHandler struct {
	Engine     *reservation.Engine
	Reconciler *reservation.Reconciler
	Pub        *Publishers
	Redis      *redis.Client
	Service    string
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type updateItemReq struct {
	Qty int `json:"qty"`
}

func (h *ItemsHandler) Register(r *chi.Mux) {
	r.Post("/orders/{id}/items", h.addItem)
	r.Put("/items/{id}", h.updateItem)
	r.Delete("/items/{id}", h.removeItem)
	r.Post("/orders/{id}/recalculate", h.recalculate)
}

func (h *ItemsHandler) addItem(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.AddItem(ctx, orderID, req.ProductID, req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.invalidateSummary(ctx, orderID)
	h.publish(r, h.Pub.added(), events.EventItemAdded, orderID, events.ItemAddedPayload{
		OrderID:       orderID,
		ItemID:        res.Item.ID,
		ProductID:     res.Item.ProductID,
		Qty:           res.Item.Qty,
		SubtotalCents: res.Item.SubtotalCents,
		StockAfter:    res.Product.Stock,
		TotalCents:    res.TotalCents,
	})

	writeJSON(w, http.StatusCreated, res)
}

func (h *ItemsHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.UpdateItemQuantity(ctx, itemID, req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.invalidateSummary(ctx, res.Item.OrderID)
	h.publish(r, h.Pub.updated(), events.EventItemUpdated, res.Item.OrderID, events.ItemUpdatedPayload{
		OrderID:       res.Item.OrderID,
		ItemID:        res.Item.ID,
		ProductID:     res.Item.ProductID,
		Qty:           res.Item.Qty,
		SubtotalCents: res.Item.SubtotalCents,
		StockAfter:    res.Product.Stock,
		TotalCents:    res.TotalCents,
	})

	writeJSON(w, http.StatusOK, res)
}

func (h *ItemsHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.RemoveItem(ctx, itemID)
	if err != nil {
		writeErr(w, err)
		return
	}

	// item tidak ada -> no-op sukses, tanpa event
	if res.Item.ID != "" {
		h.invalidateSummary(ctx, res.Item.OrderID)
		h.publish(r, h.Pub.removed(), events.EventItemRemoved, res.Item.OrderID, events.ItemRemovedPayload{
			OrderID:    res.Item.OrderID,
			ItemID:     res.Item.ID,
			ProductID:  res.Item.ProductID,
			Qty:        res.Item.Qty,
			StockAfter: res.Product.Stock,
			TotalCents: res.TotalCents,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemsHandler) recalculate(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	total, err := h.Reconciler.Recalculate(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.invalidateSummary(ctx, orderID)
	h.publish(r, h.Pub.total(), events.EventTotalRecalculated, orderID, events.TotalRecalculatedPayload{
		OrderID:    orderID,
		TotalCents: total,
	})

	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "total_cents": total})
}

// invalidateSummary buang cache ringkasan order; GET berikutnya re-populate
// dari DB. Best effort, error diabaikan (DB tetap jadi kebenaran).
func (h *ItemsHandler) invalidateSummary(ctx context.Context, orderID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderSummary, orderID)).Err()
}

func (h *ItemsHandler) publish(r *http.Request, p *kafkax.Producer, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
	}
	ev.Payload = kafkax.MustMarshal(payload)
	p.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (p *Publishers) added() *kafkax.Producer {
	if p == nil {
		return nil
	}
	return p.ItemAdded
}

func (p *Publishers) updated() *kafkax.Producer {
	if p == nil {
		return nil
	}
	return p.ItemUpdated
}

func (p *Publishers) removed() *kafkax.Producer {
	if p == nil {
		return nil
	}
	return p.ItemRemoved
}

func (p *Publishers) total() *kafkax.Producer {
	if p == nil {
		return nil
	}
	return p.OrderTotal
}
