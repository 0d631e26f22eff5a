package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/ariefcatur/go-order-backoffice/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// OrderStore: lifecycle order di luar engine (status, create, delete).
// Dipenuhi oleh store/postgres dan store/memory.
type OrderStore interface {
	CreateOrder(ctx context.Context, customerID string) (orders.Order, error)
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]orders.OrderItem, error)
	AdvanceOrderStatus(ctx context.Context, id string, to orders.Status) (orders.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type OrdersHandler struct {
	Store OrderStore
	Redis *redis.Client
}

type createOrderReq struct {
	CustomerID string `json:"customer_id"`
}

type advanceStatusReq struct {
	Status orders.Status `json:"status"`
}

type orderSummary struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customer_id"`
	Status     orders.Status `json:"status"`
	TotalCents int           `json:"total_cents"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/items", h.listItems)
	r.Post("/orders/{id}/status", h.advanceStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.CustomerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing customer_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.CreateOrder(ctx, req.CustomerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderSummary, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) fallback DB
	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	sum := orderSummary{ID: o.ID, CustomerID: o.CustomerID, Status: o.Status, TotalCents: o.TotalCents}
	if h.Redis != nil {
		b, _ := json.Marshal(sum)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLSummaryCache).Err()
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) listItems(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Store.ListOrderItems(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if items == nil {
		items = []orders.OrderItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrdersHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req advanceStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.AdvanceOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderSummary, orderID)).Err()
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.DeleteOrder(ctx, orderID); err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderSummary, orderID)).Err()
	}
	w.WriteHeader(http.StatusNoContent)
}
