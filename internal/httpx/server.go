package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr memetakan taxonomy error core ke status HTTP. InsufficientStock
// ikut bawa required/available di body, gaya payload stock-rejected.
func writeErr(w http.ResponseWriter, err error) {
	var stockErr *reservation.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": stockErr.ProductID,
			"required":   stockErr.Required,
			"available":  stockErr.Available,
		})
		return
	}
	var qtyErr *reservation.QuantityError
	switch {
	case errors.As(err, &qtyErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, reservation.ErrDuplicateItem),
		errors.Is(err, reservation.ErrContention),
		errors.Is(err, catalog.ErrProductInUse),
		errors.Is(err, orders.ErrOrderNotEmpty),
		errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
