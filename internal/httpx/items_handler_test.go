package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/httpx"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	"github.com/ariefcatur/go-order-backoffice/internal/store/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	store  *memory.Store
	router *chi.Mux
}

// router lengkap dengan memory store; redis & kafka nil (di-skip handler).
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	log := zap.NewNop()

	router := httpx.NewRouter()
	ih := &httpx.ItemsHandler{
		Engine:     reservation.NewEngine(store, log),
		Reconciler: reservation.NewReconciler(store, log),
		Service:    "backoffice-test",
	}
	ih.Register(router)
	oh := &httpx.OrdersHandler{Store: store}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Store: store}
	ph.Register(router)

	return &testAPI{store: store, router: router}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func (a *testAPI) seed(t *testing.T, priceCents, stock int) (catalog.Product, orders.Order) {
	t.Helper()
	p, err := a.store.CreateProduct(context.Background(), catalog.Product{
		SKU: "SKU-1", Name: "producto", PriceCents: priceCents, Stock: stock,
	})
	require.NoError(t, err)
	o, err := a.store.CreateOrder(context.Background(), "cust-1")
	require.NoError(t, err)
	return p, o
}

func TestAddItemEndpoint(t *testing.T) {
	api := newTestAPI(t)
	p, o := api.seed(t, 150, 5)

	w := api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 5})
	require.Equal(t, http.StatusCreated, w.Code)

	res := decode[reservation.MutationResult](t, w)
	assert.Equal(t, 750, res.TotalCents)
	assert.Equal(t, 0, res.Product.Stock)

	// summary mengikuti
	w = api.do(t, http.MethodGet, "/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[map[string]any](t, w)
	assert.EqualValues(t, 750, sum["total_cents"])
}

func TestAddItemEndpointConflicts(t *testing.T) {
	api := newTestAPI(t)
	p, o := api.seed(t, 100, 4)

	w := api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 5})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 5, body["required"])
	assert.EqualValues(t, 4, body["available"])

	w = api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	// duplikat product di order yang sama
	w = api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 1})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAddItemEndpointValidation(t *testing.T) {
	api := newTestAPI(t)
	p, o := api.seed(t, 100, 5)

	w := api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"qty": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/orders/no-such-order/items",
		map[string]any{"product_id": p.ID, "qty": 1})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAndRemoveItemEndpoints(t *testing.T) {
	api := newTestAPI(t)
	p, o := api.seed(t, 200, 12)

	w := api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	added := decode[reservation.MutationResult](t, w)

	w = api.do(t, http.MethodPut, "/items/"+added.Item.ID, map[string]any{"qty": 4})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[reservation.MutationResult](t, w)
	assert.Equal(t, 8, updated.Product.Stock)
	assert.Equal(t, 800, updated.TotalCents)

	w = api.do(t, http.MethodDelete, "/items/"+added.Item.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// delete kedua: no-op, tetap 204
	w = api.do(t, http.MethodDelete, "/items/"+added.Item.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	got, err := api.store.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Stock)
}

func TestRecalculateEndpoint(t *testing.T) {
	api := newTestAPI(t)
	p, o := api.seed(t, 300, 10)

	w := api.do(t, http.MethodPost, "/orders/"+o.ID+"/items",
		map[string]any{"product_id": p.ID, "qty": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	for i := 0; i < 2; i++ {
		w = api.do(t, http.MethodPost, "/orders/"+o.ID+"/recalculate", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]any](t, w)
		assert.EqualValues(t, 900, body["total_cents"], "iterasi %d", i)
	}
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	api := newTestAPI(t)
	p, _ := api.seed(t, 100, 10)

	w := api.do(t, http.MethodPost, "/orders", map[string]any{"customer_id": "cust-2"})
	require.Equal(t, http.StatusCreated, w.Code)
	o := decode[orders.Order](t, w)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, 0, o.TotalCents)

	w = api.do(t, http.MethodPost, "/orders/"+o.ID+"/status", map[string]any{"status": "PROCESSING"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/orders/"+o.ID+"/status", map[string]any{"status": "DELIVERED"})
	require.Equal(t, http.StatusConflict, w.Code)

	// order dengan item tidak boleh dihapus
	w = api.do(t, http.MethodPost, fmt.Sprintf("/orders/%s/items", o.ID),
		map[string]any{"product_id": p.ID, "qty": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	added := decode[reservation.MutationResult](t, w)

	w = api.do(t, http.MethodDelete, "/orders/"+o.ID, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodDelete, "/items/"+added.Item.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodDelete, "/orders/"+o.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/products", map[string]any{
		"sku": "SKU-9", "name": "teclado", "price_cents": 4500, "stock": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[catalog.Product](t, w)

	w = api.do(t, http.MethodPost, "/products/"+p.ID+"/restock", map[string]any{"delta": 7})
	require.Equal(t, http.StatusOK, w.Code)
	restocked := decode[catalog.Product](t, w)
	assert.Equal(t, 10, restocked.Stock)

	w = api.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]catalog.Product](t, w)
	assert.Len(t, list, 1)

	w = api.do(t, http.MethodGet, "/products/no-such", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// price 0 ditolak validasi
	w = api.do(t, http.MethodPost, "/products", map[string]any{
		"sku": "SKU-0", "name": "gratis", "price_cents": 0,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// unit of work yang selalu kena contention; buat mengetes mapping 409.
type contendedStore struct{}

func (contendedStore) Do(ctx context.Context, fn func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error) error {
	return reservation.ErrContention
}

func TestAddItemEndpointContentionMapsToConflict(t *testing.T) {
	router := httpx.NewRouter()
	ih := &httpx.ItemsHandler{
		Engine:     reservation.NewEngine(contendedStore{}, zap.NewNop()),
		Reconciler: reservation.NewReconciler(contendedStore{}, zap.NewNop()),
		Service:    "backoffice-test",
	}
	ih.Register(router)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{"product_id": "p-1", "qty": 1}))
	req := httptest.NewRequest(http.MethodPost, "/orders/o-1/items", &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]any](t, w)
	assert.Contains(t, body["error"], "contention")
}
