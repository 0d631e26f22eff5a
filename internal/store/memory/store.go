// Package memory: store in-process untuk test dan mode demo (tanpa postgres).
// Unit of work memegang satu mutex store selama fn berjalan, jadi isolasinya
// serializable; mutasi fn ditulis ke clone dan baru di-commit kalau fn nil.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	orders   map[string]orders.Order
	items    map[string]orders.OrderItem
}

func NewStore() *Store {
	return &Store{
		products: map[string]catalog.Product{},
		orders:   map[string]orders.Order{},
		items:    map[string]orders.OrderItem{},
	}
}

// Do menjalankan fn terhadap clone; commit = tukar map. All-or-nothing.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		products: cloneMap(s.products),
		orders:   cloneMap(s.orders),
		items:    cloneMap(s.items),
	}
	if err := fn(ctx, tx, tx); err != nil {
		return err
	}
	s.products = tx.products
	s.orders = tx.orders
	s.items = tx.items
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx implements reservation.CatalogTx + reservation.OrderTx.
type memTx struct {
	products map[string]catalog.Product
	orders   map[string]orders.Order
	items    map[string]orders.OrderItem
}

func (t *memTx) GetProductForUpdate(_ context.Context, productID string) (catalog.Product, error) {
	p, ok := t.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (t *memTx) AdjustStock(_ context.Context, productID string, delta int) error {
	p, ok := t.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("stock underflow for product %s: stock=%d delta=%d", productID, p.Stock, delta)
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	t.products[productID] = p
	return nil
}

func (t *memTx) GetOrderForUpdate(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := t.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (t *memTx) GetItem(_ context.Context, itemID string) (orders.OrderItem, error) {
	it, ok := t.items[itemID]
	if !ok {
		return orders.OrderItem{}, orders.ErrItemNotFound
	}
	return it, nil
}

func (t *memTx) FindItemByProduct(_ context.Context, orderID, productID string) (orders.OrderItem, error) {
	for _, it := range t.items {
		if it.OrderID == orderID && it.ProductID == productID {
			return it, nil
		}
	}
	return orders.OrderItem{}, orders.ErrItemNotFound
}

func (t *memTx) ListItems(_ context.Context, orderID string) ([]orders.OrderItem, error) {
	var out []orders.OrderItem
	for _, it := range t.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpsertItem(_ context.Context, item orders.OrderItem) error {
	t.items[item.ID] = item
	return nil
}

func (t *memTx) DeleteItem(_ context.Context, itemID string) error {
	delete(t.items, itemID)
	return nil
}

func (t *memTx) SetOrderTotal(_ context.Context, orderID string, totalCents int) error {
	o, ok := t.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.TotalCents = totalCents
	t.orders[orderID] = o
	return nil
}

// ---- management (catalog + order lifecycle, di luar unit of work core) ----

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// UpdateProduct hanya menyentuh name/description/price; sku & stock tetap.
// Subtotal item yang sudah ada tidak ikut berubah (harga saat item ditulis).
func (s *Store) UpdateProduct(_ context.Context, id string, upd catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	p.Name = upd.Name
	p.Description = upd.Description
	p.PriceCents = upd.PriceCents
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	for _, it := range s.items {
		if it.ProductID == id {
			return catalog.ErrProductInUse
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) RestockProduct(_ context.Context, id string, delta int) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return catalog.Product{}, fmt.Errorf("stock underflow for product %s: stock=%d delta=%d", id, p.Stock, delta)
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return p, nil
}

func (s *Store) CreateOrder(_ context.Context, customerID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := orders.Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Status:     orders.StatusPending,
		TotalCents: 0,
		CreatedAt:  time.Now().UTC(),
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (s *Store) ListOrderItems(_ context.Context, orderID string) ([]orders.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return nil, orders.ErrOrderNotFound
	}
	var out []orders.OrderItem
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AdvanceOrderStatus(_ context.Context, id string, to orders.Status) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if !orders.CanTransition(o.Status, to) {
		return orders.Order{}, orders.ErrInvalidTransition
	}
	o.Status = to
	s.orders[id] = o
	return o, nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return orders.ErrOrderNotFound
	}
	for _, it := range s.items {
		if it.OrderID == id {
			return orders.ErrOrderNotEmpty
		}
	}
	delete(s.orders, id)
	return nil
}
