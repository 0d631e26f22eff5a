package reservation

import (
	"context"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
)

// CatalogTx: akses catalog di dalam satu unit of work. GetProductForUpdate
// harus mengunci row product sampai unit of work selesai (FOR UPDATE di
// postgres), supaya read-check-decrement tidak kena lost update.
type CatalogTx interface {
	GetProductForUpdate(ctx context.Context, productID string) (catalog.Product, error)

	// AdjustStock menggeser stock sebesar delta (negatif = reservasi).
	// Atomik: stock berubah tepat sebesar delta atau tidak sama sekali.
	AdjustStock(ctx context.Context, productID string, delta int) error
}

// OrderTx: akses order + line items di dalam unit of work yang sama.
type OrderTx interface {
	GetOrderForUpdate(ctx context.Context, orderID string) (orders.Order, error)
	GetItem(ctx context.Context, itemID string) (orders.OrderItem, error)
	FindItemByProduct(ctx context.Context, orderID, productID string) (orders.OrderItem, error)
	ListItems(ctx context.Context, orderID string) ([]orders.OrderItem, error)
	UpsertItem(ctx context.Context, item orders.OrderItem) error
	DeleteItem(ctx context.Context, itemID string) error
	SetOrderTotal(ctx context.Context, orderID string, totalCents int) error
}

// UnitOfWork menjalankan fn sebagai satu kesatuan: commit kalau fn nil,
// rollback total kalau fn error. Tidak ada partial state yang bocor.
//
// Urutan lock konsisten di semua implementasi: product dulu, baru order.
// Cross-order/cross-product tidak bisa deadlock selama urutan ini dipegang.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, cat CatalogTx, ord OrderTx) error) error
}
