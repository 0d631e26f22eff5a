package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine menjaga tiga invariant sekaligus pada setiap mutasi line item:
//   - product.stock >= 0
//   - order.total == sum(subtotal semua item order itu)
//   - maksimal satu line item per (order, product)
//
// Semua mutasi jalan di dalam satu UnitOfWork: stock adjust, tulis item,
// dan rekalkulasi total commit bareng atau batal bareng.
type Engine struct {
	uow        UnitOfWork
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func NewEngine(uow UnitOfWork, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{uow: uow, log: log, maxRetries: 3, backoff: 50 * time.Millisecond}
}

// MutationResult: state sesudah mutasi, untuk response & event payload.
type MutationResult struct {
	Item       orders.OrderItem `json:"item"`
	Product    catalog.Product  `json:"product"`
	TotalCents int              `json:"total_cents"`
}

// AddItem membuat line item baru dan mereservasi stock sebesar qty.
//
// Gagal dengan orders.ErrOrderNotFound, catalog.ErrProductNotFound,
// ErrDuplicateItem, *InsufficientStockError, atau *QuantityError; pada
// semua jalur gagal tidak ada satu write pun yang ter-commit.
func (e *Engine) AddItem(ctx context.Context, orderID, productID string, qty int) (MutationResult, error) {
	if qty < 1 {
		return MutationResult{}, &QuantityError{Qty: qty}
	}

	var res MutationResult
	err := e.withRetry(ctx, func(ctx context.Context, cat CatalogTx, ord OrderTx) error {
		// lock product dulu, baru order (urutan konsisten, lihat store.go)
		product, err := cat.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if _, err := ord.GetOrderForUpdate(ctx, orderID); err != nil {
			return err
		}

		if _, err := ord.FindItemByProduct(ctx, orderID, productID); err == nil {
			return ErrDuplicateItem
		} else if !errors.Is(err, orders.ErrItemNotFound) {
			return err
		}

		if product.Stock < qty {
			return &InsufficientStockError{ProductID: productID, Required: qty, Available: product.Stock}
		}

		item := orders.OrderItem{
			ID:            uuid.NewString(),
			OrderID:       orderID,
			ProductID:     productID,
			Qty:           qty,
			SubtotalCents: qty * product.PriceCents,
		}
		if err := cat.AdjustStock(ctx, productID, -qty); err != nil {
			return err
		}
		if err := ord.UpsertItem(ctx, item); err != nil {
			return err
		}
		total, err := recalculate(ctx, ord, orderID)
		if err != nil {
			return err
		}

		product.Stock -= qty
		res = MutationResult{Item: item, Product: product, TotalCents: total}
		return nil
	})
	if err != nil {
		return MutationResult{}, err
	}

	e.log.Info("line item added",
		zap.String("order_id", orderID),
		zap.String("product_id", productID),
		zap.Int("qty", qty),
		zap.Int("total_cents", res.TotalCents),
	)
	return res, nil
}

// UpdateItemQuantity mengubah qty sebuah line item. Stock yang tersedia
// untuk update ini = stock sekarang + qty lama item (release-then-reserve
// terhadap pool yang sama), jadi menurunkan qty selalu lolos.
func (e *Engine) UpdateItemQuantity(ctx context.Context, itemID string, newQty int) (MutationResult, error) {
	if newQty < 1 {
		return MutationResult{}, &QuantityError{Qty: newQty}
	}

	var res MutationResult
	err := e.withRetry(ctx, func(ctx context.Context, cat CatalogTx, ord OrderTx) error {
		// baca dulu untuk tahu product & order, locknya menyusul
		item, err := ord.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		product, err := cat.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if _, err := ord.GetOrderForUpdate(ctx, item.OrderID); err != nil {
			return err
		}
		// re-read setelah pegang lock; item bisa saja berubah/terhapus
		item, err = ord.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		available := product.Stock + item.Qty
		if newQty > available {
			return &InsufficientStockError{ProductID: item.ProductID, Required: newQty, Available: available}
		}

		delta := item.Qty - newQty // positif = stock kembali
		if err := cat.AdjustStock(ctx, item.ProductID, delta); err != nil {
			return err
		}
		item.Qty = newQty
		item.SubtotalCents = newQty * product.PriceCents
		if err := ord.UpsertItem(ctx, item); err != nil {
			return err
		}
		total, err := recalculate(ctx, ord, item.OrderID)
		if err != nil {
			return err
		}

		product.Stock += delta
		res = MutationResult{Item: item, Product: product, TotalCents: total}
		return nil
	})
	if err != nil {
		return MutationResult{}, err
	}

	e.log.Info("line item updated",
		zap.String("item_id", itemID),
		zap.Int("qty", newQty),
		zap.Int("total_cents", res.TotalCents),
	)
	return res, nil
}

// RemoveItem menghapus line item dan mengembalikan seluruh qty ke stock.
//
// Item yang tidak ada diperlakukan sebagai no-op sukses (delete idempoten);
// hasilnya MutationResult kosong. Kebijakan ini dipilih karena retry delete
// tidak boleh berubah jadi error di sisi caller.
func (e *Engine) RemoveItem(ctx context.Context, itemID string) (MutationResult, error) {
	var res MutationResult
	removed := false
	err := e.withRetry(ctx, func(ctx context.Context, cat CatalogTx, ord OrderTx) error {
		res, removed = MutationResult{}, false // reset kalau attempt sebelumnya di-rollback
		item, err := ord.GetItem(ctx, itemID)
		if errors.Is(err, orders.ErrItemNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		product, err := cat.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if _, err := ord.GetOrderForUpdate(ctx, item.OrderID); err != nil {
			return err
		}
		item, err = ord.GetItem(ctx, itemID)
		if errors.Is(err, orders.ErrItemNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		if err := cat.AdjustStock(ctx, item.ProductID, item.Qty); err != nil {
			return err
		}
		if err := ord.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		total, err := recalculate(ctx, ord, item.OrderID)
		if err != nil {
			return err
		}

		product.Stock += item.Qty
		res = MutationResult{Item: item, Product: product, TotalCents: total}
		removed = true
		return nil
	})
	if err != nil {
		return MutationResult{}, err
	}

	if removed {
		e.log.Info("line item removed",
			zap.String("item_id", itemID),
			zap.String("order_id", res.Item.OrderID),
			zap.Int("total_cents", res.TotalCents),
		)
	}
	return res, nil
}

// withRetry: hanya ErrContention yang di-retry, bounded. Error bisnis
// (stok kurang, duplikat, not found) deterministik, langsung dikembalikan.
func (e *Engine) withRetry(ctx context.Context, fn func(ctx context.Context, cat CatalogTx, ord OrderTx) error) error {
	for attempt := 0; ; attempt++ {
		err := e.uow.Do(ctx, fn)
		if err == nil || !errors.Is(err, ErrContention) || attempt >= e.maxRetries {
			return err
		}
		e.log.Warn("write contention, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.backoff * time.Duration(attempt+1)):
		}
	}
}
