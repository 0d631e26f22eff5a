package reservation

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateItem: satu order maksimal satu line item per product.
	ErrDuplicateItem = errors.New("order already has a line item for this product")

	// ErrContention: bentrok penulisan di store (serialization failure).
	// Satu-satunya error yang boleh di-retry oleh engine.
	ErrContention = errors.New("concurrent update contention")
)

// InsufficientStockError membawa detail required/available supaya caller
// bisa menampilkan kekurangannya, bukan cuma "stok habis".
type InsufficientStockError struct {
	ProductID string
	Required  int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: required=%d available=%d",
		e.ProductID, e.Required, e.Available)
}

type QuantityError struct {
	Qty int
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Qty)
}
