package orders

import (
	"errors"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrItemNotFound  = errors.New("order item not found")

	// ErrOrderNotEmpty: order hanya boleh dihapus setelah semua item dihapus.
	ErrOrderNotEmpty = errors.New("order still has line items")
)

type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Status     Status    `json:"status"`
	TotalCents int       `json:"total_cents"` // derived: selalu = sum(items.subtotal_cents)
	CreatedAt  time.Time `json:"created_at"`
}

type OrderItem struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	SubtotalCents int    `json:"subtotal_cents"` // qty * price_cents saat item ditulis
}
