package catalog

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrProductInUse: product masih direferensikan line item, tidak boleh dihapus.
	ErrProductInUse = errors.New("product is referenced by order items")
)

type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate dipakai saat create/update lewat catalog management;
// stock sendiri hanya berubah lewat reservation engine atau restock.
func (p Product) Validate() error {
	if p.SKU == "" {
		return errors.New("sku is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.PriceCents <= 0 {
		return errors.New("price_cents must be positive")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}
