// Package postgres: implementasi store di atas pgxpool. Unit of work =
// transaksi pgx; reservasi stock pakai row lock (FOR UPDATE) persis pola
// reserve-release di service aslinya.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// Do: satu transaksi per unit of work. Serialization/deadlock failure dari
// postgres dipetakan ke reservation.ErrContention supaya engine bisa retry.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t := &pgTx{tx: tx}
	if err := fn(ctx, t, t); err != nil {
		return mapContention(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapContention(err)
	}
	return nil
}

func mapContention(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", reservation.ErrContention, pgErr.Message)
		case "23505": // unique_violation: UNIQUE(order_id, product_id)
			return reservation.ErrDuplicateItem
		}
	}
	return err
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) GetProductForUpdate(ctx context.Context, productID string) (catalog.Product, error) {
	var p catalog.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, sku, name, description, price_cents, stock, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, err
}

func (t *pgTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1 AND stock + $2 >= 0`, productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("adjust stock product %s by %d: no row updated", productID, delta)
	}
	return nil
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, orderID string) (orders.Order, error) {
	var o orders.Order
	err := t.tx.QueryRow(ctx, `
		SELECT id, customer_id, status, total_cents, created_at
		FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (t *pgTx) GetItem(ctx context.Context, itemID string) (orders.OrderItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `
		SELECT id, order_id, product_id, qty, subtotal_cents
		FROM order_items WHERE id=$1`, itemID))
}

func (t *pgTx) FindItemByProduct(ctx context.Context, orderID, productID string) (orders.OrderItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `
		SELECT id, order_id, product_id, qty, subtotal_cents
		FROM order_items WHERE order_id=$1 AND product_id=$2`, orderID, productID))
}

func scanItem(row pgx.Row) (orders.OrderItem, error) {
	var it orders.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.SubtotalCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.OrderItem{}, orders.ErrItemNotFound
	}
	return it, err
}

func (t *pgTx) ListItems(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, qty, subtotal_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]orders.OrderItem, error) {
	var out []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.SubtotalCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *pgTx) UpsertItem(ctx context.Context, item orders.OrderItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, qty, subtotal_cents)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET qty=EXCLUDED.qty, subtotal_cents=EXCLUDED.subtotal_cents`,
		item.ID, item.OrderID, item.ProductID, item.Qty, item.SubtotalCents)
	return err
}

func (t *pgTx) DeleteItem(ctx context.Context, itemID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, itemID)
	return err
}

func (t *pgTx) SetOrderTotal(ctx context.Context, orderID string, totalCents int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET total_cents=$2 WHERE id=$1`, orderID, totalCents)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrOrderNotFound
	}
	return nil
}

// ---- management (catalog + order lifecycle) ----

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, sku, name, description, price_cents, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.SKU, p.Name, p.Description, p.PriceCents, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, sku, name, description, price_cents, stock, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, sku, name, description, price_cents, stock, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProduct hanya menyentuh name/description/price; sku & stock tetap.
func (s *Store) UpdateProduct(ctx context.Context, id string, upd catalog.Product) (catalog.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Name = upd.Name
	p.Description = upd.Description
	p.PriceCents = upd.PriceCents
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	err = s.DB.QueryRow(ctx, `
		UPDATE products SET name=$2, description=$3, price_cents=$4, updated_at=now()
		WHERE id=$1
		RETURNING id, sku, name, description, price_cents, stock, created_at, updated_at`,
		id, p.Name, p.Description, p.PriceCents).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, err
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation dari order_items
			return catalog.ErrProductInUse
		}
		return err
	}
	if ct.RowsAffected() != 1 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (s *Store) RestockProduct(ctx context.Context, id string, delta int) (catalog.Product, error) {
	var p catalog.Product
	err := s.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1 AND stock + $2 >= 0
		RETURNING id, sku, name, description, price_cents, stock, created_at, updated_at`, id, delta).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// row tidak ketemu atau guard stock >= 0 menolak
		if _, gerr := s.GetProduct(ctx, id); gerr != nil {
			return catalog.Product{}, gerr
		}
		return catalog.Product{}, fmt.Errorf("restock product %s by %d would go negative", id, delta)
	}
	return p, err
}

func (s *Store) CreateOrder(ctx context.Context, customerID string) (orders.Order, error) {
	o := orders.Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Status:     orders.StatusPending,
		TotalCents: 0,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO orders(id, customer_id, status, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.CustomerID, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	var o orders.Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, customer_id, status, total_cents, created_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, subtotal_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *Store) AdvanceOrderStatus(ctx context.Context, id string, to orders.Status) (orders.Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o orders.Order
	err = tx.QueryRow(ctx, `
		SELECT id, customer_id, status, total_cents, created_at
		FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	} else if err != nil {
		return orders.Order{}, err
	}
	if !orders.CanTransition(o.Status, to) {
		return orders.Order{}, orders.ErrInvalidTransition
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, to); err != nil {
		return orders.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return orders.Order{}, err
	}
	o.Status = to
	return o, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id=$1`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return orders.ErrOrderNotEmpty
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrOrderNotFound
	}
	return tx.Commit(ctx)
}
