package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-order-backoffice/internal/catalog"
	"github.com/ariefcatur/go-order-backoffice/internal/orders"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*Store, catalog.Product, orders.Order) {
	t.Helper()
	s := NewStore()
	p, err := s.CreateProduct(context.Background(), catalog.Product{
		SKU: "SKU-1", Name: "producto", PriceCents: 100, Stock: 10,
	})
	require.NoError(t, err)
	o, err := s.CreateOrder(context.Background(), "cust-1")
	require.NoError(t, err)
	return s, p, o
}

func TestDoRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s, p, o := seed(t)

	boom := errors.New("boom")
	err := s.Do(ctx, func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error {
		if err := cat.AdjustStock(ctx, p.ID, -4); err != nil {
			return err
		}
		if err := ord.SetOrderTotal(ctx, o.ID, 400); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// tidak ada write yang bocor
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
	gotOrder, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotOrder.TotalCents)
}

func TestDoCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s, p, o := seed(t)

	err := s.Do(ctx, func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error {
		if err := cat.AdjustStock(ctx, p.ID, -4); err != nil {
			return err
		}
		return ord.SetOrderTotal(ctx, o.ID, 400)
	})
	require.NoError(t, err)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)
}

func TestAdjustStockRefusesUnderflow(t *testing.T) {
	ctx := context.Background()
	s, p, _ := seed(t)

	err := s.Do(ctx, func(ctx context.Context, cat reservation.CatalogTx, _ reservation.OrderTx) error {
		return cat.AdjustStock(ctx, p.ID, -11)
	})
	require.Error(t, err)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
}

func TestCreateProductValidates(t *testing.T) {
	s := NewStore()
	_, err := s.CreateProduct(context.Background(), catalog.Product{SKU: "X", Name: "x", PriceCents: 0})
	require.Error(t, err)
}

func TestAdvanceOrderStatus(t *testing.T) {
	ctx := context.Background()
	s, _, o := seed(t)

	got, err := s.AdvanceOrderStatus(ctx, o.ID, orders.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusProcessing, got.Status)

	_, err = s.AdvanceOrderStatus(ctx, o.ID, orders.StatusDelivered)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestDeleteOrderRequiresNoItems(t *testing.T) {
	ctx := context.Background()
	s, p, o := seed(t)

	err := s.Do(ctx, func(ctx context.Context, _ reservation.CatalogTx, ord reservation.OrderTx) error {
		return ord.UpsertItem(ctx, orders.OrderItem{
			ID: "item-1", OrderID: o.ID, ProductID: p.ID, Qty: 1, SubtotalCents: 100,
		})
	})
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteOrder(ctx, o.ID), orders.ErrOrderNotEmpty)

	err = s.Do(ctx, func(ctx context.Context, _ reservation.CatalogTx, ord reservation.OrderTx) error {
		return ord.DeleteItem(ctx, "item-1")
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteOrder(ctx, o.ID))
	_, err = s.GetOrder(ctx, o.ID)
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	s, p, _ := seed(t)

	updated, err := s.UpdateProduct(ctx, p.ID, catalog.Product{
		Name: "producto v2", Description: "nueva", PriceCents: 250,
	})
	require.NoError(t, err)
	assert.Equal(t, "producto v2", updated.Name)
	assert.Equal(t, 250, updated.PriceCents)
	assert.Equal(t, p.SKU, updated.SKU)
	assert.Equal(t, p.Stock, updated.Stock)

	_, err = s.UpdateProduct(ctx, p.ID, catalog.Product{Name: "", PriceCents: 250})
	require.Error(t, err)
	// validasi gagal = tidak ada write
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "producto v2", got.Name)

	_, err = s.UpdateProduct(ctx, "no-such", catalog.Product{Name: "x", PriceCents: 1})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestDeleteProductRefusesWhenReferenced(t *testing.T) {
	ctx := context.Background()
	s, p, o := seed(t)

	err := s.Do(ctx, func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error {
		return ord.UpsertItem(ctx, orders.OrderItem{
			ID: "item-1", OrderID: o.ID, ProductID: p.ID, Qty: 1, SubtotalCents: 100,
		})
	})
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteProduct(ctx, p.ID), catalog.ErrProductInUse)

	err = s.Do(ctx, func(ctx context.Context, cat reservation.CatalogTx, ord reservation.OrderTx) error {
		return ord.DeleteItem(ctx, "item-1")
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	_, err = s.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	require.ErrorIs(t, s.DeleteProduct(ctx, p.ID), catalog.ErrProductNotFound)
}
