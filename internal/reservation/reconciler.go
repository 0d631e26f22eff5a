package reservation

import (
	"context"

	"go.uber.org/zap"
)

// Reconciler menulis ulang order.total dari jumlah subtotal line item.
// Engine memanggil recalculate di dalam unit of work-nya sendiri; tipe ini
// untuk pemanggilan berdiri sendiri (mis. endpoint admin atau repair job).
type Reconciler struct {
	uow UnitOfWork
	log *zap.Logger
}

func NewReconciler(uow UnitOfWork, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{uow: uow, log: log}
}

// Recalculate idempoten: dua kali berturut-turut tanpa mutasi di antaranya
// menghasilkan total yang sama.
func (r *Reconciler) Recalculate(ctx context.Context, orderID string) (int, error) {
	var total int
	err := r.uow.Do(ctx, func(ctx context.Context, _ CatalogTx, ord OrderTx) error {
		if _, err := ord.GetOrderForUpdate(ctx, orderID); err != nil {
			return err
		}
		var err error
		total, err = recalculate(ctx, ord, orderID)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.log.Debug("order total reconciled",
		zap.String("order_id", orderID),
		zap.Int("total_cents", total),
	)
	return total, nil
}

// recalculate: langkah terakhir setiap mutasi engine, di dalam tx yang sama
// dengan penulisan line item supaya pembaca tidak pernah lihat total basi.
func recalculate(ctx context.Context, ord OrderTx, orderID string) (int, error) {
	items, err := ord.ListItems(ctx, orderID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, it := range items {
		total += it.SubtotalCents
	}
	if err := ord.SetOrderTotal(ctx, orderID, total); err != nil {
		return 0, err
	}
	return total, nil
}
