// Package stockwatch: consumer kecil yang mengawasi event line item dan
// mengangkat warning saat stock sebuah product turun ke bawah threshold.
package stockwatch

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-order-backoffice/internal/events"
	kafkax "github.com/ariefcatur/go-order-backoffice/internal/kafka"
	"github.com/ariefcatur/go-order-backoffice/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Redis       *redis.Client
	Log         *zap.Logger
	Threshold   int
	ServiceName string
}

// HandleItemEvent: dipasang sebagai handler consumer untuk topic item.
func (s *Service) HandleItemEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}

	// dedup via Redis (pakai event_id); tanpa redis, proses saja
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	switch env.EventType {
	case events.EventItemAdded:
		p, err := kafkax.UnwrapPayload[events.ItemAddedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.check(ctx, p.ProductID, p.StockAfter)
	case events.EventItemUpdated:
		p, err := kafkax.UnwrapPayload[events.ItemUpdatedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.check(ctx, p.ProductID, p.StockAfter)
	case events.EventItemRemoved:
		p, err := kafkax.UnwrapPayload[events.ItemRemovedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.check(ctx, p.ProductID, p.StockAfter)
	default:
		return nil // ignore
	}
}

// check: warning sekali per product per TTL latch, biar tidak spam.
func (s *Service) check(ctx context.Context, productID string, stockAfter int) error {
	akey := fmt.Sprintf(redisx.KeyStockAlert, productID)
	if stockAfter > s.Threshold {
		// stock pulih -> buka latch supaya drop berikutnya kena warning lagi
		if s.Redis != nil {
			_ = s.Redis.Del(ctx, akey).Err()
		}
		return nil
	}
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, akey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, akey, "1", redisx.TTLStockAlert).Err()
	}
	s.Log.Warn("low stock",
		zap.String("product_id", productID),
		zap.Int("stock", stockAfter),
		zap.Int("threshold", s.Threshold),
	)
	return nil
}
