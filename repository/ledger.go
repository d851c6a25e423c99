package repository

import (
	"context"

	"github.com/fastygo/productsync/domain"
)

// DeliveryLedger remembers completed webhook deliveries.
type DeliveryLedger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, delivery domain.Delivery) error
	Ping(ctx context.Context) error
	Close() error
}
