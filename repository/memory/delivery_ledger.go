package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/repository"
)

// DeliveryLedger keeps completed deliveries in process memory. Entries expire
// after ttl and the oldest are evicted once size is reached.
type DeliveryLedger struct {
	cache *expirable.LRU[string, domain.Delivery]
}

// NewDeliveryLedger creates an in-memory ledger. A zero ttl keeps entries until evicted.
func NewDeliveryLedger(size int, ttl time.Duration) (*DeliveryLedger, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory ledger size must be positive, got %d", size)
	}
	return &DeliveryLedger{cache: expirable.NewLRU[string, domain.Delivery](size, nil, ttl)}, nil
}

func (l *DeliveryLedger) Seen(ctx context.Context, key string) (bool, error) {
	return l.cache.Contains(key), nil
}

func (l *DeliveryLedger) Record(ctx context.Context, delivery domain.Delivery) error {
	if delivery.Key == "" {
		return domain.NewError(domain.ErrCodeInvalidPayload, "delivery key is required")
	}
	l.cache.Add(delivery.Key, delivery)
	return nil
}

func (l *DeliveryLedger) Ping(ctx context.Context) error {
	return nil
}

func (l *DeliveryLedger) Close() error {
	l.cache.Purge()
	return nil
}

// Len returns the number of live entries.
func (l *DeliveryLedger) Len() int {
	return l.cache.Len()
}

// NopLedger never remembers anything.
type NopLedger struct{}

func (NopLedger) Seen(context.Context, string) (bool, error) { return false, nil }
func (NopLedger) Record(context.Context, domain.Delivery) error { return nil }
func (NopLedger) Ping(context.Context) error { return nil }
func (NopLedger) Close() error { return nil }

var (
	_ repository.DeliveryLedger = (*DeliveryLedger)(nil)
	_ repository.DeliveryLedger = NopLedger{}
)
