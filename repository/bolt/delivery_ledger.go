package bolt

import (
	"context"
	"time"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/internal/infrastructure/journal"
	"github.com/fastygo/productsync/repository"
)

// DeliveryLedger keeps completed deliveries in the on-disk journal. Entries
// older than ttl are treated as unseen even before the janitor removes them.
type DeliveryLedger struct {
	store *journal.Store
	ttl   time.Duration
	now   func() time.Time
}

var _ repository.DeliveryLedger = (*DeliveryLedger)(nil)

func NewDeliveryLedger(store *journal.Store, ttl time.Duration) *DeliveryLedger {
	return &DeliveryLedger{store: store, ttl: ttl, now: time.Now}
}

func (l *DeliveryLedger) Seen(_ context.Context, key string) (bool, error) {
	entry, err := l.store.Get(key)
	if err != nil || entry == nil {
		return false, err
	}
	if l.ttl > 0 && l.now().Sub(entry.RecordedAt) > l.ttl {
		return false, nil
	}
	return true, nil
}

func (l *DeliveryLedger) Record(_ context.Context, delivery domain.Delivery) error {
	if delivery.Key == "" {
		return domain.NewError(domain.ErrCodeInvalidPayload, "delivery key is required")
	}
	return l.store.Put(delivery)
}

func (l *DeliveryLedger) Ping(context.Context) error {
	_, err := l.store.Size()
	return err
}

func (l *DeliveryLedger) Close() error {
	return l.store.Close()
}

// Cleanup removes entries recorded before olderThan.
func (l *DeliveryLedger) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	return l.store.Cleanup(olderThan)
}

// Store exposes the journal for size reporting.
func (l *DeliveryLedger) Store() *journal.Store {
	return l.store
}
