package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/repository"
)

type deliveryLedger struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewDeliveryLedger creates a Redis-backed delivery ledger. Entries expire after ttl.
func NewDeliveryLedger(client *redislib.Client, ttl time.Duration) repository.DeliveryLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &deliveryLedger{
		client: client,
		prefix: "delivery:",
		ttl:    ttl,
	}
}

func (r *deliveryLedger) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *deliveryLedger) Record(ctx context.Context, delivery domain.Delivery) error {
	if delivery.Key == "" {
		return domain.NewError(domain.ErrCodeInvalidPayload, "delivery key is required")
	}
	if delivery.CompletedAt.IsZero() {
		delivery.CompletedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(delivery)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(delivery.Key), payload, r.ttl).Err()
}

func (r *deliveryLedger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *deliveryLedger) Close() error {
	return r.client.Close()
}

func (r *deliveryLedger) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}
