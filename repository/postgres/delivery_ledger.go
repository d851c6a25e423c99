package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/repository"
)

// Pool is the part of *pgxpool.Pool the ledger uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// DeliveryLedger stores completed deliveries in the deliveries table.
type DeliveryLedger struct {
	pool Pool
	ttl  time.Duration
	now  func() time.Time
}

var _ repository.DeliveryLedger = (*DeliveryLedger)(nil)

// NewDeliveryLedger instantiates a Postgres-backed delivery ledger.
func NewDeliveryLedger(pool Pool, ttl time.Duration) *DeliveryLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryLedger{pool: pool, ttl: ttl, now: time.Now}
}

func (r *DeliveryLedger) Seen(ctx context.Context, key string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM deliveries
			WHERE delivery_key = $1 AND completed_at > $2
		)
	`
	var seen bool
	if err := r.pool.QueryRow(ctx, query, key, r.now().Add(-r.ttl)).Scan(&seen); err != nil {
		return false, err
	}
	return seen, nil
}

func (r *DeliveryLedger) Record(ctx context.Context, delivery domain.Delivery) error {
	if delivery.Key == "" {
		return domain.NewError(domain.ErrCodeInvalidPayload, "delivery key is required")
	}

	const query = `
	INSERT INTO deliveries (delivery_key, product_id, updated, completed_at)
	VALUES ($1, $2, $3, COALESCE($4, NOW()))
	ON CONFLICT (delivery_key) DO UPDATE
	SET product_id = EXCLUDED.product_id,
		updated = EXCLUDED.updated,
		completed_at = EXCLUDED.completed_at
	`
	_, err := r.pool.Exec(ctx, query, delivery.Key, string(delivery.ProductID), delivery.Updated, nullTime(delivery.CompletedAt))
	return err
}

// Cleanup deletes deliveries completed before olderThan.
func (r *DeliveryLedger) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deliveries WHERE completed_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *DeliveryLedger) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *DeliveryLedger) Close() error {
	r.pool.Close()
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
