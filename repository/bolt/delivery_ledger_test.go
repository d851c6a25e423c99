package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/internal/infrastructure/journal"
)

func TestDeliveryLedger(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	ledger := NewDeliveryLedger(store, time.Hour)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	require.NoError(t, ledger.Ping(ctx))
	require.NoError(t, ledger.Record(ctx, domain.Delivery{Key: "9:1", CompletedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, ledger.Record(ctx, domain.Delivery{Key: "9:2", CompletedAt: now.Add(-time.Minute)}))

	seen, err := ledger.Seen(ctx, "9:1")
	require.NoError(t, err)
	assert.False(t, seen, "expired entries are not duplicates")

	seen, err = ledger.Seen(ctx, "9:2")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = ledger.Seen(ctx, "9:3")
	require.NoError(t, err)
	assert.False(t, seen)

	var domainErr *domain.Error
	require.ErrorAs(t, ledger.Record(ctx, domain.Delivery{}), &domainErr)

	require.NoError(t, ledger.Close())
	assert.Error(t, ledger.Ping(ctx))
}
