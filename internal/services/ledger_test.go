package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/internal/config"
)

func TestOpenLedger(t *testing.T) {
	server := miniredis.RunT(t)

	cases := []struct {
		name        string
		cfg         config.LedgerConfig
		remembers   bool
		wantJanitor bool
	}{
		{name: "none", cfg: config.LedgerConfig{Backend: config.LedgerNone}},
		{name: "memory", cfg: config.LedgerConfig{Backend: config.LedgerMemory, MemorySize: 10, TTL: time.Hour}, remembers: true},
		{name: "redis", cfg: config.LedgerConfig{Backend: config.LedgerRedis, RedisURL: "redis://" + server.Addr(), TTL: time.Hour}, remembers: true},
		{name: "bolt", cfg: config.LedgerConfig{Backend: config.LedgerBolt, BoltPath: filepath.Join(t.TempDir(), "ledger.db"), TTL: time.Hour, CleanupInterval: time.Minute}, remembers: true, wantJanitor: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger, err := OpenLedger(context.Background(), tc.cfg, nil)
			require.NoError(t, err)
			defer ledger.Close()

			ctx := context.Background()
			require.NoError(t, ledger.Ping(ctx))
			require.NoError(t, ledger.Record(ctx, domain.Delivery{Key: "5:5"}))

			seen, err := ledger.Seen(ctx, "5:5")
			require.NoError(t, err)
			assert.Equal(t, tc.remembers, seen)
			assert.Equal(t, tc.wantJanitor, ledger.Janitor != nil)
		})
	}
}

func TestOpenLedger_Unknown(t *testing.T) {
	_, err := OpenLedger(context.Background(), config.LedgerConfig{Backend: "dynamo"}, nil)
	assert.Error(t, err)
}

func TestOpenLedger_PostgresRequiresDatabase(t *testing.T) {
	_, err := OpenLedger(context.Background(), config.LedgerConfig{Backend: config.LedgerPostgres}, nil)
	assert.ErrorContains(t, err, "DATABASE_URL")
}
