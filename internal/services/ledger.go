package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/productsync/internal/config"
	"github.com/fastygo/productsync/internal/infrastructure/journal"
	pgInfra "github.com/fastygo/productsync/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/productsync/internal/infrastructure/redis"
	"github.com/fastygo/productsync/repository"
	boltRepo "github.com/fastygo/productsync/repository/bolt"
	"github.com/fastygo/productsync/repository/memory"
	pgRepo "github.com/fastygo/productsync/repository/postgres"
	redisRepo "github.com/fastygo/productsync/repository/redis"
)

// Ledger bundles the selected delivery ledger with the janitor that persistent backends need.
type Ledger struct {
	repository.DeliveryLedger
	Backend string
	Janitor *LedgerJanitor
}

// OpenLedger builds the delivery ledger named by cfg.Backend.
func OpenLedger(ctx context.Context, cfg config.LedgerConfig, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case config.LedgerNone:
		return &Ledger{DeliveryLedger: memory.NopLedger{}, Backend: cfg.Backend}, nil

	case "", config.LedgerMemory:
		ledger, err := memory.NewDeliveryLedger(cfg.MemorySize, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return &Ledger{DeliveryLedger: ledger, Backend: config.LedgerMemory}, nil

	case config.LedgerRedis:
		client, err := redisInfra.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect ledger redis: %w", err)
		}
		return &Ledger{DeliveryLedger: redisRepo.NewDeliveryLedger(client, cfg.TTL), Backend: cfg.Backend}, nil

	case config.LedgerBolt:
		store, err := journal.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open ledger journal: %w", err)
		}
		return withJanitor(boltRepo.NewDeliveryLedger(store, cfg.TTL), cfg, logger)

	case config.LedgerPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("ledger migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect ledger postgres: %w", err)
		}
		return withJanitor(pgRepo.NewDeliveryLedger(pool, cfg.TTL), cfg, logger)

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

type cleanableLedger interface {
	repository.DeliveryLedger
	LedgerCleaner
}

func withJanitor(ledger cleanableLedger, cfg config.LedgerConfig, logger *zap.Logger) (*Ledger, error) {
	janitor, err := NewLedgerJanitor(ledger, logger.Named("ledger_janitor"), JanitorConfig{
		Interval:  cfg.CleanupInterval,
		Retention: cfg.TTL,
	})
	if err != nil {
		ledger.Close()
		return nil, err
	}
	return &Ledger{DeliveryLedger: ledger, Backend: cfg.Backend, Janitor: janitor}, nil
}
