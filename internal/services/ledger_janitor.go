package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LedgerCleaner removes deliveries recorded before a cutoff. The bolt and
// postgres ledgers implement it; the others expire entries on their own.
type LedgerCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)
}

// JanitorConfig controls how often expired deliveries are swept.
type JanitorConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// LedgerJanitor periodically drops expired entries from a persistent delivery ledger.
type LedgerJanitor struct {
	store  LedgerCleaner
	logger *zap.Logger
	cron   *cron.Cron
	cfg    JanitorConfig
	now    func() time.Time
}

func NewLedgerJanitor(store LedgerCleaner, logger *zap.Logger, cfg JanitorConfig) (*LedgerJanitor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &LedgerJanitor{
		store:  store,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(),
		now:    time.Now,
	}

	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("ledger sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule ledger janitor: %w", err)
	}

	return j, nil
}

// Start launches the cron scheduler.
func (j *LedgerJanitor) Start() {
	if j == nil || j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("ledger janitor started", zap.Duration("interval", j.cfg.Interval), zap.Duration("retention", j.cfg.Retention))
}

// Stop waits for a running sweep or for ctx, whichever ends first.
func (j *LedgerJanitor) Stop(ctx context.Context) {
	if j == nil || j.cron == nil {
		return
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	j.logger.Info("ledger janitor stopped")
}

// Sweep removes entries older than the retention window.
func (j *LedgerJanitor) Sweep(ctx context.Context) (int, error) {
	if j == nil || j.store == nil {
		return 0, nil
	}
	cutoff := j.now().Add(-j.cfg.Retention)
	removed, err := j.store.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		j.logger.Info("expired deliveries removed", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}
