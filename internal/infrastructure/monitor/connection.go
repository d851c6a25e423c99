package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by every delivery ledger backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CredentialState is satisfied by credential.Provider.
type CredentialState interface {
	Loaded() bool
}

// Sizer reports the number of entries in an on-disk store.
type Sizer interface {
	Size() (int, error)
}

type Monitor struct {
	ledger     Pinger
	backend    string
	credential CredentialState
	journal    Sizer

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(ledger Pinger, backend string, credential CredentialState, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		ledger:     ledger,
		backend:    backend,
		credential: credential,
		interval:   interval,
		stopCh:     make(chan struct{}),
		logger:     logger,
	}
}

// WithJournal adds the on-disk journal size to the reported status.
func (m *Monitor) WithJournal(journal Sizer) *Monitor {
	m.journal = journal
	return m
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and stores the result.
func (m *Monitor) Refresh() Status {
	status := Status{
		Ledger:        m.checkLedger(),
		LedgerBackend: m.backend,
		Credential:    m.credential != nil && m.credential.Loaded(),
		JournalSize:   m.journalSize(),
		LastCheck:     time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy() != status.Healthy() {
		m.logger.Warn("health changed",
			zap.Bool("healthy", status.Healthy()),
			zap.Bool("ledger", status.Ledger),
			zap.Bool("credential", status.Credential))
	}
	return status
}

func (m *Monitor) checkLedger() bool {
	if m.ledger == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.ledger.Ping(ctx); err != nil {
		m.logger.Warn("ledger ping failed", zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) journalSize() int {
	if m.journal == nil {
		return 0
	}
	size, err := m.journal.Size()
	if err != nil {
		m.logger.Warn("journal size check failed", zap.Error(err))
		return 0
	}
	return size
}
