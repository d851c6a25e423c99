package monitor

import "time"

type Status struct {
	Ledger        bool      `json:"ledger"`
	LedgerBackend string    `json:"ledger_backend"`
	Credential    bool      `json:"credential"`
	JournalSize   int       `json:"journal_size,omitempty"`
	LastCheck     time.Time `json:"last_check"`
}

// Healthy reports whether every required dependency answered on the last check.
func (s Status) Healthy() bool {
	return s.Ledger && s.Credential
}
