package memory

import (
	"context"
	"fmt"
	"sync"

	ports "budgetwise/internal/sheets"
)

// Ledger keeps appended rows in memory, for local runs without Google credentials.
type Ledger struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
}

var _ ports.LedgerWriter = (*Ledger)(nil)

func New() *Ledger { return &Ledger{} }

func (l *Ledger) Append(_ context.Context, row ports.LedgerRow) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, row)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (l *Ledger) Rows() []ports.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.LedgerRow(nil), l.rows...)
}
