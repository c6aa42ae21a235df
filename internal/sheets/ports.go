// Package sheets defines the ledger export target the worker appends to.
package sheets

import (
	"context"
	"time"

	"budgetwise/internal/core"
)

// LedgerRow is one line of the exported ledger: a single change to a user's
// expenses or incomes, or a limit alert.
type LedgerRow struct {
	Recorded    time.Time
	Event       string
	UserID      int64
	EntityID    int64
	Label       string // category or source
	Description string
	Date        time.Time
	Period      core.Period
	Amount      core.Money
}

// LedgerHeader lists the column titles matching LedgerRow.
var LedgerHeader = []string{"Recorded", "Event", "User", "Entry", "Label", "Description", "Date", "Period", "Amount"}

type LedgerWriter interface {
	// Append adds row at the end of the ledger and returns a row reference.
	Append(ctx context.Context, row LedgerRow) (rowRef string, err error)
}
