// Package worker turns ledger events from the broker into spreadsheet rows.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"budgetwise/internal/amqp"
	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
	"budgetwise/internal/sheets"
)

const (
	seenCacheSize = 4096
	seenCacheTTL  = 24 * time.Hour
)

// LedgerWorker appends one ledger row per event. Events already written in
// the last day are skipped so broker redeliveries do not duplicate rows.
type LedgerWorker struct {
	writer sheets.LedgerWriter
	seen   *cache.LRU[string, struct{}]
	log    zerolog.Logger

	processed atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

func NewLedgerWorker(writer sheets.LedgerWriter, log zerolog.Logger) *LedgerWorker {
	return &LedgerWorker{
		writer: writer,
		seen:   cache.NewLRU[string, struct{}](seenCacheSize, seenCacheTTL),
		log:    applog.WithComponent(log, applog.ComponentWorker),
	}
}

// Handle is an amqp.Handler.
func (w *LedgerWorker) Handle(ctx context.Context, e amqp.LedgerEvent) error {
	key := eventKey(e)
	if _, dup := w.seen.Get(key); dup {
		w.skipped.Add(1)
		w.log.Debug().Str(applog.FieldEventType, string(e.Type)).Int64("entity_id", e.EntityID).Msg("Duplicate event skipped")
		return nil
	}

	ref, err := w.writer.Append(ctx, RowFromEvent(e))
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append ledger row: %w", err)
	}
	w.seen.Set(key, struct{}{})
	w.processed.Add(1)

	w.log.Info().Str(applog.FieldEventType, string(e.Type)).Int64(applog.FieldUserID, e.UserID).
		Str("sheets_ref", ref).Msg("Ledger row appended")
	return nil
}

type Stats struct {
	Processed, Skipped, Failed uint64
}

func (w *LedgerWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Skipped: w.skipped.Load(), Failed: w.failed.Load()}
}

// RowFromEvent maps an event to its ledger row.
func RowFromEvent(e amqp.LedgerEvent) sheets.LedgerRow {
	label := e.Category
	if e.Source != "" {
		label = e.Source
	}
	if e.Type == amqp.LimitExceeded {
		label = "limit " + e.Limit.String()
	}
	recorded := e.Timestamp
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	return sheets.LedgerRow{
		Recorded:    recorded,
		Event:       string(e.Type),
		UserID:      e.UserID,
		EntityID:    e.EntityID,
		Label:       label,
		Description: e.Description,
		Date:        e.Date,
		Period:      core.Period{Year: e.Year, Month: e.Month},
		Amount:      e.Amount,
	}
}

func eventKey(e amqp.LedgerEvent) string {
	return fmt.Sprintf("%s/%d/%d/%d", e.Type, e.UserID, e.EntityID, e.Timestamp.UnixNano())
}
