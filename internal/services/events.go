package services

import (
	"context"

	"github.com/rs/zerolog"

	"budgetwise/internal/amqp"
	applog "budgetwise/internal/log"
)

// EventPublisher delivers ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event amqp.LedgerEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, amqp.LedgerEvent) error { return nil }

// notify publishes without failing the caller; the ledger change is already stored.
func notify(ctx context.Context, events EventPublisher, log zerolog.Logger, event amqp.LedgerEvent) {
	if err := events.Publish(ctx, event); err != nil {
		log.Error().Err(err).
			Str(applog.FieldEventType, string(event.Type)).
			Int64(applog.FieldUserID, event.UserID).
			Msg("Failed to publish ledger event")
	}
}

func orNop(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}
