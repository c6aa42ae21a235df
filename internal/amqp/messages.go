package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgetwise/internal/core"
)

type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
	IncomeCreated  EventType = "income.created"
	IncomeUpdated  EventType = "income.updated"
	IncomeDeleted  EventType = "income.deleted"
	LimitExceeded  EventType = "limit.exceeded"
)

func (t EventType) Valid() bool {
	switch t {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted,
		IncomeCreated, IncomeUpdated, IncomeDeleted, LimitExceeded:
		return true
	}
	return false
}

// LedgerEvent is published whenever a user's ledger changes. It carries the
// full record so consumers never read the database.
type LedgerEvent struct {
	Type        EventType  `json:"type"`
	UserID      int64      `json:"userId"`
	EntityID    int64      `json:"entityId,omitempty"`
	Amount      core.Money `json:"amount"`
	Limit       core.Money `json:"limit"`
	Category    string     `json:"category,omitempty"`
	Source      string     `json:"source,omitempty"`
	Description string     `json:"description,omitempty"`
	Date        time.Time  `json:"date"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
	Timestamp   time.Time  `json:"timestamp"`
}

func NewExpenseEvent(t EventType, e core.Expense) LedgerEvent {
	return LedgerEvent{
		Type:        t,
		UserID:      e.UserID,
		EntityID:    e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
		Month:       e.Month,
		Year:        e.Year,
		Timestamp:   time.Now().UTC(),
	}
}

func NewIncomeEvent(t EventType, i core.Income) LedgerEvent {
	return LedgerEvent{
		Type:        t,
		UserID:      i.UserID,
		EntityID:    i.ID,
		Amount:      i.Amount,
		Source:      i.Source,
		Description: i.Description,
		Date:        i.Date,
		Month:       i.Month,
		Year:        i.Year,
		Timestamp:   time.Now().UTC(),
	}
}

func NewLimitExceededEvent(userID int64, p core.Period, spent, limit core.Money) LedgerEvent {
	return LedgerEvent{
		Type:      LimitExceeded,
		UserID:    userID,
		Amount:    spent,
		Limit:     limit,
		Month:     p.Month,
		Year:      p.Year,
		Timestamp: time.Now().UTC(),
	}
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes a message body and rejects unknown event types.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	if !e.Type.Valid() {
		return LedgerEvent{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.UserID == 0 {
		return LedgerEvent{}, fmt.Errorf("event %s has no user", e.Type)
	}
	return e, nil
}
