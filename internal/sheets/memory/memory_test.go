package memory

import (
	"context"
	"testing"

	ports "budgetwise/internal/sheets"
)

func TestLedgerAppend(t *testing.T) {
	l := New()
	ref, err := l.Append(context.Background(), ports.LedgerRow{Event: "income.created", UserID: 1})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, _ = l.Append(context.Background(), ports.LedgerRow{Event: "income.deleted", UserID: 1})
	if ref != "mem:2" {
		t.Fatalf("unexpected ref %q", ref)
	}

	rows := l.Rows()
	if len(rows) != 2 || rows[1].Event != "income.deleted" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	rows[0].Event = "mutated"
	if l.Rows()[0].Event != "income.created" {
		t.Fatal("Rows must return a copy")
	}
}
