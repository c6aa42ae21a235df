package core

import (
	"fmt"
	"time"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

// PeriodFilter selects records by month and/or year; zero fields match anything.
type PeriodFilter struct {
	Month int
	Year  int
}

func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	return p, p.Validate()
}

func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Add moves the period by n months; negative n goes back.
func (p Period) Add(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

// Previous is the calendar month before p (January wraps to December of the previous year).
func (p Period) Previous() Period {
	if p.Month-1 < 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (f PeriodFilter) Matches(month, year int) bool {
	if f.Month != 0 && f.Month != month {
		return false
	}
	if f.Year != 0 && f.Year != year {
		return false
	}
	return true
}
