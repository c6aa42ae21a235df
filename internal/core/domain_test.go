package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpenseStamp(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	e := Expense{Amount: Cents(100), Category: "Food"}
	e.Stamp(now)
	assert.Equal(t, now, e.Date)
	assert.Equal(t, 3, e.Month)
	assert.Equal(t, 2024, e.Year)
	assert.Equal(t, DefaultUtility, e.Utility)

	// A late-evening local time that is already next month in UTC.
	loc := time.FixedZone("minus5", -5*3600)
	e = Expense{Date: time.Date(2024, 1, 31, 22, 0, 0, 0, loc), Utility: 4}
	e.Stamp(now)
	assert.Equal(t, 2, e.Month)
	assert.Equal(t, 4, e.Utility)
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Date: time.Now(), Amount: Cents(100), Category: "Food", Utility: 1}
	assert.NoError(t, good.Validate())

	bads := map[string]Expense{
		"zero date":     {Amount: Cents(1), Category: "c"},
		"zero amount":   {Date: time.Now(), Category: "c"},
		"no category":   {Date: time.Now(), Amount: Cents(1), Category: "  "},
		"long desc":     {Date: time.Now(), Amount: Cents(1), Category: "c", Description: strings.Repeat("x", 201)},
		"neg utility":   {Date: time.Now(), Amount: Cents(1), Category: "c", Utility: -1},
		"long category": {Date: time.Now(), Amount: Cents(1), Category: strings.Repeat("x", 101)},
	}
	for name, e := range bads {
		assert.Error(t, e.Validate(), name)
	}
}

func TestIncomeValidate(t *testing.T) {
	i := Income{Amount: Cents(5000), Source: "Salary"}
	i.Stamp(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, i.Validate())
	assert.Equal(t, 12, i.Month)

	i.Source = ""
	assert.ErrorIs(t, i.Validate(), ErrEmptySource)
}

func TestValidateRegistration(t *testing.T) {
	assert.NoError(t, ValidateRegistration("Ann", "ann@example.com", "secret"))
	assert.ErrorIs(t, ValidateRegistration("", "ann@example.com", "secret"), ErrEmptyName)
	assert.ErrorIs(t, ValidateRegistration("Ann", "not-an-email", "secret"), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateRegistration("Ann", "ann@example.com", "12345"), ErrWeakPassword)
	assert.Equal(t, "ann@example.com", NormalizeEmail("  Ann@Example.COM "))
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, Period{Year: 2023, Month: 12}, Period{Year: 2024, Month: 1}.Previous())
	assert.Equal(t, Period{Year: 2024, Month: 4}, Period{Year: 2024, Month: 5}.Previous())
	assert.Equal(t, Period{Year: 2023, Month: 11}, Period{Year: 2024, Month: 5}.Add(-6))
	assert.Equal(t, Period{Year: 2025, Month: 1}, Period{Year: 2024, Month: 12}.Add(1))
	assert.Equal(t, "2024-03", Period{Year: 2024, Month: 3}.String())

	_, err := NewPeriod(2024, 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)

	f := PeriodFilter{Month: 3}
	assert.True(t, f.Matches(3, 2020))
	assert.False(t, f.Matches(4, 2020))
	assert.True(t, PeriodFilter{}.Matches(1, 1))
}

func TestNewMonthSummary(t *testing.T) {
	s := NewMonthSummary(Period{Year: 2024, Month: 3},
		[]CategoryAmount{{"Food", Cents(20000)}, {"Rent", Cents(80000)}},
		[]CategoryAmount{{"Salary", Cents(150000)}},
		Cents(90000))
	assert.Equal(t, Cents(100000), s.TotalExpenses)
	assert.Equal(t, Cents(150000), s.TotalIncome)
	assert.Equal(t, Cents(50000), s.NetSavings)
	assert.True(t, s.LimitExceeded)

	assert.False(t, LimitExceeded(Cents(100), Money{}))
}
