package core

type (
	// CategoryAmount is a named total (expense category or income source).
	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// CategorySpend is one category's spending in a period, as seen by the budget optimizer.
	CategorySpend struct {
		Category       string
		PreviousAmount Money
		Utility        int
	}

	MonthSummary struct {
		Period             Period
		TotalExpenses      Money
		TotalIncome        Money
		NetSavings         Money
		ExpensesByCategory []CategoryAmount
		IncomeBySource     []CategoryAmount
		ExpenseLimit       Money
		LimitExceeded      bool
	}

	// CategoryStats describes how a category's monthly total moved over a window of months.
	CategoryStats struct {
		Category string
		Months   int
		Mean     Money
		StdDev   Money
		Latest   Money
		ZScore   float64
	}
)

// NewMonthSummary totals the per-category and per-source amounts and
// evaluates the expense limit. A zero limit means no limit.
func NewMonthSummary(p Period, byCategory, bySource []CategoryAmount, limit Money) MonthSummary {
	s := MonthSummary{
		Period:             p,
		ExpensesByCategory: byCategory,
		IncomeBySource:     bySource,
		ExpenseLimit:       limit,
	}
	for _, c := range byCategory {
		s.TotalExpenses = s.TotalExpenses.Add(c.Amount)
	}
	for _, c := range bySource {
		s.TotalIncome = s.TotalIncome.Add(c.Amount)
	}
	s.NetSavings = s.TotalIncome.Sub(s.TotalExpenses)
	s.LimitExceeded = LimitExceeded(s.TotalExpenses, limit)
	return s
}

// LimitExceeded reports whether spent is above a positive limit.
func LimitExceeded(spent, limit Money) bool {
	return limit.Cents > 0 && spent.Cents > limit.Cents
}
