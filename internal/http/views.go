package http

import (
	"time"

	"budgetwise/internal/budget"
	"budgetwise/internal/core"
)

// JSON shapes returned by the API.

type expenseView struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Utility     int        `json:"utility"`
	Date        time.Time  `json:"date"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Utility:     e.Utility,
		Date:        e.Date,
		Month:       e.Month,
		Year:        e.Year,
	}
}

func expenseViews(in []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(in))
	for _, e := range in {
		out = append(out, newExpenseView(e))
	}
	return out
}

type incomeView struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Amount      core.Money `json:"amount"`
	Source      string     `json:"source"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
}

func newIncomeView(i core.Income) incomeView {
	return incomeView{
		ID:          i.ID,
		UserID:      i.UserID,
		Amount:      i.Amount,
		Source:      i.Source,
		Description: i.Description,
		Date:        i.Date,
		Month:       i.Month,
		Year:        i.Year,
	}
}

func incomeViews(in []core.Income) []incomeView {
	out := make([]incomeView, 0, len(in))
	for _, i := range in {
		out = append(out, newIncomeView(i))
	}
	return out
}

type amountView struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

func amountViews(in []core.CategoryAmount) []amountView {
	out := make([]amountView, 0, len(in))
	for _, a := range in {
		out = append(out, amountView{Name: a.Name, Amount: a.Amount})
	}
	return out
}

type summaryView struct {
	Month              int          `json:"month"`
	Year               int          `json:"year"`
	TotalExpenses      core.Money   `json:"totalExpenses"`
	TotalIncome        core.Money   `json:"totalIncome"`
	NetSavings         core.Money   `json:"netSavings"`
	ExpensesByCategory []amountView `json:"expensesByCategory"`
	IncomeBySource     []amountView `json:"incomeBySource"`
	ExpenseLimit       core.Money   `json:"expenseLimit"`
	LimitExceeded      bool         `json:"limitExceeded"`
}

func newSummaryView(s core.MonthSummary) summaryView {
	return summaryView{
		Month:              s.Period.Month,
		Year:               s.Period.Year,
		TotalExpenses:      s.TotalExpenses,
		TotalIncome:        s.TotalIncome,
		NetSavings:         s.NetSavings,
		ExpensesByCategory: amountViews(s.ExpensesByCategory),
		IncomeBySource:     amountViews(s.IncomeBySource),
		ExpenseLimit:       s.ExpenseLimit,
		LimitExceeded:      s.LimitExceeded,
	}
}

type categoryStatsView struct {
	Category string     `json:"category"`
	Mean     core.Money `json:"mean"`
	StdDev   core.Money `json:"stdDev"`
	Latest   core.Money `json:"latest"`
	ZScore   float64    `json:"zScore"`
}

type statsView struct {
	Month      int                 `json:"month"`
	Year       int                 `json:"year"`
	Months     int                 `json:"months"`
	Categories []categoryStatsView `json:"categories"`
}

// optimizeResponse is the success envelope of GET /api/expenses/optimize.
// data is always present, an empty result encodes as [].
type optimizeResponse struct {
	Success            bool                `json:"success"`
	Data               []budget.Allocation `json:"data"`
	Month              int                 `json:"month"`
	Year               int                 `json:"year"`
	TotalBudget        core.Money          `json:"totalBudget"`
	OptimizationMethod string              `json:"optimizationMethod"`
}

// optimizeFailure is returned for rejected parameters and planner errors.
type optimizeFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func newOptimizeResponse(plan budget.Plan) optimizeResponse {
	data := plan.Allocations
	if data == nil {
		data = []budget.Allocation{}
	}
	return optimizeResponse{
		Success:            true,
		Data:               data,
		Month:              plan.Period.Month,
		Year:               plan.Period.Year,
		TotalBudget:        plan.Total,
		OptimizationMethod: string(plan.Method),
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type limitResponse struct {
	Success bool       `json:"success,omitempty"`
	Limit   core.Money `json:"limit"`
	Message string     `json:"message"`
}
