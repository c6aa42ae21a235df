package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
	"budgetwise/internal/storage"
)

const (
	DefaultStatsMonths = 6
	MaxStatsMonths     = 24
)

// MonthlyReport is everything the spreadsheet export needs for one month.
type MonthlyReport struct {
	Summary  core.MonthSummary
	Expenses []core.Expense
	Incomes  []core.Income
}

// ReportService derives read-only views over a user's ledger.
type ReportService struct {
	users    storage.UserStore
	expenses storage.ExpenseStore
	incomes  storage.IncomeStore
	log      zerolog.Logger
}

func NewReportService(users storage.UserStore, expenses storage.ExpenseStore, incomes storage.IncomeStore, log zerolog.Logger) *ReportService {
	return &ReportService{
		users:    users,
		expenses: expenses,
		incomes:  incomes,
		log:      applog.WithComponent(log, applog.ComponentReport),
	}
}

func (s *ReportService) MonthlySummary(ctx context.Context, userID int64, p core.Period) (core.MonthSummary, error) {
	if err := p.Validate(); err != nil {
		return core.MonthSummary{}, err
	}

	var (
		spend   []core.CategorySpend
		sources []core.CategoryAmount
		user    core.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spend, err = s.expenses.CategoryTotals(gctx, userID, p)
		return err
	})
	g.Go(func() (err error) {
		sources, err = s.incomes.SourceTotals(gctx, userID, p)
		return err
	})
	g.Go(func() (err error) {
		user, err = s.users.GetUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthSummary{}, fmt.Errorf("monthly summary %s: %w", p, err)
	}

	byCategory := make([]core.CategoryAmount, len(spend))
	for i, c := range spend {
		byCategory[i] = core.CategoryAmount{Name: c.Category, Amount: c.PreviousAmount}
	}
	return core.NewMonthSummary(p, byCategory, sources, user.ExpenseLimit), nil
}

func (s *ReportService) Monthly(ctx context.Context, userID int64, p core.Period) (MonthlyReport, error) {
	summary, err := s.MonthlySummary(ctx, userID, p)
	if err != nil {
		return MonthlyReport{}, err
	}
	filter := core.PeriodFilter{Month: p.Month, Year: p.Year}
	r := MonthlyReport{Summary: summary}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.Expenses, err = s.expenses.ListExpenses(gctx, userID, filter)
		return err
	})
	g.Go(func() (err error) {
		r.Incomes, err = s.incomes.ListIncomes(gctx, userID, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthlyReport{}, fmt.Errorf("monthly report %s: %w", p, err)
	}
	return r, nil
}

// Stats computes, per category, the mean and standard deviation of monthly
// totals over the months periods ending at end. Months without spending
// count as zero. ZScore places the latest month against that history.
func (s *ReportService) Stats(ctx context.Context, userID int64, end core.Period, months int) ([]core.CategoryStats, error) {
	if err := end.Validate(); err != nil {
		return nil, err
	}
	if months <= 0 {
		months = DefaultStatsMonths
	}
	months = min(months, MaxStatsMonths)

	perMonth := make([][]core.CategorySpend, months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range months {
		p := end.Add(i - months + 1)
		g.Go(func() (err error) {
			perMonth[i], err = s.expenses.CategoryTotals(gctx, userID, p)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("spending stats: %w", err)
	}

	series := map[string][]float64{}
	for i, totals := range perMonth {
		for _, c := range totals {
			if _, ok := series[c.Category]; !ok {
				series[c.Category] = make([]float64, months)
			}
			series[c.Category][i] = float64(c.PreviousAmount.Cents)
		}
	}

	out := make([]core.CategoryStats, 0, len(series))
	for category, xs := range series {
		mean, std := stat.MeanStdDev(xs, nil)
		if months == 1 || math.IsNaN(std) {
			std = 0
		}
		latest := xs[len(xs)-1]
		var z float64
		if std > 0 {
			z = stat.StdScore(latest, mean, std)
		}
		out = append(out, core.CategoryStats{
			Category: category,
			Months:   months,
			Mean:     core.Cents(int64(math.Round(mean))),
			StdDev:   core.Cents(int64(math.Round(std))),
			Latest:   core.Cents(int64(latest)),
			ZScore:   math.Round(z*100) / 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })

	s.log.Debug().Int64(applog.FieldUserID, userID).Str(applog.FieldPeriod, end.String()).
		Int("months", months).Int("categories", len(out)).Msg("Spending stats computed")
	return out, nil
}
