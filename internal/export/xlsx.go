// Package export renders ledger reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"budgetwise/internal/core"
	"budgetwise/internal/services"
)

const (
	SheetSummary  = "Summary"
	SheetExpenses = "Expenses"
	SheetIncomes  = "Incomes"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	colorHeader = "#2D3436"
	dateLayout  = "2006-01-02"
)

type styles struct {
	title, header, money, alert int
}

// WriteMonthlyReport writes a workbook with Summary, Expenses and Incomes sheets.
func WriteMonthlyReport(w io.Writer, r services.MonthlyReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetExpenses, SheetIncomes} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	if err := writeSummary(f, st, r.Summary); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	expenseRows := make([][]any, len(r.Expenses))
	for i, e := range r.Expenses {
		expenseRows[i] = []any{e.Date.Format(dateLayout), e.Category, e.Description, e.Utility, e.Amount.Float()}
	}
	if err := writeTable(f, st, SheetExpenses, []string{"Date", "Category", "Description", "Utility", "Amount"}, expenseRows, 5); err != nil {
		return fmt.Errorf("expenses sheet: %w", err)
	}

	incomeRows := make([][]any, len(r.Incomes))
	for i, inc := range r.Incomes {
		incomeRows[i] = []any{inc.Date.Format(dateLayout), inc.Source, inc.Description, inc.Amount.Float()}
	}
	if err := writeTable(f, st, SheetIncomes, []string{"Date", "Source", "Description", "Amount"}, incomeRows, 4); err != nil {
		return fmt.Errorf("incomes sheet: %w", err)
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.money, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil {
		return st, err
	}
	st.alert, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#D63031"},
	})
	return st, err
}

func writeSummary(f *excelize.File, st styles, s core.MonthSummary) error {
	sh := SheetSummary
	if err := f.SetCellValue(sh, "A1", "Budgetwise report "+s.Period.String()); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, "A1", "A1", st.title); err != nil {
		return err
	}

	limit := "none"
	if s.ExpenseLimit.Cents > 0 {
		limit = s.ExpenseLimit.String()
	}
	rows := [][]any{
		{"Total expenses", s.TotalExpenses.Float()},
		{"Total income", s.TotalIncome.Float()},
		{"Net savings", s.NetSavings.Float()},
		{"Expense limit", limit},
		{"Limit exceeded", s.LimitExceeded},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(sh, fmt.Sprintf("A%d", i+3), &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sh, "B3", "B5", st.money); err != nil {
		return err
	}
	if s.LimitExceeded {
		if err := f.SetCellStyle(sh, "A7", "B7", st.alert); err != nil {
			return err
		}
	}

	next := len(rows) + 4
	if err := f.SetSheetRow(sh, fmt.Sprintf("A%d", next), &[]any{"Category", "Amount"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, fmt.Sprintf("A%d", next), fmt.Sprintf("B%d", next), st.header); err != nil {
		return err
	}
	for i, c := range s.ExpensesByCategory {
		r := next + 1 + i
		if err := f.SetSheetRow(sh, fmt.Sprintf("A%d", r), &[]any{c.Name, c.Amount.Float()}); err != nil {
			return err
		}
		if err := f.SetCellStyle(sh, fmt.Sprintf("B%d", r), fmt.Sprintf("B%d", r), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sh, "A", "A", 24)
}

// writeTable writes a header row and data rows; moneyCol is the 1-based
// column holding amounts.
func writeTable(f *excelize.File, st styles, sheet string, header []string, rows [][]any, moneyCol int) error {
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(moneyCol, 2)
		to, _ := excelize.CoordinatesToCellName(moneyCol, len(rows)+1)
		if err := f.SetCellStyle(sheet, from, to, st.money); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "C", 20)
}
