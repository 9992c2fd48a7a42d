// Package report derives read-only views from backend data: budget usage
// rows, expense shares per category, CSV export and a pie chart.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/money"
)

// ErrNoExpenses is returned when there is nothing to chart.
var ErrNoExpenses = errors.New("no expenses to chart")

var hundred = decimal.NewFromInt(100)

// BudgetRow is one budget item as shown in the budget list.
type BudgetRow struct {
	Item      models.BudgetItem
	Percent   int
	Bar       int
	Remaining decimal.Decimal
	Status    models.BudgetStatus
}

// BudgetRows returns the items sorted by usage, highest first. Ties keep
// name order.
func BudgetRows(items []models.BudgetItem) []BudgetRow {
	rows := make([]BudgetRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, BudgetRow{
			Item:      item,
			Percent:   item.DisplayPercent(),
			Bar:       item.BarPercent(),
			Remaining: item.Remaining(),
			Status:    item.Status(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := rows[i].Item.UsagePercent(), rows[j].Item.UsagePercent()
		if pi != pj {
			return pi > pj
		}
		return rows[i].Item.Name < rows[j].Item.Name
	})
	return rows
}

// CategoryShare is the expense total of one category and its share of all
// expenses.
type CategoryShare struct {
	Category string
	Amount   decimal.Decimal
	Percent  decimal.Decimal
}

// CategoryShares returns the summary's expenses per category, largest first.
// Percentages are relative to the summary's total expenses (or the sum of
// categories when the total is zero) and never exceed 100.
func CategoryShares(summary models.FinancialSummary) []CategoryShare {
	total := summary.TotalExpenses
	if !total.IsPositive() {
		total = decimal.Zero
		for _, amount := range summary.ExpensesByCategory {
			total = total.Add(amount)
		}
	}

	shares := make([]CategoryShare, 0, len(summary.ExpensesByCategory))
	for category, amount := range summary.ExpensesByCategory {
		percent := decimal.Zero
		if total.IsPositive() {
			percent = decimal.Min(amount.Div(total).Mul(hundred).Round(2), hundred)
		}
		shares = append(shares, CategoryShare{Category: category, Amount: amount, Percent: percent})
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

// ExpensesCSV renders expenses as CSV with a header row.
func ExpensesCSV(expenses []models.Expense) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"ID", "Fecha", "Monto", "Monto CLP", "Tipo", "Partida", "Categoría", "Observación"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		e := &expenses[i]
		partida := ""
		if e.BudgetItemName != nil {
			partida = *e.BudgetItemName
		}
		category := ""
		if e.Category != nil {
			category = *e.Category
		}
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date.Format(models.DateLayout),
			e.Amount.StringFixed(0),
			money.FormatCLP(e.Amount),
			string(e.Kind),
			partida,
			category,
			e.Note,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// CategoryChart renders the summary's expenses per category as a PNG pie.
func CategoryChart(summary models.FinancialSummary) ([]byte, error) {
	var values []float64
	var names []string
	for _, share := range CategoryShares(summary) {
		if !share.Amount.IsPositive() {
			continue
		}
		names = append(names, share.Category)
		values = append(values, share.Amount.InexactFloat64())
	}
	if len(values) == 0 {
		return nil, ErrNoExpenses
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: "Gastos por categoría",
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// ExportFilename names an export produced at now, e.g. "gastos_2024-05.csv".
func ExportFilename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("2006-01"), ext)
}
