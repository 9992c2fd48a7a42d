package models

import "github.com/shopspring/decimal"

// Display ceilings for budget usage percentages.
const (
	MaxDisplayPercent = 120
	MaxBarPercent     = 100
	WarningPercent    = 80
)

// BudgetStatus is the display classification of a budget item.
type BudgetStatus string

// Budget statuses.
const (
	BudgetOK       BudgetStatus = "ok"
	BudgetWarning  BudgetStatus = "warning"
	BudgetExceeded BudgetStatus = "exceeded"
)

var hundred = decimal.NewFromInt(100)

// UsagePercent is spent over allocated, rounded to a whole percent.
// It is unbounded; use DisplayPercent or BarPercent for rendering.
func (b BudgetItem) UsagePercent() int {
	if !b.Allocated.IsPositive() {
		return 0
	}
	return int(b.SpentThisMonth.Div(b.Allocated).Mul(hundred).Round(0).IntPart())
}

// DisplayPercent is UsagePercent capped at MaxDisplayPercent.
func (b BudgetItem) DisplayPercent() int {
	return min(b.UsagePercent(), MaxDisplayPercent)
}

// BarPercent is UsagePercent capped at MaxBarPercent, for progress bars.
func (b BudgetItem) BarPercent() int {
	return max(min(b.UsagePercent(), MaxBarPercent), 0)
}

// Remaining is allocated minus spent. Display only: the authoritative
// figure is AvailableThisMonth.
func (b BudgetItem) Remaining() decimal.Decimal {
	return b.Allocated.Sub(b.SpentThisMonth)
}

// Status classifies the item for display.
func (b BudgetItem) Status() BudgetStatus {
	switch {
	case b.AvailableThisMonth.IsNegative() || b.Remaining().IsNegative():
		return BudgetExceeded
	case b.UsagePercent() >= WarningPercent:
		return BudgetWarning
	default:
		return BudgetOK
	}
}

// Label returns the Spanish badge shown next to a budget item.
func (s BudgetStatus) Label() string {
	switch s {
	case BudgetExceeded:
		return "Excedido"
	case BudgetWarning:
		return "Cerca del límite"
	default:
		return "En control"
	}
}
