// Package models defines the domain entities mirrored from the Finova backend.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of expense and income dates.
const DateLayout = "2006-01-02"

// BudgetKind classifies a budget item.
type BudgetKind string

// Budget item kinds.
const (
	BudgetKindFixed    BudgetKind = "fijo"
	BudgetKindVariable BudgetKind = "variable"
)

// ExpenseKind classifies an expense.
type ExpenseKind string

// Expense kinds.
const (
	ExpenseKindFixed    ExpenseKind = "fijo"
	ExpenseKindVariable ExpenseKind = "variable"
)

// IncomeKind classifies an income.
type IncomeKind string

// Income kinds.
const (
	IncomeKindFixed      IncomeKind = "fijo"
	IncomeKindOccasional IncomeKind = "eventual"
)

// Profile is the authenticated user as returned by the backend.
type Profile struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	FullName  string
	Username  string
	Phone     *string
	AvatarURL *string
	CreatedAt time.Time
}

// DisplayName returns the best available human name for the profile.
func (p Profile) DisplayName() string {
	switch {
	case p.FullName != "":
		return p.FullName
	case p.FirstName != "":
		return p.FirstName
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

// TokenPair holds the credential material issued by the backend.
type TokenPair struct {
	Access  string
	Refresh string
}

// IsZero reports whether the pair carries no access token.
func (t TokenPair) IsZero() bool {
	return t.Access == ""
}

// AuthResult is the response of every login-like endpoint.
type AuthResult struct {
	Tokens TokenPair
	User   Profile
}

// AuthConfig tells the client which third-party widgets the backend expects.
type AuthConfig struct {
	GoogleClientID    string
	RecaptchaSiteKey  string
	RecaptchaRequired bool
}

// BudgetItem ("partida") is a named monthly spending cap.
// SpentThisMonth and AvailableThisMonth are computed by the backend.
type BudgetItem struct {
	ID                 int64
	Name               string
	Kind               BudgetKind
	Allocated          decimal.Decimal
	SpentThisMonth     decimal.Decimal
	AvailableThisMonth decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expense ("gasto") is a single spending record.
type Expense struct {
	ID             int64
	BudgetItemID   *int64
	BudgetItemName *string
	Amount         decimal.Decimal
	Date           time.Time
	Kind           ExpenseKind
	Category       *string
	Note           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Label returns the budget item name, falling back to the free-text category.
func (e Expense) Label() string {
	if e.BudgetItemName != nil && *e.BudgetItemName != "" {
		return *e.BudgetItemName
	}
	if e.Category != nil && *e.Category != "" {
		return *e.Category
	}
	return "Sin categoría"
}

// Income ("ingreso") is a single income record.
type Income struct {
	ID        int64
	Amount    decimal.Decimal
	Date      time.Time
	Kind      IncomeKind
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FinancialSummary is the read-only aggregate computed by the backend.
type FinancialSummary struct {
	TotalIncome        decimal.Decimal
	TotalExpenses      decimal.Decimal
	Balance            decimal.Decimal
	SavingsPercent     decimal.Decimal
	ExpensesByCategory map[string]decimal.Decimal
	BudgetItems        []BudgetItem
	Suggestions        []string
	RecentIncomes      []Income
	RecentExpenses     []Expense
}
