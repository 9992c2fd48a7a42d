package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finova-bot/internal/models"
)

// flexDecimal decodes the backend's decimal strings ("150000.00") as well as
// bare JSON numbers. Anything unparseable decodes as zero.
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if raw == "" || raw == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = d
	return nil
}

// amountNumber renders a decimal as a native JSON number.
func amountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// wireDate decodes "2006-01-02" dates, tolerating full timestamps.
type wireDate struct {
	time.Time
}

func (d *wireDate) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type profileResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Phone     *string   `json:"phone"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    profileResponse `json:"user"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type authConfigResponse struct {
	GoogleClientID    string `json:"google_client_id"`
	RecaptchaSiteKey  string `json:"recaptcha_site_key"`
	RecaptchaRequired bool   `json:"recaptcha_required"`
}

type budgetItemResponse struct {
	ID        int64       `json:"id"`
	Name      string      `json:"nombre"`
	Kind      string      `json:"tipo"`
	Allocated flexDecimal `json:"monto_asignado"`
	Spent     flexDecimal `json:"gastado_mes"`
	Available flexDecimal `json:"disponible_mes"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type expenseResponse struct {
	ID             int64       `json:"id"`
	BudgetItemID   *int64      `json:"partida"`
	BudgetItemName *string     `json:"partida_nombre"`
	Amount         flexDecimal `json:"monto"`
	Date           wireDate    `json:"fecha"`
	Kind           string      `json:"tipo"`
	Category       *string     `json:"categoria"`
	Note           string      `json:"observacion"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type incomeResponse struct {
	ID        int64       `json:"id"`
	Amount    flexDecimal `json:"monto"`
	Date      wireDate    `json:"fecha"`
	Kind      string      `json:"tipo"`
	Note      string      `json:"observacion"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type summaryResponse struct {
	TotalIncome        flexDecimal            `json:"total_ingresos"`
	TotalExpenses      flexDecimal            `json:"total_gastos"`
	Balance            flexDecimal            `json:"saldo"`
	SavingsPercent     flexDecimal            `json:"ahorro_porcentaje"`
	ExpensesByCategory map[string]flexDecimal `json:"gastos_por_categoria"`
	BudgetItems        []budgetItemResponse   `json:"partidas"`
	Suggestions        []string               `json:"sugerencias"`
	RecentIncomes      []incomeResponse       `json:"ingresos_recientes"`
	RecentExpenses     []expenseResponse      `json:"gastos_recientes"`
}

func mapProfile(p profileResponse) models.Profile {
	return models.Profile{
		ID:        p.ID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FullName:  p.FullName,
		Username:  p.Username,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}

func mapAuthResult(t tokenResponse) models.AuthResult {
	return models.AuthResult{
		Tokens: models.TokenPair{Access: t.Access, Refresh: t.Refresh},
		User:   mapProfile(t.User),
	}
}

func mapBudgetItem(b budgetItemResponse) models.BudgetItem {
	return models.BudgetItem{
		ID:                 b.ID,
		Name:               b.Name,
		Kind:               models.BudgetKind(b.Kind),
		Allocated:          b.Allocated.Decimal,
		SpentThisMonth:     b.Spent.Decimal,
		AvailableThisMonth: b.Available.Decimal,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func mapExpense(e expenseResponse) models.Expense {
	return models.Expense{
		ID:             e.ID,
		BudgetItemID:   e.BudgetItemID,
		BudgetItemName: e.BudgetItemName,
		Amount:         e.Amount.Decimal,
		Date:           e.Date.Time,
		Kind:           models.ExpenseKind(e.Kind),
		Category:       e.Category,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func mapIncome(i incomeResponse) models.Income {
	return models.Income{
		ID:        i.ID,
		Amount:    i.Amount.Decimal,
		Date:      i.Date.Time,
		Kind:      models.IncomeKind(i.Kind),
		Note:      i.Note,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func mapSummary(s summaryResponse) models.FinancialSummary {
	byCategory := make(map[string]decimal.Decimal, len(s.ExpensesByCategory))
	for name, amount := range s.ExpensesByCategory {
		byCategory[name] = amount.Decimal
	}

	return models.FinancialSummary{
		TotalIncome:        s.TotalIncome.Decimal,
		TotalExpenses:      s.TotalExpenses.Decimal,
		Balance:            s.Balance.Decimal,
		SavingsPercent:     s.SavingsPercent.Decimal,
		ExpensesByCategory: byCategory,
		BudgetItems:        mapSlice(s.BudgetItems, mapBudgetItem),
		Suggestions:        append([]string(nil), s.Suggestions...),
		RecentIncomes:      mapSlice(s.RecentIncomes, mapIncome),
		RecentExpenses:     mapSlice(s.RecentExpenses, mapExpense),
	}
}

func mapSlice[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
