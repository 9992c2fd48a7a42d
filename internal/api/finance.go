package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finova-bot/internal/models"
)

// BudgetItemInput is the create/update payload of a budget item.
type BudgetItemInput struct {
	Name      string
	Kind      models.BudgetKind
	Allocated decimal.Decimal
}

func (in BudgetItemInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string      `json:"nombre"`
		Kind      string      `json:"tipo"`
		Allocated json.Number `json:"monto_asignado"`
	}{in.Name, string(in.Kind), amountNumber(in.Allocated)})
}

// ExpenseInput is the create/update payload of an expense.
type ExpenseInput struct {
	BudgetItemID *int64
	Amount       decimal.Decimal
	Date         string
	Kind         models.ExpenseKind
	Category     *string
	Note         *string
}

func (in ExpenseInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		BudgetItemID *int64      `json:"partida"`
		Amount       json.Number `json:"monto"`
		Date         string      `json:"fecha"`
		Kind         string      `json:"tipo"`
		Category     *string     `json:"categoria"`
		Note         *string     `json:"observacion"`
	}{in.BudgetItemID, amountNumber(in.Amount), in.Date, string(in.Kind), in.Category, in.Note})
}

// IncomeInput is the create/update payload of an income.
type IncomeInput struct {
	Amount decimal.Decimal
	Date   string
	Kind   models.IncomeKind
	Note   *string
}

func (in IncomeInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount json.Number `json:"monto"`
		Date   string      `json:"fecha"`
		Kind   string      `json:"tipo"`
		Note   *string     `json:"observacion"`
	}{amountNumber(in.Amount), in.Date, string(in.Kind), in.Note})
}

// FetchBudgetItems lists the user's budget items.
func (c *Client) FetchBudgetItems(ctx context.Context, token string) ([]models.BudgetItem, error) {
	var resp []budgetItemResponse
	if err := c.request(ctx, "/partidas/", requestOptions{token: token}, &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp, mapBudgetItem), nil
}

// CreateBudgetItem creates a budget item.
func (c *Client) CreateBudgetItem(ctx context.Context, token string, in BudgetItemInput) (models.BudgetItem, error) {
	var resp budgetItemResponse
	opts := requestOptions{method: http.MethodPost, body: in, token: token}
	if err := c.request(ctx, "/partidas/", opts, &resp); err != nil {
		return models.BudgetItem{}, err
	}
	return mapBudgetItem(resp), nil
}

// UpdateBudgetItem replaces a budget item.
func (c *Client) UpdateBudgetItem(ctx context.Context, token string, id int64, in BudgetItemInput) (models.BudgetItem, error) {
	var resp budgetItemResponse
	opts := requestOptions{method: http.MethodPut, body: in, token: token}
	if err := c.request(ctx, fmt.Sprintf("/partidas/%d/", id), opts, &resp); err != nil {
		return models.BudgetItem{}, err
	}
	return mapBudgetItem(resp), nil
}

// DeleteBudgetItem deletes a budget item.
func (c *Client) DeleteBudgetItem(ctx context.Context, token string, id int64) error {
	opts := requestOptions{method: http.MethodDelete, token: token}
	return c.request(ctx, fmt.Sprintf("/partidas/%d/", id), opts, nil)
}

// FetchExpenses lists the user's expenses.
func (c *Client) FetchExpenses(ctx context.Context, token string) ([]models.Expense, error) {
	var resp []expenseResponse
	if err := c.request(ctx, "/gastos/", requestOptions{token: token}, &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp, mapExpense), nil
}

// CreateExpense records an expense.
func (c *Client) CreateExpense(ctx context.Context, token string, in ExpenseInput) (models.Expense, error) {
	var resp expenseResponse
	opts := requestOptions{method: http.MethodPost, body: in, token: token}
	if err := c.request(ctx, "/gastos/", opts, &resp); err != nil {
		return models.Expense{}, err
	}
	return mapExpense(resp), nil
}

// UpdateExpense replaces an expense.
func (c *Client) UpdateExpense(ctx context.Context, token string, id int64, in ExpenseInput) (models.Expense, error) {
	var resp expenseResponse
	opts := requestOptions{method: http.MethodPut, body: in, token: token}
	if err := c.request(ctx, fmt.Sprintf("/gastos/%d/", id), opts, &resp); err != nil {
		return models.Expense{}, err
	}
	return mapExpense(resp), nil
}

// DeleteExpense deletes an expense.
func (c *Client) DeleteExpense(ctx context.Context, token string, id int64) error {
	opts := requestOptions{method: http.MethodDelete, token: token}
	return c.request(ctx, fmt.Sprintf("/gastos/%d/", id), opts, nil)
}

// FetchIncomes lists the user's incomes.
func (c *Client) FetchIncomes(ctx context.Context, token string) ([]models.Income, error) {
	var resp []incomeResponse
	if err := c.request(ctx, "/ingresos/", requestOptions{token: token}, &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp, mapIncome), nil
}

// CreateIncome records an income.
func (c *Client) CreateIncome(ctx context.Context, token string, in IncomeInput) (models.Income, error) {
	var resp incomeResponse
	opts := requestOptions{method: http.MethodPost, body: in, token: token}
	if err := c.request(ctx, "/ingresos/", opts, &resp); err != nil {
		return models.Income{}, err
	}
	return mapIncome(resp), nil
}

// UpdateIncome replaces an income.
func (c *Client) UpdateIncome(ctx context.Context, token string, id int64, in IncomeInput) (models.Income, error) {
	var resp incomeResponse
	opts := requestOptions{method: http.MethodPut, body: in, token: token}
	if err := c.request(ctx, fmt.Sprintf("/ingresos/%d/", id), opts, &resp); err != nil {
		return models.Income{}, err
	}
	return mapIncome(resp), nil
}

// DeleteIncome deletes an income.
func (c *Client) DeleteIncome(ctx context.Context, token string, id int64) error {
	opts := requestOptions{method: http.MethodDelete, token: token}
	return c.request(ctx, fmt.Sprintf("/ingresos/%d/", id), opts, nil)
}

// FetchSummary returns the server-computed financial summary.
func (c *Client) FetchSummary(ctx context.Context, token string) (models.FinancialSummary, error) {
	var resp summaryResponse
	if err := c.request(ctx, "/resumen/", requestOptions{token: token}, &resp); err != nil {
		return models.FinancialSummary{}, err
	}
	return mapSummary(resp), nil
}
