package dashboard

import (
	"context"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/forms"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/query"
	"gitlab.com/yelinaung/finova-bot/internal/session"
)

// Mutation names, as reported by Mutations.
const (
	MutationCreateBudgetItem = "create_budget_item"
	MutationUpdateBudgetItem = "update_budget_item"
	MutationDeleteBudgetItem = "delete_budget_item"
	MutationCreateExpense    = "create_expense"
	MutationUpdateExpense    = "update_expense"
	MutationDeleteExpense    = "delete_expense"
	MutationCreateIncome     = "create_income"
	MutationUpdateIncome     = "update_income"
	MutationDeleteIncome     = "delete_income"
	MutationChangePassword   = "change_password"
	MutationUpdateProfile    = "update_profile"
)

type edit[F any] struct {
	id   int64
	form F
}

type budgetMutations struct {
	create *query.Mutation[forms.BudgetItemForm, models.BudgetItem]
	update *query.Mutation[edit[forms.BudgetItemForm], models.BudgetItem]
	remove *query.Mutation[int64, struct{}]
}

type expenseMutations struct {
	create *query.Mutation[forms.ExpenseForm, models.Expense]
	update *query.Mutation[edit[forms.ExpenseForm], models.Expense]
	remove *query.Mutation[int64, struct{}]
}

type incomeMutations struct {
	create *query.Mutation[forms.IncomeForm, models.Income]
	update *query.Mutation[edit[forms.IncomeForm], models.Income]
	remove *query.Mutation[int64, struct{}]
}

type accountMutations struct {
	changePassword *query.Mutation[forms.PasswordChangeForm, string]
	updateProfile  *query.Mutation[forms.ProfileForm, *models.Profile]
}

// validated checks form before anything reaches the network, then runs call
// with the current token.
func validated[F, T any](s *Service, call func(ctx context.Context, token string, form F) (T, error)) func(context.Context, F) (T, error) {
	return func(ctx context.Context, form F) (T, error) {
		if err := forms.Validate(form); err != nil {
			var zero T
			return zero, err
		}
		return authed(ctx, s, s.session.AccessToken(), func(ctx context.Context, token string) (T, error) {
			return call(ctx, token, form)
		})
	}
}

func validatedEdit[F, T any](s *Service, call func(ctx context.Context, token string, id int64, form F) (T, error)) func(context.Context, edit[F]) (T, error) {
	return func(ctx context.Context, e edit[F]) (T, error) {
		if err := forms.Validate(e.form); err != nil {
			var zero T
			return zero, err
		}
		return authed(ctx, s, s.session.AccessToken(), func(ctx context.Context, token string) (T, error) {
			return call(ctx, token, e.id, e.form)
		})
	}
}

func deletion(s *Service, call func(ctx context.Context, token string, id int64) error) func(context.Context, int64) (struct{}, error) {
	return func(ctx context.Context, id int64) (struct{}, error) {
		return authed(ctx, s, s.session.AccessToken(), func(ctx context.Context, token string) (struct{}, error) {
			return struct{}{}, call(ctx, token, id)
		})
	}
}

func (s *Service) initMutations() {
	b := s.backend

	s.budget = budgetMutations{
		create: query.NewMutation(MutationCreateBudgetItem, query.ResourceBudgetItems, s.cache,
			validated(s, func(ctx context.Context, token string, f forms.BudgetItemForm) (models.BudgetItem, error) {
				return b.CreateBudgetItem(ctx, token, f.Input())
			})),
		update: query.NewMutation(MutationUpdateBudgetItem, query.ResourceBudgetItems, s.cache,
			validatedEdit(s, func(ctx context.Context, token string, id int64, f forms.BudgetItemForm) (models.BudgetItem, error) {
				return b.UpdateBudgetItem(ctx, token, id, f.Input())
			})),
		remove: query.NewMutation(MutationDeleteBudgetItem, query.ResourceBudgetItems, s.cache,
			deletion(s, b.DeleteBudgetItem)),
	}

	s.expenses = expenseMutations{
		create: query.NewMutation(MutationCreateExpense, query.ResourceExpenses, s.cache,
			validated(s, func(ctx context.Context, token string, f forms.ExpenseForm) (models.Expense, error) {
				return b.CreateExpense(ctx, token, f.Input())
			})),
		update: query.NewMutation(MutationUpdateExpense, query.ResourceExpenses, s.cache,
			validatedEdit(s, func(ctx context.Context, token string, id int64, f forms.ExpenseForm) (models.Expense, error) {
				return b.UpdateExpense(ctx, token, id, f.Input())
			})),
		remove: query.NewMutation(MutationDeleteExpense, query.ResourceExpenses, s.cache,
			deletion(s, b.DeleteExpense)),
	}

	s.incomes = incomeMutations{
		create: query.NewMutation(MutationCreateIncome, query.ResourceIncomes, s.cache,
			validated(s, func(ctx context.Context, token string, f forms.IncomeForm) (models.Income, error) {
				return b.CreateIncome(ctx, token, f.Input())
			})),
		update: query.NewMutation(MutationUpdateIncome, query.ResourceIncomes, s.cache,
			validatedEdit(s, func(ctx context.Context, token string, id int64, f forms.IncomeForm) (models.Income, error) {
				return b.UpdateIncome(ctx, token, id, f.Input())
			})),
		remove: query.NewMutation(MutationDeleteIncome, query.ResourceIncomes, s.cache,
			deletion(s, b.DeleteIncome)),
	}

	s.account = accountMutations{
		// A password change leaves every cached read valid.
		changePassword: query.NewMutation(MutationChangePassword, query.ResourceProfile, nil,
			validated(s, func(ctx context.Context, token string, f forms.PasswordChangeForm) (string, error) {
				return b.ChangePassword(ctx, token, f.Change())
			})),
		// The session store handles its own authentication failures.
		updateProfile: query.NewMutation(MutationUpdateProfile, query.ResourceProfile, s.cache,
			func(ctx context.Context, f forms.ProfileForm) (*models.Profile, error) {
				if err := forms.Validate(f); err != nil {
					return nil, err
				}
				return s.session.UpdateProfile(ctx, f.Update())
			}),
	}

	s.mutations = []statusReporter{
		s.budget.create, s.budget.update, s.budget.remove,
		s.expenses.create, s.expenses.update, s.expenses.remove,
		s.incomes.create, s.incomes.update, s.incomes.remove,
		s.account.changePassword, s.account.updateProfile,
	}
}

// CreateBudgetItem validates and creates a budget item.
func (s *Service) CreateBudgetItem(ctx context.Context, f forms.BudgetItemForm) (models.BudgetItem, error) {
	return s.budget.create.Run(ctx, f)
}

// UpdateBudgetItem validates and replaces a budget item.
func (s *Service) UpdateBudgetItem(ctx context.Context, id int64, f forms.BudgetItemForm) (models.BudgetItem, error) {
	return s.budget.update.Run(ctx, edit[forms.BudgetItemForm]{id: id, form: f})
}

// DeleteBudgetItem deletes a budget item.
func (s *Service) DeleteBudgetItem(ctx context.Context, id int64) error {
	_, err := s.budget.remove.Run(ctx, id)
	return err
}

// CreateExpense validates and records an expense.
func (s *Service) CreateExpense(ctx context.Context, f forms.ExpenseForm) (models.Expense, error) {
	return s.expenses.create.Run(ctx, f)
}

// UpdateExpense validates and replaces an expense.
func (s *Service) UpdateExpense(ctx context.Context, id int64, f forms.ExpenseForm) (models.Expense, error) {
	return s.expenses.update.Run(ctx, edit[forms.ExpenseForm]{id: id, form: f})
}

// DeleteExpense deletes an expense.
func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	_, err := s.expenses.remove.Run(ctx, id)
	return err
}

// CreateIncome validates and records an income.
func (s *Service) CreateIncome(ctx context.Context, f forms.IncomeForm) (models.Income, error) {
	return s.incomes.create.Run(ctx, f)
}

// UpdateIncome validates and replaces an income.
func (s *Service) UpdateIncome(ctx context.Context, id int64, f forms.IncomeForm) (models.Income, error) {
	return s.incomes.update.Run(ctx, edit[forms.IncomeForm]{id: id, form: f})
}

// DeleteIncome deletes an income.
func (s *Service) DeleteIncome(ctx context.Context, id int64) error {
	_, err := s.incomes.remove.Run(ctx, id)
	return err
}

// ChangePassword validates and changes the password. It returns the
// backend's confirmation message.
func (s *Service) ChangePassword(ctx context.Context, f forms.PasswordChangeForm) (string, error) {
	return s.account.changePassword.Run(ctx, f)
}

// UpdateProfile validates and sends a profile change through the session.
func (s *Service) UpdateProfile(ctx context.Context, f forms.ProfileForm) (*models.Profile, error) {
	return s.account.updateProfile.Run(ctx, f)
}

var _ Session = (*session.Store)(nil)
var _ Backend = (*api.Client)(nil)
