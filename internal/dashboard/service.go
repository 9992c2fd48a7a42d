// Package dashboard binds one session to cached backend reads and validated
// mutations, the way each screen of the client uses them.
package dashboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/query"
	"gitlab.com/yelinaung/finova-bot/internal/session"
)

// Backend is the part of the API client the dashboard reads and writes.
type Backend interface {
	FetchProfile(ctx context.Context, token string) (models.Profile, error)
	FetchAuthConfig(ctx context.Context) (models.AuthConfig, error)
	FetchSummary(ctx context.Context, token string) (models.FinancialSummary, error)
	ChangePassword(ctx context.Context, token string, change api.PasswordChange) (string, error)

	FetchBudgetItems(ctx context.Context, token string) ([]models.BudgetItem, error)
	CreateBudgetItem(ctx context.Context, token string, in api.BudgetItemInput) (models.BudgetItem, error)
	UpdateBudgetItem(ctx context.Context, token string, id int64, in api.BudgetItemInput) (models.BudgetItem, error)
	DeleteBudgetItem(ctx context.Context, token string, id int64) error

	FetchExpenses(ctx context.Context, token string) ([]models.Expense, error)
	CreateExpense(ctx context.Context, token string, in api.ExpenseInput) (models.Expense, error)
	UpdateExpense(ctx context.Context, token string, id int64, in api.ExpenseInput) (models.Expense, error)
	DeleteExpense(ctx context.Context, token string, id int64) error

	FetchIncomes(ctx context.Context, token string) ([]models.Income, error)
	CreateIncome(ctx context.Context, token string, in api.IncomeInput) (models.Income, error)
	UpdateIncome(ctx context.Context, token string, id int64, in api.IncomeInput) (models.Income, error)
	DeleteIncome(ctx context.Context, token string, id int64) error
}

// Session is the part of the session store the dashboard needs.
type Session interface {
	AccessToken() string
	HandleAuthFailure(ctx context.Context, token string, err error) bool
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*models.Profile, error)
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// MutationStatus is the UI-facing state of one mutation.
type MutationStatus struct {
	Name    string
	Pending bool
	Err     error
}

type statusReporter interface {
	Name() string
	Pending() bool
	Err() error
	Reset()
}

// Service serves one session. Reads are keyed by the session's current token;
// when the token changes, entries of the previous token are purged.
type Service struct {
	backend Backend
	session Session
	cache   *query.Cache
	log     zerolog.Logger

	mu          sync.Mutex
	lastToken   string
	unsubscribe func()

	mutations []statusReporter
	budget    budgetMutations
	expenses  expenseMutations
	incomes   incomeMutations
	account   accountMutations
}

// New creates a service. Call Close to stop following the session.
func New(backend Backend, sess Session, cache *query.Cache) *Service {
	s := &Service{
		backend:   backend,
		session:   sess,
		cache:     cache,
		log:       logger.Component("dashboard"),
		lastToken: sess.AccessToken(),
	}
	s.initMutations()
	s.unsubscribe = sess.Subscribe(s.onSession)
	return s
}

// Close stops following session changes.
func (s *Service) Close() {
	s.unsubscribe()
}

func (s *Service) onSession(st session.State) {
	s.mu.Lock()
	previous := s.lastToken
	s.lastToken = st.AccessToken
	s.mu.Unlock()

	if previous != "" && previous != st.AccessToken {
		s.cache.Purge(previous)
		s.log.Debug().Str("token", logger.RedactToken(previous)).Msg("Purged reads of previous session")
	}
}

// Mutations returns the state of every mutation, in a stable order.
func (s *Service) Mutations() []MutationStatus {
	out := make([]MutationStatus, 0, len(s.mutations))
	for _, m := range s.mutations {
		out = append(out, MutationStatus{Name: m.Name(), Pending: m.Pending(), Err: m.Err()})
	}
	return out
}

// Mutation returns the state of the named mutation.
func (s *Service) Mutation(name string) (MutationStatus, bool) {
	for _, m := range s.mutations {
		if m.Name() == name {
			return MutationStatus{Name: name, Pending: m.Pending(), Err: m.Err()}, true
		}
	}
	return MutationStatus{}, false
}

// ResetMutation clears the last error of the named mutation.
func (s *Service) ResetMutation(name string) {
	for _, m := range s.mutations {
		if m.Name() == name {
			m.Reset()
		}
	}
}

func (s *Service) key(r query.Resource) query.Key {
	return query.Key{Resource: r, Token: s.session.AccessToken()}
}

// authed runs call with the current token. Authentication failures end the
// session they belong to.
func authed[T any](ctx context.Context, s *Service, token string, call func(ctx context.Context, token string) (T, error)) (T, error) {
	if token == "" {
		var zero T
		return zero, session.ErrNotAuthenticated
	}
	out, err := call(ctx, token)
	if err != nil {
		s.session.HandleAuthFailure(ctx, token, err)
	}
	return out, err
}

func read[T any](ctx context.Context, s *Service, r query.Resource, call func(ctx context.Context, token string) (T, error)) (T, error) {
	return query.Fetch(ctx, s.cache, s.key(r), func(ctx context.Context, token string) (T, error) {
		return authed(ctx, s, token, call)
	})
}

// Profile returns the signed-in user.
func (s *Service) Profile(ctx context.Context) (models.Profile, error) {
	return read(ctx, s, query.ResourceProfile, s.backend.FetchProfile)
}

// BudgetItems returns the budget items with this month's computed amounts.
func (s *Service) BudgetItems(ctx context.Context) ([]models.BudgetItem, error) {
	return read(ctx, s, query.ResourceBudgetItems, s.backend.FetchBudgetItems)
}

// Expenses returns every expense of the user.
func (s *Service) Expenses(ctx context.Context) ([]models.Expense, error) {
	return read(ctx, s, query.ResourceExpenses, s.backend.FetchExpenses)
}

// Incomes returns every income of the user.
func (s *Service) Incomes(ctx context.Context) ([]models.Income, error) {
	return read(ctx, s, query.ResourceIncomes, s.backend.FetchIncomes)
}

// Summary returns the backend's financial summary.
func (s *Service) Summary(ctx context.Context) (models.FinancialSummary, error) {
	return read(ctx, s, query.ResourceSummary, s.backend.FetchSummary)
}

// AuthConfig returns the identity widget configuration. It needs no session.
func (s *Service) AuthConfig(ctx context.Context) (models.AuthConfig, error) {
	return query.FetchPublic(ctx, s.cache, query.ResourceAuthConfig, s.backend.FetchAuthConfig)
}

// IsStale reports whether the next read of r goes to the backend.
func (s *Service) IsStale(r query.Resource) bool {
	return s.cache.IsStale(s.key(r))
}
