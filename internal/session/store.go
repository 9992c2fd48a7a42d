package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotAuthenticated is returned by operations that need an access token
// when the store has none.
var ErrNotAuthenticated = errors.New("no active session")

const instrumentationLib = "gitlab.com/yelinaung/finova-bot/internal/session"

// AuthAPI is the part of the backend client the store uses.
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (models.AuthResult, error)
	Register(ctx context.Context, reg api.Registration) (models.AuthResult, error)
	LoginWithGoogle(ctx context.Context, idToken string) (models.AuthResult, error)
	FetchProfile(ctx context.Context, token string) (models.Profile, error)
	UpdateProfile(ctx context.Context, token string, update api.ProfileUpdate) (models.Profile, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, confirm api.PasswordResetConfirmation) (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Store owns one session. The mutex guards fields only; operations are
// not serialized against each other.
type Store struct {
	client AuthAPI
	slots  TokenStore
	nav    Navigator
	log    zerolog.Logger
	tracer trace.Tracer

	mu    sync.RWMutex
	state State

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates a store in the Uninitialized phase. Call Start to restore a
// persisted session.
func New(client AuthAPI, slots TokenStore, nav Navigator, opts ...Option) *Store {
	if nav == nil {
		nav = noopNavigator{}
	}
	s := &Store{
		client: client,
		slots:  slots,
		nav:    nav,
		log:    logger.Component("session"),
		tracer: otel.Tracer(instrumentationLib),
		state:  State{Phase: PhaseUninitialized, Loading: true},
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// AccessToken returns the current access token, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn runs on the goroutine that changed the state.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// update applies mutate under the lock and publishes the result.
func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

func (s *Store) publish(st State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "session."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Start runs the startup protocol once: read the durable slots, and when a
// token is present verify it by fetching the profile. Any verification
// failure leaves the store logged out with the slots cleared.
func (s *Store) Start(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "start")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	if s.state.Phase != PhaseUninitialized {
		s.mu.Unlock()
		return nil
	}
	s.state.Loading = true
	s.mu.Unlock()

	pair, ok, err := s.slots.Load(ctx)
	if err != nil {
		s.update(func(st *State) {
			*st = State{Phase: PhaseLoggedOut}
		})
		return fmt.Errorf("failed to read stored session: %w", err)
	}
	if !ok {
		s.update(func(st *State) {
			*st = State{Phase: PhaseLoggedOut}
		})
		s.log.Debug().Msg("No stored session")
		return nil
	}

	s.update(func(st *State) {
		*st = State{
			AccessToken:  pair.Access,
			RefreshToken: pair.Refresh,
			Loading:      true,
			Phase:        PhaseVerifying,
		}
	})
	span.SetAttributes(attribute.String("session.phase", PhaseVerifying.String()))

	if _, err := s.RefreshProfile(ctx, pair.Access); err != nil {
		if s.AccessToken() != "" {
			if clearErr := s.Logout(ctx, DefaultLogout); clearErr != nil {
				s.log.Warn().Err(clearErr).Msg("Failed to clear stored session")
			}
		}
		s.update(func(st *State) {
			st.Loading = false
			st.Phase = PhaseLoggedOut
		})
		s.log.Info().Err(err).Msg("Stored session rejected")
		return err
	}

	s.update(func(st *State) {
		st.Loading = false
		if st.AccessToken != "" {
			st.Phase = PhaseLoggedIn
		}
	})
	s.log.Info().Msg("Stored session restored")
	return nil
}

// Login signs in with e-mail and password.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (err error) {
	ctx, span := s.startSpan(ctx, "login")
	defer func() { endSpan(span, err) }()

	result, err := s.client.Login(ctx, creds)
	if err != nil {
		s.log.Info().Err(err).Str("email", logger.SanitizeEmail(creds.Email)).Msg("Login failed")
		return err
	}
	return s.establish(ctx, result, "password")
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, reg api.Registration) (err error) {
	ctx, span := s.startSpan(ctx, "register")
	defer func() { endSpan(span, err) }()

	result, err := s.client.Register(ctx, reg)
	if err != nil {
		s.log.Info().Err(err).Str("email", logger.SanitizeEmail(reg.Email)).Msg("Registration failed")
		return err
	}
	return s.establish(ctx, result, "register")
}

// LoginWithGoogle exchanges a Google identity token for a session.
func (s *Store) LoginWithGoogle(ctx context.Context, idToken string) (err error) {
	ctx, span := s.startSpan(ctx, "login_google")
	defer func() { endSpan(span, err) }()

	result, err := s.client.LoginWithGoogle(ctx, idToken)
	if err != nil {
		s.log.Info().Err(err).Msg("Google login failed")
		return err
	}
	return s.establish(ctx, result, "google")
}

// establish persists the tokens and only then replaces the state, so a
// failed write leaves the previous session untouched.
func (s *Store) establish(ctx context.Context, result models.AuthResult, method string) error {
	if err := s.slots.Save(ctx, result.Tokens); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	user := result.User
	s.update(func(st *State) {
		*st = State{
			AccessToken:  result.Tokens.Access,
			RefreshToken: result.Tokens.Refresh,
			User:         &user,
			Phase:        PhaseLoggedIn,
		}
	})

	s.log.Info().
		Str("method", method).
		Str("email", logger.SanitizeEmail(user.Email)).
		Str("token", logger.RedactToken(result.Tokens.Access)).
		Msg("Session established")
	s.nav.Navigate(RouteDashboard)
	return nil
}

// Logout clears the session and the durable slots. It is safe when already
// logged out; opts.Redirect is honored either way. The returned error only
// reports a failed slot write; the in-memory session is cleared regardless.
func (s *Store) Logout(ctx context.Context, opts LogoutOptions) error {
	s.mu.Lock()
	wasActive := s.state.AccessToken != "" || s.state.RefreshToken != "" || s.state.User != nil ||
		s.state.Phase != PhaseLoggedOut || s.state.Loading
	s.mu.Unlock()

	clearErr := s.slots.Clear(ctx)
	if clearErr != nil {
		clearErr = fmt.Errorf("failed to clear stored session: %w", clearErr)
	}

	if wasActive {
		s.update(func(st *State) {
			*st = State{Phase: PhaseLoggedOut}
		})
		s.log.Info().Bool("redirect", opts.Redirect).Msg("Session cleared")
	}

	if opts.Redirect {
		s.nav.Navigate(RouteLogin)
	}
	return clearErr
}

// RefreshProfile fetches the profile for token, or for the current token when
// token is empty. With no token at all it clears the cached user and returns
// nil. An authentication failure logs the session out (with redirect) and the
// error is returned unchanged.
func (s *Store) RefreshProfile(ctx context.Context, token string) (profile *models.Profile, err error) {
	ctx, span := s.startSpan(ctx, "refresh_profile")
	defer func() { endSpan(span, err) }()

	if token == "" {
		token = s.AccessToken()
	}
	if token == "" {
		s.update(func(st *State) {
			st.User = nil
		})
		return nil, nil
	}

	fetched, err := s.client.FetchProfile(ctx, token)
	if err != nil {
		s.HandleAuthFailure(ctx, token, err)
		return nil, err
	}

	s.setUserIfCurrent(token, fetched)
	return &fetched, nil
}

// UpdateProfile sends a profile change and replaces the cached profile with
// the backend's answer.
func (s *Store) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (profile *models.Profile, err error) {
	ctx, span := s.startSpan(ctx, "update_profile")
	defer func() { endSpan(span, err) }()

	token := s.AccessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	updated, err := s.client.UpdateProfile(ctx, token, update)
	if err != nil {
		s.HandleAuthFailure(ctx, token, err)
		return nil, err
	}

	s.setUserIfCurrent(token, updated)
	return &updated, nil
}

// setUserIfCurrent drops results that belong to a session which has since
// been replaced or cleared.
func (s *Store) setUserIfCurrent(token string, profile models.Profile) {
	applied := false
	s.update(func(st *State) {
		if st.AccessToken != token {
			return
		}
		st.User = &profile
		applied = true
	})
	if !applied {
		s.log.Debug().Str("token", logger.RedactToken(token)).Msg("Discarded profile of a replaced session")
	}
}

// RequestPasswordReset asks the backend to e-mail a reset link.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return s.client.RequestPasswordReset(ctx, email)
}

// ConfirmPasswordReset sets a new password from a reset link.
func (s *Store) ConfirmPasswordReset(ctx context.Context, confirm api.PasswordResetConfirmation) (string, error) {
	return s.client.ConfirmPasswordReset(ctx, confirm)
}

// HandleAuthFailure logs the session out with redirect when err is a 401/403
// from the backend for token, the current access token. Failures of a token
// that has since been replaced are ignored. It reports whether it logged out.
func (s *Store) HandleAuthFailure(ctx context.Context, token string, err error) bool {
	if !api.IsAuthError(err) {
		return false
	}
	if token == "" || token != s.AccessToken() {
		return false
	}
	s.log.Info().Int("status", api.Status(err)).Msg("Backend rejected the session")
	if clearErr := s.Logout(ctx, DefaultLogout); clearErr != nil {
		s.log.Warn().Err(clearErr).Msg("Failed to clear stored session")
	}
	return true
}
