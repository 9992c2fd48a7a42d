package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/models"
)

type fakeSlots struct {
	mu       sync.Mutex
	pair     models.TokenPair
	stored   bool
	saveErr  error
	clearErr error
	loadErr  error
	clears   int
}

func (f *fakeSlots) Load(context.Context) (models.TokenPair, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return models.TokenPair{}, false, f.loadErr
	}
	return f.pair, f.stored && f.pair.Access != "", nil
}

func (f *fakeSlots) Save(_ context.Context, pair models.TokenPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.pair, f.stored = pair, true
	return nil
}

func (f *fakeSlots) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.pair, f.stored = models.TokenPair{}, false
	return nil
}

func (f *fakeSlots) snapshot() (models.TokenPair, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair, f.stored
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []Route
}

func (n *recordingNavigator) Navigate(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *recordingNavigator) Routes() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

// fakeAuth is a scripted AuthAPI for tests that do not need HTTP.
type fakeAuth struct {
	result     models.AuthResult
	err        error
	profile    models.Profile
	profileErr error
	calls      int
}

func (f *fakeAuth) Login(context.Context, api.Credentials) (models.AuthResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeAuth) Register(context.Context, api.Registration) (models.AuthResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeAuth) LoginWithGoogle(context.Context, string) (models.AuthResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeAuth) FetchProfile(context.Context, string) (models.Profile, error) {
	f.calls++
	return f.profile, f.profileErr
}

func (f *fakeAuth) UpdateProfile(context.Context, string, api.ProfileUpdate) (models.Profile, error) {
	f.calls++
	return f.profile, f.profileErr
}

func (f *fakeAuth) RequestPasswordReset(context.Context, string) (string, error) {
	f.calls++
	return "", errors.New("not scripted")
}

func (f *fakeAuth) ConfirmPasswordReset(context.Context, api.PasswordResetConfirmation) (string, error) {
	f.calls++
	return "", errors.New("not scripted")
}

func newBackend(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return api.NewClient(server.URL, time.Second)
}

const loginResponse = `{"access":"a","refresh":"b","user":{"id":7,"email":"user@example.com","first_name":"Ana","full_name":"Ana Pérez"}}`

const profileResponse = `{"id":7,"email":"user@example.com","first_name":"Ana","full_name":"Ana Pérez"}`
