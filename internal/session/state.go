// Package session is the single source of truth for who is signed in and
// which credentials authorize backend calls.
package session

import (
	"context"

	"gitlab.com/yelinaung/finova-bot/internal/models"
)

// Phase is the position of a store in its startup state machine.
type Phase int

// Startup phases.
const (
	PhaseUninitialized Phase = iota
	PhaseVerifying
	PhaseLoggedIn
	PhaseLoggedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseVerifying:
		return "verifying"
	case PhaseLoggedIn:
		return "logged_in"
	case PhaseLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// State is a read-only snapshot of a session.
type State struct {
	AccessToken  string
	RefreshToken string
	User         *models.Profile
	Loading      bool
	Phase        Phase
}

// Authenticated reports whether the snapshot carries an access token.
func (s State) Authenticated() bool {
	return s.AccessToken != ""
}

// Route is a navigation target of the client.
type Route string

// Navigation targets.
const (
	RouteDashboard Route = "/dashboard"
	RouteLogin     Route = "/login"
)

// Navigator receives navigation events from the store.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

// Navigate calls f(route).
func (f NavigatorFunc) Navigate(route Route) {
	f(route)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(Route) {}

// TokenStore is the durable access/refresh slot pair. Only the store writes it.
type TokenStore interface {
	Load(ctx context.Context) (pair models.TokenPair, ok bool, err error)
	Save(ctx context.Context, pair models.TokenPair) error
	Clear(ctx context.Context) error
}

// LogoutOptions controls Logout.
type LogoutOptions struct {
	Redirect bool
}

// DefaultLogout clears the session and navigates to the login screen.
var DefaultLogout = LogoutOptions{Redirect: true}
