package api

import (
	"context"
	"fmt"
	"net/http"

	"gitlab.com/yelinaung/finova-bot/internal/models"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the account creation payload.
type Registration struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	RecaptchaToken string `json:"recaptcha_token,omitempty"`
}

// PasswordResetConfirmation completes a password reset from an e-mailed link.
type PasswordResetConfirmation struct {
	UID      string `json:"uid"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// PasswordChange changes the password of the authenticated user.
type PasswordChange struct {
	Current string `json:"password_actual"`
	New     string `json:"password_nuevo"`
}

// Login exchanges e-mail and password for session tokens.
func (c *Client) Login(ctx context.Context, creds Credentials) (models.AuthResult, error) {
	var resp tokenResponse
	if err := c.request(ctx, "/auth/login/", requestOptions{method: http.MethodPost, body: creds}, &resp); err != nil {
		return models.AuthResult{}, err
	}
	return mapAuthResult(resp), nil
}

// Register creates an account and returns its session tokens.
func (c *Client) Register(ctx context.Context, reg Registration) (models.AuthResult, error) {
	var resp tokenResponse
	if err := c.request(ctx, "/auth/register/", requestOptions{method: http.MethodPost, body: reg}, &resp); err != nil {
		return models.AuthResult{}, err
	}
	return mapAuthResult(resp), nil
}

// LoginWithGoogle exchanges a Google identity token for session tokens.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (models.AuthResult, error) {
	body := map[string]string{"id_token": idToken}
	var resp tokenResponse
	if err := c.request(ctx, "/auth/login/google/", requestOptions{method: http.MethodPost, body: body}, &resp); err != nil {
		return models.AuthResult{}, err
	}
	return mapAuthResult(resp), nil
}

// RefreshToken obtains a new access token from a refresh token.
// The session store does not rotate tokens silently; this is for callers
// that want to do it explicitly.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	body := map[string]string{"refresh": refresh}
	var resp struct {
		Access string `json:"access"`
	}
	if err := c.request(ctx, "/auth/refresh/", requestOptions{method: http.MethodPost, body: body}, &resp); err != nil {
		return "", err
	}
	return resp.Access, nil
}

// FetchProfile returns the profile the token belongs to.
func (c *Client) FetchProfile(ctx context.Context, token string) (models.Profile, error) {
	var resp profileResponse
	if err := c.request(ctx, "/auth/me/", requestOptions{token: token}, &resp); err != nil {
		return models.Profile{}, err
	}
	return mapProfile(resp), nil
}

// UpdateProfile sends a multipart PATCH and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (models.Profile, error) {
	body, err := newProfileBody(update)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to build profile update: %w", err)
	}

	var resp profileResponse
	opts := requestOptions{method: http.MethodPatch, body: body, token: token}
	if err := c.request(ctx, "/auth/me/", opts, &resp); err != nil {
		return models.Profile{}, err
	}
	return mapProfile(resp), nil
}

// FetchAuthConfig returns which identity widgets the backend expects.
func (c *Client) FetchAuthConfig(ctx context.Context) (models.AuthConfig, error) {
	var resp authConfigResponse
	if err := c.request(ctx, "/auth/config/", requestOptions{}, &resp); err != nil {
		return models.AuthConfig{}, err
	}
	return models.AuthConfig{
		GoogleClientID:    resp.GoogleClientID,
		RecaptchaSiteKey:  resp.RecaptchaSiteKey,
		RecaptchaRequired: resp.RecaptchaRequired,
	}, nil
}

// RequestPasswordReset asks the backend to e-mail a reset link.
// It returns the backend's confirmation message.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	body := map[string]string{"email": email}
	var resp detailResponse
	if err := c.request(ctx, "/auth/password/reset/", requestOptions{method: http.MethodPost, body: body}, &resp); err != nil {
		return "", err
	}
	return resp.Detail, nil
}

// ConfirmPasswordReset sets a new password using the e-mailed uid and token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, confirm PasswordResetConfirmation) (string, error) {
	var resp detailResponse
	opts := requestOptions{method: http.MethodPost, body: confirm}
	if err := c.request(ctx, "/auth/password/reset/confirm/", opts, &resp); err != nil {
		return "", err
	}
	return resp.Detail, nil
}

// ChangePassword changes the password of the token's owner.
func (c *Client) ChangePassword(ctx context.Context, token string, change PasswordChange) (string, error) {
	var resp detailResponse
	opts := requestOptions{method: http.MethodPost, body: change, token: token}
	if err := c.request(ctx, "/auth/password/change/", opts, &resp); err != nil {
		return "", err
	}
	return resp.Detail, nil
}
