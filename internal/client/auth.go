package client

import (
	"context"
	"net/http"
	"time"
)

// Tokens is a signed-in session.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Email        string `json:"email"`
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/sign-up", credentials{email, password}, nil, "could not create account")
}

// SignIn authenticates and keeps the access token for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (Tokens, error) {
	var out Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/sign-in", credentials{email, password}, &out, "could not sign in"); err != nil {
		return Tokens{}, err
	}
	c.SetToken(out.AccessToken)
	return out, nil
}

// Refresh rotates the refresh token and keeps the new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var out Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", refreshBody{refreshToken}, &out, "could not refresh session"); err != nil {
		return Tokens{}, err
	}
	c.SetToken(out.AccessToken)
	return out, nil
}

// SignOut revokes the refresh token and forgets the access token.
func (c *Client) SignOut(ctx context.Context, refreshToken string) error {
	err := c.do(ctx, http.MethodPost, "/auth/sign-out", refreshBody{refreshToken}, nil, "could not sign out")
	c.SetToken("")
	return err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{email}
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", body, nil, "could not request password reset")
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{token, newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", body, nil, "could not reset password")
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &out, "could not load profile")
	return out, err
}
