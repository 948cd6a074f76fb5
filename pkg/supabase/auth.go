package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuthClient handles GoTrue operations.
type AuthClient struct {
	client *Client
}

// Auth returns the auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// SignUp creates a new user. Depending on project settings the returned session
// may carry no access token until the email is confirmed.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, data map[string]any) (*AuthSession, error) {
	req := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(data) > 0 {
		req["data"] = data
	}
	return a.session(ctx, a.client.authURL+"/signup", "auth/signup", req)
}

// SignInWithPassword authenticates a user with email/password.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error) {
	req := map[string]string{
		"email":    email,
		"password": password,
	}
	return a.session(ctx, a.client.authURL+"/token?grant_type=password", "auth/token", req)
}

// RefreshSession exchanges a refresh token for a new session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*AuthSession, error) {
	req := map[string]string{
		"refresh_token": refreshToken,
	}
	return a.session(ctx, a.client.authURL+"/token?grant_type=refresh_token", "auth/token", req)
}

// GetUser returns the user owning the access token in ctx.
func (a *AuthClient) GetUser(ctx context.Context) (*User, error) {
	resp, err := a.client.request(ctx, http.MethodGet, a.client.authURL+"/user", "auth/user", nil, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// SignOut revokes the access token in ctx.
func (a *AuthClient) SignOut(ctx context.Context) error {
	_, err := a.client.request(ctx, http.MethodPost, a.client.authURL+"/logout", "auth/logout", nil, nil)
	return err
}

func (a *AuthClient) session(ctx context.Context, rawURL, resource string, req any) (*AuthSession, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := a.client.request(ctx, http.MethodPost, rawURL, resource, body, nil)
	if err != nil {
		return nil, err
	}

	var session AuthSession
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &session, nil
}
