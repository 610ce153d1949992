package authsdk

import "context"

// Login exchanges first-party credentials for a token pair via
// POST /auth/login.
func (c *SDKClient) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.postJSON(ctx, "login", "/auth/login", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account via POST /auth/register. New accounts are
// always issued with the lowest-privilege role; the server decides, the
// gateway never sends a role.
func (c *SDKClient) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.postJSON(ctx, "register", "/auth/register", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken rotates a refresh token via POST /auth/refresh-token.
// Refresh tokens are single use: a successful call invalidates the one
// sent and the response carries its replacement.
func (c *SDKClient) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var out AuthResponse
	if err := c.postJSON(ctx, "refresh-token", "/auth/refresh-token", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token server-side via POST /auth/logout.
// Callers treat this as best effort; local session teardown happens
// regardless of the outcome.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.postJSON(ctx, "logout", "/auth/logout", body, nil)
}
