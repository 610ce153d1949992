package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// BuildAuthorizeURL constructs the authorization endpoint redirect for the
// code + PKCE flow. screen selects which page the server renders first
// ("login" or "register") and is omitted when empty.
func (c *SDKClient) BuildAuthorizeURL(redirectURI string, pkce PKCEChallenge, screen string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("code_challenge", pkce.Challenge)
	q.Set("code_challenge_method", pkce.Method)
	if screen != "" {
		q.Set("screen", screen)
	}

	return c.url("/authorize") + "?" + q.Encode()
}

// ExchangeAuthorizationCode redeems an authorization code plus its PKCE
// verifier for tokens at POST /token. The token endpoint is the one place
// the server expects form encoding rather than JSON.
func (c *SDKClient) ExchangeAuthorizationCode(ctx context.Context, code, verifier, redirectURI string) (*TokenResponse, error) {
	const op = "token-exchange"

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	form.Set("client_id", c.ClientID)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, upstreamError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstreamError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp.StatusCode, body)
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, protocolError(op, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if out.AccessToken == "" {
		return nil, protocolError(op, resp.StatusCode, errors.New("token response missing access_token"))
	}

	return &out, nil
}
