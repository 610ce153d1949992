package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the external authorization server. It speaks the
// server's wire contract exactly: JSON bodies on the /auth endpoints and
// form encoding on the OAuth2 /token endpoint.
type SDKClient struct {
	BaseURL    string
	ClientID   string
	HTTPClient *http.Client
}

// NewSDKClient creates a new authorization server client.
func NewSDKClient(baseURL, clientID string) *SDKClient {
	return &SDKClient{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		ClientID: clientID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// postJSON performs a JSON POST and decodes a 2xx response into target.
// Non-2xx responses and transport failures come back as classified *Error
// values; the raw upstream body is captured for server-side logging only.
func (c *SDKClient) postJSON(ctx context.Context, op, path string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return upstreamError(op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return upstreamError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, bodyBytes)
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return protocolError(op, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

// getJSON performs a GET with an optional bearer token and decodes a 2xx
// response into target, with the same error classification as postJSON.
func (c *SDKClient) getJSON(ctx context.Context, op, path, bearer string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return upstreamError(op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return upstreamError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return protocolError(op, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}
