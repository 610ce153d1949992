package authsdk

import (
	"context"
	"time"
)

// verifyTokenTimeout caps the remote verification round trip so a slow
// authorization server cannot stall page loads.
const verifyTokenTimeout = 5 * time.Second

// Me fetches the authenticated identity from GET /me and normalises the
// field spellings the server is known to vary.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*Identity, error) {
	var raw identityResponse
	if err := c.getJSON(ctx, "me", "/me", accessToken, &raw); err != nil {
		return nil, err
	}

	id := raw.normalize()
	return &id, nil
}

// VerifyToken asks the authorization server to validate an access token via
// POST /verify-token. This is the fallback path used while the local key
// set has not been primed yet.
func (c *SDKClient) VerifyToken(ctx context.Context, accessToken string) (*VerifyTokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTokenTimeout)
	defer cancel()

	body := map[string]string{"token": accessToken}

	var out VerifyTokenResponse
	if err := c.postJSON(ctx, "verify-token", "/verify-token", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
