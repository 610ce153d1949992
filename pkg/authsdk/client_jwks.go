package authsdk

import (
	"context"

	"github.com/mediplan/mediplan/pkg/jwtx"
)

// GetJWKS fetches the server's published verification keys from
// GET /.well-known/jwks.json.
func (c *SDKClient) GetJWKS(ctx context.Context) (*jwtx.JWKS, error) {
	var jwks jwtx.JWKS
	if err := c.getJSON(ctx, "jwks", "/.well-known/jwks.json", "", &jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}
