package domain

// TokenPair is the pair of tokens that make up a browser session. The
// access token is short lived and sent upstream as a bearer; the refresh
// token is long lived, single use, and never leaves the gateway.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// HasAccess reports whether an access token is present.
func (p TokenPair) HasAccess() bool { return p.AccessToken != "" }

// HasRefresh reports whether a refresh token is present.
func (p TokenPair) HasRefresh() bool { return p.RefreshToken != "" }

// Identity is the authenticated principal attached to a request after
// verification. Role carries the parsed role, or empty when the claim was
// unknown.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    Role
}
