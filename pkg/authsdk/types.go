package authsdk

// Credentials is the request body for POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the request body for POST /auth/register.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserPayload is the user object embedded in auth responses.
type UserPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthResponse is the success body of login, register and refresh-token.
// RefreshToken may be empty on login when the server chooses not to issue
// one.
type AuthResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         UserPayload `json:"user"`
}

// TokenResponse is the OAuth2 token endpoint response per RFC 6749,
// returned from POST /token during the authorization-code exchange.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Identity is the normalised authenticated identity. The /me endpoint is
// allowed to spell the subject as "sub" or "id" and the display name as
// "name" or "username"; normalisation happens once, here, and nowhere else.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// identityResponse is the raw /me body before normalisation.
type identityResponse struct {
	Sub      string `json:"sub,omitempty"`
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

func (r identityResponse) normalize() Identity {
	id := Identity{
		Subject: r.Sub,
		Email:   r.Email,
		Name:    r.Name,
		Role:    r.Role,
	}
	if id.Subject == "" {
		id.Subject = r.ID
	}
	if id.Name == "" {
		id.Name = r.Username
	}
	return id
}

// HealthResponse is the body of the liveness probe.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// ReadinessResponse is the body of the readiness probe, with a per-component
// breakdown.
type ReadinessResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// VerifyTokenResponse is the success body of POST /verify-token, the legacy
// remote verification path used before the local key set is primed.
type VerifyTokenResponse struct {
	Status string          `json:"status"`
	Body   VerifyTokenBody `json:"body"`
}

// VerifyTokenBody carries the claims the server echoes for a valid token.
type VerifyTokenBody struct {
	Sub   string `json:"sub,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}
