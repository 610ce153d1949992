package guard

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
	"github.com/mediplan/mediplan/pkg/jwtx"
)

const (
	fixtureIssuer   = "mediplan-auth"
	fixtureAudience = "mediplan-web"
	fixtureKid      = "k1"
)

// fakeSDK stands in for the authorization server in guard tests.
type fakeSDK struct {
	mu           sync.Mutex
	refreshCalls int

	refreshResp *authsdk.AuthResponse
	refreshErr  error

	verifyResp *authsdk.VerifyTokenResponse
	verifyErr  error
}

func (f *fakeSDK) RefreshToken(ctx context.Context, refreshToken string) (*authsdk.AuthResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	return f.refreshResp, f.refreshErr
}

func (f *fakeSDK) VerifyToken(ctx context.Context, accessToken string) (*authsdk.VerifyTokenResponse, error) {
	return f.verifyResp, f.verifyErr
}

type fixture struct {
	guard *Guard
	store *session.CookieStore
	keys  *jwtx.KeySet
	sdk   *fakeSDK
	priv  ed25519.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewEd25519JWK(fixtureKid, "sig", "EdDSA", pub),
	}}))

	sealKey := make([]byte, 32)
	_, err = rand.Read(sealKey)
	require.NoError(t, err)
	sealer, err := session.NewSealer(sealKey)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &session.CookieStore{Sealer: sealer}
	sdk := &fakeSDK{}

	resolver := &Resolver{
		Keys:     keys,
		Verifier: jwtx.NewKeySetVerifier(keys, fixtureIssuer, []string{fixtureAudience}),
		SDK:      sdk,
		Log:      logger,
	}

	return &fixture{
		guard: &Guard{
			Resolver:  resolver,
			Store:     store,
			Refresher: session.NewCoordinator(sdk, store, logger),
			Log:       logger,
		},
		store: store,
		keys:  keys,
		sdk:   sdk,
		priv:  priv,
	}
}

func (f *fixture) signToken(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    fixtureIssuer,
			Audience:  jwt.ClaimStrings{fixtureAudience},
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email: "ana@example.com",
		Name:  "Ana",
		Role:  role,
	})
	token.Header["kid"] = fixtureKid

	signed, err := token.SignedString(f.priv)
	require.NoError(t, err)
	return signed
}

// request builds a GET request with optional session cookies.
func (f *fixture) request(t *testing.T, path, accessToken, refreshToken string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, path, nil)
	if accessToken != "" {
		r.AddCookie(&http.Cookie{Name: session.AccessCookieName, Value: accessToken})
	}
	if refreshToken != "" {
		sealed, err := f.store.Sealer.Seal(refreshToken)
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: session.RefreshCookieName, Value: sealed})
	}
	return r
}

// probe is a next handler recording whether it ran and with what identity.
type probe struct {
	called   bool
	identity *domain.Identity
}

func (p *probe) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.called = true
		if raw := httpx.IdentityFromContext(r.Context()); raw != nil {
			p.identity, _ = raw.(*domain.Identity)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardMiddleware(t *testing.T) {
	t.Run("public path passes without a session", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/login", "", ""))

		require.True(t, p.called)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("protected page without a session redirects to login", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/medic/appointments", "", ""))

		require.False(t, p.called)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("valid session in its own area passes with identity", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()
		token := f.signToken(t, "medic", time.Hour)

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/medic/appointments", token, ""))

		require.True(t, p.called)
		require.NotNil(t, p.identity)
		require.Equal(t, domain.RoleMedic, p.identity.Role)
		require.Equal(t, "u1", p.identity.Subject)
	})

	t.Run("wrong role page redirects to unauthorized", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()
		token := f.signToken(t, "pacient", time.Hour)

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/admin/dashboard", token, ""))

		require.False(t, p.called)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	})

	t.Run("api without a session gets json 401", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/api/me", "", ""))

		require.False(t, p.called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "unauthenticated")
	})

	t.Run("api wrong role gets json 403", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()
		token := f.signToken(t, "pacient", time.Hour)

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/api/admin/users", token, ""))

		require.False(t, p.called)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "unauthorized")
	})

	t.Run("expired token with refresh cookie is waved through on pages", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()
		token := f.signToken(t, "medic", -time.Minute)

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/medic/appointments", token, "refresh-1"))

		// No identity: the page-level check owns the refresh attempt
		require.True(t, p.called)
		require.Nil(t, p.identity)
	})

	t.Run("expired token with refresh cookie still gets 401 on api", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()
		token := f.signToken(t, "medic", -time.Minute)

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/api/medic/schedule", token, "refresh-1"))

		require.False(t, p.called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token without refresh cookie redirects to login", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()
		token := f.signToken(t, "medic", -time.Minute)

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/medic/appointments", token, ""))

		require.False(t, p.called)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("remote verification covers an unprimed key set", func(t *testing.T) {
		f := newFixture(t)
		f.guard.Resolver.Keys = jwtx.NewKeySet() // nothing loaded yet
		f.sdk.verifyResp = &authsdk.VerifyTokenResponse{
			Status: "valid",
			Body:   authsdk.VerifyTokenBody{Sub: "u1", Role: "admin"},
		}

		p := &probe{}
		rec := httptest.NewRecorder()

		f.guard.Middleware(p.handler()).ServeHTTP(rec, f.request(t, "/admin/dashboard", "opaque-token", ""))

		require.True(t, p.called)
		require.NotNil(t, p.identity)
		require.Equal(t, domain.RoleAdmin, p.identity.Role)
	})

	t.Run("unknown kid kicks a key refresh", func(t *testing.T) {
		f := newFixture(t)

		kicked := false
		f.guard.Resolver.Kick = func() { kicked = true }

		// Keys hold only fixtureKid; a rotated token announces a new one
		token := f.signToken(t, "medic", time.Hour)
		require.NoError(t, f.keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{
			jwtx.NewEd25519JWK("k2", "sig", "EdDSA", make(ed25519.PublicKey, ed25519.PublicKeySize)),
		}}))

		rec := httptest.NewRecorder()
		f.guard.Middleware((&probe{}).handler()).ServeHTTP(rec, f.request(t, "/medic/appointments", token, ""))

		require.True(t, kicked)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("matching identity from the edge passes", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()

		handler := f.guard.RequireRole(domain.RoleMedic, p.handler().ServeHTTP)
		r := f.request(t, "/medic/appointments", "", "")
		r = r.WithContext(httpx.WithIdentity(r.Context(), &domain.Identity{Subject: "u1", Role: domain.RoleMedic}))

		handler(rec, r)
		require.True(t, p.called)
	})

	t.Run("wrong role from the edge redirects to unauthorized", func(t *testing.T) {
		f := newFixture(t)
		p := &probe{}
		rec := httptest.NewRecorder()

		handler := f.guard.RequireRole(domain.RoleAdmin, p.handler().ServeHTTP)
		r := f.request(t, "/admin/dashboard", "", "")
		r = r.WithContext(httpx.WithIdentity(r.Context(), &domain.Identity{Subject: "u1", Role: domain.RolePacient}))

		handler(rec, r)
		require.False(t, p.called)
		require.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	})

	t.Run("silent refresh recovers an expired session", func(t *testing.T) {
		f := newFixture(t)
		f.sdk.refreshResp = &authsdk.AuthResponse{
			Token:        f.signToken(t, "medic", time.Hour),
			RefreshToken: "refresh-2",
		}

		p := &probe{}
		rec := httptest.NewRecorder()

		// Full path: edge middleware waves the expired session through,
		// the page check refreshes and retries exactly once
		expired := f.signToken(t, "medic", -time.Minute)
		page := f.guard.RequireRole(domain.RoleMedic, p.handler().ServeHTTP)
		f.guard.Middleware(page).ServeHTTP(rec, f.request(t, "/medic/appointments", expired, "refresh-1"))

		require.True(t, p.called)
		require.NotNil(t, p.identity)
		require.Equal(t, domain.RoleMedic, p.identity.Role)
		require.Equal(t, 1, f.sdk.refreshCalls)

		// Rotated cookies are on the response
		got := f.store.Tokens(cookiesToRequest(rec))
		require.Equal(t, "refresh-2", got.RefreshToken)
	})

	t.Run("failed refresh clears the session and redirects to login", func(t *testing.T) {
		f := newFixture(t)
		f.sdk.refreshErr = errors.New("token already used")

		p := &probe{}
		rec := httptest.NewRecorder()

		expired := f.signToken(t, "medic", -time.Minute)
		page := f.guard.RequireRole(domain.RoleMedic, p.handler().ServeHTTP)
		f.guard.Middleware(page).ServeHTTP(rec, f.request(t, "/medic/appointments", expired, "refresh-1"))

		require.False(t, p.called)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		for _, c := range rec.Result().Cookies() {
			require.Less(t, c.MaxAge, 0, "cookie %s should expire", c.Name)
		}
	})

	t.Run("refreshed session with the wrong role is still unauthorized", func(t *testing.T) {
		f := newFixture(t)
		f.sdk.refreshResp = &authsdk.AuthResponse{
			Token:        f.signToken(t, "pacient", time.Hour),
			RefreshToken: "refresh-2",
		}

		p := &probe{}
		rec := httptest.NewRecorder()

		expired := f.signToken(t, "pacient", -time.Minute)
		page := f.guard.RequireRole(domain.RoleMedic, p.handler().ServeHTTP)
		f.guard.Middleware(page).ServeHTTP(rec, f.request(t, "/medic/appointments", expired, "refresh-1"))

		require.False(t, p.called)
		require.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	})
}

// cookiesToRequest lifts Set-Cookie headers off a response into a request.
func cookiesToRequest(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return r
}
