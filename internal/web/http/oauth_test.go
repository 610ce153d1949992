package http

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mediplan/mediplan/internal/web/guard"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/jwtx"
)

const (
	testIssuer      = "mediplan-auth"
	testAudience    = "mediplan-web"
	testKid         = "k1"
	testRedirectURL = "http://gw.local/oauth/callback"
)

// fakeAuthz is a minimal in-process authorization server.
type fakeAuthz struct {
	mu         sync.Mutex
	tokenCalls int

	// canned /token response
	accessToken  string
	refreshToken string
	tokenStatus  int

	// canned /auth responses
	loginResp    *authsdk.AuthResponse
	loginStatus  int
	refreshResp  *authsdk.AuthResponse
	logoutCalls  int
	logoutTokens []string
}

func (f *fakeAuthz) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokenCalls++
		status := f.tokenStatus
		access, refresh := f.accessToken, f.refreshToken
		f.mu.Unlock()

		if status != 0 {
			http.Error(w, `{"error":"invalid_grant"}`, status)
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		})
	})

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		resp, status := f.loginResp, f.loginStatus
		f.mu.Unlock()

		if status != 0 {
			http.Error(w, `{"message":"invalid credentials"}`, status)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		resp := f.refreshResp
		f.mu.Unlock()

		if resp == nil {
			http.Error(w, `{"message":"token already used"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.logoutCalls++
		f.logoutTokens = append(f.logoutTokens, body["refreshToken"])
		f.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (f *fakeAuthz) tokenCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

type handlerFixture struct {
	authz *fakeAuthz
	sdk   *authsdk.SDKClient
	store *session.CookieStore
	oauth *OAuthHandler
	auth  *AuthHandler
	priv  ed25519.PrivateKey
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewEd25519JWK(testKid, "sig", "EdDSA", pub),
	}}))

	authz := &fakeAuthz{}
	srv := httptest.NewServer(authz.handler())
	t.Cleanup(srv.Close)

	sdk := authsdk.NewSDKClient(srv.URL, "mediplan-web")

	sealKey := make([]byte, 32)
	_, err = rand.Read(sealKey)
	require.NoError(t, err)
	sealer, err := session.NewSealer(sealKey)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &session.CookieStore{Sealer: sealer}

	resolver := &guard.Resolver{
		Keys:     keys,
		Verifier: jwtx.NewKeySetVerifier(keys, testIssuer, []string{testAudience}),
		SDK:      sdk,
		Log:      logger,
	}

	return &handlerFixture{
		authz: authz,
		sdk:   sdk,
		store: store,
		priv:  priv,
		oauth: &OAuthHandler{
			SDK:         sdk,
			Store:       store,
			Resolver:    resolver,
			RedirectURL: testRedirectURL,
			Logger:      logger,
		},
		auth: &AuthHandler{
			SDK:       sdk,
			Store:     store,
			Refresher: session.NewCoordinator(sdk, store, logger),
			Logger:    logger,
		},
	}
}

func (f *handlerFixture) signToken(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email: "ana@example.com",
		Name:  "Ana",
		Role:  role,
	})
	token.Header["kid"] = testKid

	signed, err := token.SignedString(f.priv)
	require.NoError(t, err)
	return signed
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandleStart(t *testing.T) {
	t.Run("redirects with a challenge matching the verifier cookie", func(t *testing.T) {
		f := newHandlerFixture(t)
		rec := httptest.NewRecorder()

		f.oauth.HandleStart(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil))

		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/authorize", loc.Path)

		q := loc.Query()
		require.Equal(t, "code", q.Get("response_type"))
		require.Equal(t, "S256", q.Get("code_challenge_method"))
		require.Equal(t, "login", q.Get("screen"))
		require.Equal(t, testRedirectURL, q.Get("redirect_uri"))

		c := responseCookie(t, rec, session.VerifierCookieName)
		require.NotNil(t, c)
		require.True(t, c.HttpOnly)
		require.Equal(t, authsdk.ChallengeFromVerifier(c.Value), q.Get("code_challenge"))
	})

	t.Run("register screen is forwarded", func(t *testing.T) {
		f := newHandlerFixture(t)
		rec := httptest.NewRecorder()

		f.oauth.HandleStart(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize?screen=register", nil))

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "register", loc.Query().Get("screen"))
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("happy path lands on the role page with a session", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.authz.accessToken = f.signToken(t, "medic", time.Hour)
		f.authz.refreshToken = "refresh-1"

		r := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=code-123", nil)
		r.AddCookie(&http.Cookie{Name: session.VerifierCookieName, Value: "verifier-abc"})
		rec := httptest.NewRecorder()

		f.oauth.HandleCallback(rec, r)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/medic/appointments", rec.Header().Get("Location"))
		require.Equal(t, 1, f.authz.tokenCallCount())

		access := responseCookie(t, rec, session.AccessCookieName)
		require.NotNil(t, access)
		require.Equal(t, f.authz.accessToken, access.Value)

		refresh := responseCookie(t, rec, session.RefreshCookieName)
		require.NotNil(t, refresh)
		plain, err := f.store.Sealer.Open(refresh.Value)
		require.NoError(t, err)
		require.Equal(t, "refresh-1", plain)

		verifier := responseCookie(t, rec, session.VerifierCookieName)
		require.NotNil(t, verifier)
		require.Less(t, verifier.MaxAge, 0, "verifier cookie should be consumed")
	})

	t.Run("missing verifier aborts before any token call", func(t *testing.T) {
		f := newHandlerFixture(t)

		r := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=code-123", nil)
		rec := httptest.NewRecorder()

		f.oauth.HandleCallback(rec, r)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login?error=missing_code_or_verifier", rec.Header().Get("Location"))
		require.Zero(t, f.authz.tokenCallCount())
	})

	t.Run("missing code aborts before any token call", func(t *testing.T) {
		f := newHandlerFixture(t)

		r := httptest.NewRequest(http.MethodGet, "/oauth/callback", nil)
		r.AddCookie(&http.Cookie{Name: session.VerifierCookieName, Value: "verifier-abc"})
		rec := httptest.NewRecorder()

		f.oauth.HandleCallback(rec, r)

		require.Equal(t, "/login?error=missing_code_or_verifier", rec.Header().Get("Location"))
		require.Zero(t, f.authz.tokenCallCount())
	})

	t.Run("rejected exchange returns to login", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.authz.tokenStatus = http.StatusBadRequest

		r := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=bad-code", nil)
		r.AddCookie(&http.Cookie{Name: session.VerifierCookieName, Value: "verifier-abc"})
		rec := httptest.NewRecorder()

		f.oauth.HandleCallback(rec, r)

		require.Equal(t, "/login?error=exchange_failed", rec.Header().Get("Location"))
	})

	t.Run("unverifiable token does not become a session", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.authz.accessToken = "not-a-jwt"
		f.authz.refreshToken = "refresh-1"

		r := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=code-123", nil)
		r.AddCookie(&http.Cookie{Name: session.VerifierCookieName, Value: "verifier-abc"})
		rec := httptest.NewRecorder()

		f.oauth.HandleCallback(rec, r)

		require.Equal(t, "/login?error=exchange_failed", rec.Header().Get("Location"))
	})
}
