package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
)

func TestHandleLogin(t *testing.T) {
	t.Run("success sets cookies and keeps the refresh token out of the body", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.authz.loginResp = &authsdk.AuthResponse{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			User:         authsdk.UserPayload{ID: "u1", Email: "ana@example.com", Username: "ana", Role: "pacient"},
		}

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ana@example.com","password":"pw"}`))
		rec := httptest.NewRecorder()

		f.auth.HandleLogin(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Contains(t, body, "token")
		require.Contains(t, body, "user")
		require.NotContains(t, rec.Body.String(), "refresh-1")

		access := responseCookie(t, rec, session.AccessCookieName)
		require.NotNil(t, access)
		require.Equal(t, "access-1", access.Value)

		refresh := responseCookie(t, rec, session.RefreshCookieName)
		require.NotNil(t, refresh)
		plain, err := f.store.Sealer.Open(refresh.Value)
		require.NoError(t, err)
		require.Equal(t, "refresh-1", plain)
	})

	t.Run("bad credentials map to 401", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.authz.loginStatus = http.StatusUnauthorized

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`))
		rec := httptest.NewRecorder()

		f.auth.HandleLogin(rec, r)

		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "invalid_credentials", body["error"])
		require.NotContains(t, rec.Body.String(), "invalid credentials") // upstream text stays server-side
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		f.auth.HandleLogin(rec, r)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields are a 400 without an upstream call", func(t *testing.T) {
		f := newHandlerFixture(t)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c"}`))
		rec := httptest.NewRecorder()

		f.auth.HandleLogin(rec, r)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleRefresh(t *testing.T) {
	t.Run("rotates the cookie pair", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.authz.refreshResp = &authsdk.AuthResponse{
			Token:        "access-2",
			RefreshToken: "refresh-2",
		}

		sealed, err := f.store.Sealer.Seal("refresh-1")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		r.AddCookie(&http.Cookie{Name: session.RefreshCookieName, Value: sealed})
		rec := httptest.NewRecorder()

		f.auth.HandleRefresh(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "access-2", body["token"])

		refresh := responseCookie(t, rec, session.RefreshCookieName)
		require.NotNil(t, refresh)
		plain, err := f.store.Sealer.Open(refresh.Value)
		require.NoError(t, err)
		require.Equal(t, "refresh-2", plain)
	})

	t.Run("no session is a 401", func(t *testing.T) {
		f := newHandlerFixture(t)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		rec := httptest.NewRecorder()

		f.auth.HandleRefresh(rec, r)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected rotation tears the session down", func(t *testing.T) {
		f := newHandlerFixture(t)
		// fakeAuthz answers 401 when refreshResp is unset

		sealed, err := f.store.Sealer.Seal("spent-refresh")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		r.AddCookie(&http.Cookie{Name: session.RefreshCookieName, Value: sealed})
		rec := httptest.NewRecorder()

		f.auth.HandleRefresh(rec, r)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		for _, c := range rec.Result().Cookies() {
			require.Less(t, c.MaxAge, 0, "cookie %s should expire", c.Name)
		}
	})
}

func TestHandleLogout(t *testing.T) {
	t.Run("revokes upstream and clears cookies", func(t *testing.T) {
		f := newHandlerFixture(t)

		sealed, err := f.store.Sealer.Seal("refresh-1")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		r.AddCookie(&http.Cookie{Name: session.AccessCookieName, Value: "access-1"})
		r.AddCookie(&http.Cookie{Name: session.RefreshCookieName, Value: sealed})
		rec := httptest.NewRecorder()

		f.auth.HandleLogout(rec, r)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, 1, f.authz.logoutCalls)
		require.Equal(t, []string{"refresh-1"}, f.authz.logoutTokens)

		for _, c := range rec.Result().Cookies() {
			require.Less(t, c.MaxAge, 0, "cookie %s should expire", c.Name)
		}
	})

	t.Run("logout without a session still clears locally", func(t *testing.T) {
		f := newHandlerFixture(t)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		rec := httptest.NewRecorder()

		f.auth.HandleLogout(rec, r)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Zero(t, f.authz.logoutCalls)
	})
}
