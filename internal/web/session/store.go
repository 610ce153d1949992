package session

import (
	"net/http"

	"github.com/mediplan/mediplan/internal/web/domain"
)

// Cookie names. auth_token is readable by the edge guard on every request;
// refresh_token and pkce_verifier never leave the gateway's own handlers.
const (
	AccessCookieName   = "auth_token"
	RefreshCookieName  = "refresh_token"
	VerifierCookieName = "pkce_verifier"
)

// Cookie lifetimes in seconds. The access cookie matches the token's
// advertised expiry, the refresh cookie the server's 30 day window, and
// the verifier just long enough to complete a login round trip.
const (
	accessTokenMaxAge  = 3600
	refreshTokenMaxAge = 30 * 24 * 3600
	verifierMaxAge     = 600
)

// CookieStore reads and writes the session cookies. All writes are
// httpOnly; the refresh token is additionally sealed so it is opaque to
// the browser. Reads never fail: a missing, expired or unopenable cookie
// simply yields an empty value.
type CookieStore struct {
	Sealer *Sealer
	Secure bool

	// LegacyAccessName, when set, is an older access cookie name still
	// accepted on reads during the migration window. Writes always use
	// AccessCookieName.
	LegacyAccessName string
}

// Tokens extracts the current token pair from the request cookies.
func (s *CookieStore) Tokens(r *http.Request) domain.TokenPair {
	var pair domain.TokenPair

	if c, err := r.Cookie(AccessCookieName); err == nil {
		pair.AccessToken = c.Value
	} else if s.LegacyAccessName != "" {
		if c, err := r.Cookie(s.LegacyAccessName); err == nil {
			pair.AccessToken = c.Value
		}
	}

	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		if plain, err := s.Sealer.Open(c.Value); err == nil {
			pair.RefreshToken = plain
		}
	}

	return pair
}

// SetTokens writes the session cookies for a token pair. An empty refresh
// token leaves the refresh cookie untouched, since login responses may
// omit one while the existing session continues.
func (s *CookieStore) SetTokens(w http.ResponseWriter, pair domain.TokenPair) error {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   accessTokenMaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if pair.RefreshToken == "" {
		return nil
	}

	sealed, err := s.Sealer.Seal(pair.RefreshToken)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   refreshTokenMaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	return nil
}

// Clear expires every session cookie, legacy name included. Used on
// logout and whenever a refresh attempt fails.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	names := []string{AccessCookieName, RefreshCookieName, VerifierCookieName}
	if s.LegacyAccessName != "" {
		names = append(names, s.LegacyAccessName)
	}

	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.Secure,
		})
	}
}

// Verifier returns the pending PKCE verifier, or "" when none is stored.
func (s *CookieStore) Verifier(r *http.Request) string {
	if c, err := r.Cookie(VerifierCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetVerifier stores the PKCE verifier for the duration of the authorize
// round trip.
func (s *CookieStore) SetVerifier(w http.ResponseWriter, verifier string) {
	http.SetCookie(w, &http.Cookie{
		Name:     VerifierCookieName,
		Value:    verifier,
		Path:     "/",
		MaxAge:   verifierMaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearVerifier drops the PKCE verifier once the callback has consumed it.
func (s *CookieStore) ClearVerifier(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     VerifierCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
	})
}
