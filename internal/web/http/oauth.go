package http

import (
	"log/slog"
	"net/http"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/internal/web/guard"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/slogx"
)

// OAuthHandler drives the authorization-code + PKCE flow against the
// authorization server's hosted login pages.
type OAuthHandler struct {
	SDK         *authsdk.SDKClient
	Store       *session.CookieStore
	Resolver    *guard.Resolver
	RedirectURL string
	Logger      *slog.Logger
}

// HandleStart godoc
//
//	@Summary		Begin the hosted login flow
//	@Description	Generates a PKCE pair, stashes the verifier in a short-lived httpOnly
//	@Description	cookie and redirects to the authorization server. The screen parameter
//	@Description	picks the login or register page.
//	@Tags			OAuth
//	@Param			screen	query	string	false	"login or register"	Enums(login, register)
//	@Success		302
//	@Router			/oauth/authorize [get].
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	screen := r.URL.Query().Get("screen")
	if screen != "register" {
		screen = "login"
	}

	pkce, err := authsdk.GeneratePKCE()
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to generate PKCE pair", "error", err.Error())
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	h.Store.SetVerifier(w, pkce.Verifier)
	http.Redirect(w, r, h.SDK.BuildAuthorizeURL(h.RedirectURL, pkce, screen), http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		Authorization callback
//	@Description	Redeems the authorization code with the pending PKCE verifier and
//	@Description	establishes the session. A missing code or verifier aborts locally,
//	@Description	without touching the token endpoint.
//	@Tags			OAuth
//	@Param			code	query	string	false	"authorization code"
//	@Success		303
//	@Router			/oauth/callback [get].
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	code := r.URL.Query().Get("code")
	verifier := h.Store.Verifier(r)
	h.Store.ClearVerifier(w)

	if code == "" || verifier == "" {
		// No round trip to the token endpoint without both halves
		log.Warn("authorization callback missing code or verifier")
		http.Redirect(w, r, "/login?error=missing_code_or_verifier", http.StatusSeeOther)
		return
	}

	tokens, err := h.SDK.ExchangeAuthorizationCode(r.Context(), code, verifier, h.RedirectURL)
	if err != nil {
		log.Warn("authorization code exchange failed", "error", err.Error())
		http.Redirect(w, r, "/login?error=exchange_failed", http.StatusSeeOther)
		return
	}

	id, err := h.Resolver.Resolve(r.Context(), tokens.AccessToken)
	if err != nil {
		// A token we cannot verify does not become a session
		log.Warn("freshly issued token failed verification", "error", err.Error())
		h.Store.Clear(w)
		http.Redirect(w, r, "/login?error=exchange_failed", http.StatusSeeOther)
		return
	}

	if err := h.Store.SetTokens(w, domain.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}); err != nil {
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, id.Role.LandingPath(), http.StatusSeeOther)
}
