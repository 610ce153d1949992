package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
	"github.com/mediplan/mediplan/pkg/slogx"
)

// AuthHandler serves the first-party JSON auth endpoints under /api/auth.
type AuthHandler struct {
	SDK       *authsdk.SDKClient
	Store     *session.CookieStore
	Refresher *session.Coordinator
	Logger    *slog.Logger
}

// authBody is the success body of login and register. The refresh token is
// deliberately absent: it lives only in its sealed cookie.
type authBody struct {
	Token string              `json:"token"`
	User  authsdk.UserPayload `json:"user"`
}

// HandleLogin godoc
//
//	@Summary		Login with email and password
//	@Description	Exchanges credentials for a session. The access token is returned in the
//	@Description	body and mirrored into the auth_token cookie; the refresh token is stored
//	@Description	only in its sealed httpOnly cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.Credentials	true	"credentials"
//	@Success		200		{object}	authBody
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		502		{object}	map[string]string
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds authsdk.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	resp, err := h.SDK.Login(r.Context(), creds)
	if err != nil {
		h.writeAuthFailure(w, r, "login", err)
		return
	}

	if err := h.Store.SetTokens(w, domain.TokenPair{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "failed to establish session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authBody{Token: resp.Token, User: resp.User})
}

// writeAuthFailure maps SDK errors onto the gateway's wire contract. The
// raw upstream message stays in the logs.
func (h *AuthHandler) writeAuthFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := slogx.FromContext(r.Context())
	log.Warn("upstream auth call failed", "op", op, "error", err.Error())

	switch {
	case authsdk.IsKind(err, authsdk.KindUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case authsdk.IsKind(err, authsdk.KindUpstream):
		httpx.WriteError(w, http.StatusBadGateway, "upstream_failure", "authentication service unavailable")
	default:
		httpx.WriteError(w, http.StatusBadGateway, "upstream_failure", "authentication failed")
	}
}
