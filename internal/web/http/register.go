package http

import (
	"encoding/json"
	"net/http"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
)

// HandleRegister godoc
//
//	@Summary		Register a new account
//	@Description	Creates an account on the authorization server and signs the new user in.
//	@Description	The server assigns the role; the gateway never sends one.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.Registration	true	"registration details"
//	@Success		201		{object}	authBody
//	@Failure		400		{object}	map[string]string
//	@Failure		502		{object}	map[string]string
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg authsdk.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if reg.Email == "" || reg.Username == "" || reg.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "email, username and password are required")
		return
	}

	resp, err := h.SDK.Register(r.Context(), reg)
	if err != nil {
		h.writeAuthFailure(w, r, "register", err)
		return
	}

	if err := h.Store.SetTokens(w, domain.TokenPair{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "failed to establish session")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authBody{Token: resp.Token, User: resp.User})
}
