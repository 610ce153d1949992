package http

import (
	"errors"
	"net/http"

	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/httpx"
)

// HandleRefresh godoc
//
//	@Summary		Rotate the session's refresh token
//	@Description	Redeems the sealed refresh cookie for a fresh token pair. Concurrent calls
//	@Description	holding the same refresh token are coalesced into a single upstream
//	@Description	rotation. Any failure tears the session down.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	map[string]string	"token"
//	@Failure		401	{object}	map[string]string
//	@Router			/api/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.Refresher.Refresh(r.Context(), w, r)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			// Coordinator already cleared the cookies
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "session expired")
			return
		}
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no active session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"token": pair.AccessToken})
}
