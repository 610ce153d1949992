package http

import (
	"net/http"

	"github.com/mediplan/mediplan/pkg/slogx"
)

// HandleLogout godoc
//
//	@Summary		End the session
//	@Description	Revokes the refresh token upstream on a best-effort basis and clears the
//	@Description	session cookies regardless of the outcome.
//	@Tags			Auth
//	@Success		204
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	pair := h.Store.Tokens(r)

	if pair.HasRefresh() {
		if err := h.SDK.Logout(r.Context(), pair.RefreshToken); err != nil {
			// Local teardown proceeds either way
			slogx.FromContext(r.Context()).Warn("upstream logout failed", "error", err.Error())
		}
	}

	h.Store.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
