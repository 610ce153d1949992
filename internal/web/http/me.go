package http

import (
	"net/http"

	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
)

// MeHandler serves GET /api/me from the authorization server's profile
// endpoint, so the front-end always sees the normalised identity shape
// regardless of which field spellings the server used.
type MeHandler struct {
	SDK   *authsdk.SDKClient
	Store *session.CookieStore
}

// ServeHTTP godoc
//
//	@Summary		Current user profile
//	@Description	Returns the authenticated identity with field names normalised.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		401	{object}	map[string]string
//	@Router			/api/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pair := h.Store.Tokens(r)
	if !pair.HasAccess() {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	id, err := h.SDK.Me(r.Context(), pair.AccessToken)
	if err != nil {
		if authsdk.IsKind(err, authsdk.KindUnauthenticated) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "session expired")
			return
		}
		httpx.WriteError(w, http.StatusBadGateway, "upstream_failure", "profile service unavailable")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"sub":   id.Subject,
		"email": id.Email,
		"name":  id.Name,
		"role":  id.Role,
	})
}
