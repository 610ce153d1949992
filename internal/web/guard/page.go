package guard

import (
	"log/slog"
	"net/http"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/pkg/httpx"
)

// RequireRole wraps a page handler with a role check. When the edge guard
// already established an identity this is a straight comparison. When it
// did not, and a refresh token is available, one silent refresh is
// attempted before giving up; there is never a second attempt.
func (g *Guard) RequireRole(role domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := httpx.IdentityFromContext(r.Context()); raw != nil {
			id, ok := raw.(*domain.Identity)
			if !ok || id.Role != role {
				http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
				return
			}
			next(w, r)
			return
		}

		pair, err := g.Refresher.Refresh(r.Context(), w, r)
		if err != nil {
			g.Store.Clear(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		id, err := g.Resolver.Resolve(r.Context(), pair.AccessToken)
		if err != nil || id == nil {
			if err != nil {
				g.Log.WarnContext(r.Context(), "freshly refreshed token failed verification",
					slog.String("error", err.Error()),
				)
			}
			g.Store.Clear(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if id.Role != role {
			http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(httpx.WithIdentity(r.Context(), id)))
	}
}
