package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/internal/web/obs"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
	"github.com/mediplan/mediplan/pkg/jwtx"
)

// tokenVerifier is the slice of the auth SDK used for remote verification.
type tokenVerifier interface {
	VerifyToken(ctx context.Context, accessToken string) (*authsdk.VerifyTokenResponse, error)
}

// Resolver turns an access token into an identity. Verification is local
// against the cached key set; until the first JWKS fetch lands it falls
// back to asking the authorization server directly.
type Resolver struct {
	Keys     *jwtx.KeySet
	Verifier jwtx.Verifier
	SDK      tokenVerifier
	Log      *slog.Logger

	// Kick, when set, requests an out-of-band JWKS refresh after a token
	// signed with an unknown kid, so key rotations heal quickly.
	Kick func()
}

// Resolve verifies the access token and returns the identity it proves.
// An expired token surfaces as jwtx.ErrExpired so callers can decide
// whether a silent refresh is worth attempting; every other failure just
// means no identity.
func (res *Resolver) Resolve(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if res.Keys.IsReady() {
		claims, err := res.Verifier.Verify(accessToken)
		if err != nil {
			if errors.Is(err, jwtx.ErrUnknownKID) && res.Kick != nil {
				res.Kick()
			}
			return nil, err
		}

		role, _ := domain.ParseRole(claims.Role)
		return &domain.Identity{
			Subject: claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
			Role:    role,
		}, nil
	}

	vt, err := res.SDK.VerifyToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	role, _ := domain.ParseRole(vt.Body.Role)
	return &domain.Identity{
		Subject: vt.Body.Sub,
		Email:   vt.Body.Email,
		Name:    vt.Body.Name,
		Role:    role,
	}, nil
}

// Guard enforces the route policy at the edge and exposes the page-level
// role checks.
type Guard struct {
	Resolver  *Resolver
	Store     *session.CookieStore
	Refresher *session.Coordinator
	Log       *slog.Logger
}

// isAPIPath reports whether failures should be JSON rather than redirects.
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// Middleware is the edge guard. It verifies the access cookie, attaches the
// identity to the request context and enforces the route policy. It never
// refreshes: an expired token on a page route is waved through identityless
// so the page handler can attempt its one silent refresh.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		pair := g.Store.Tokens(r)

		var (
			id         *domain.Identity
			resolveErr error
		)
		if pair.HasAccess() {
			id, resolveErr = g.Resolver.Resolve(r.Context(), pair.AccessToken)
			if resolveErr != nil && !errors.Is(resolveErr, jwtx.ErrExpired) {
				g.Log.DebugContext(r.Context(), "access token rejected",
					slog.String("path", path),
					slog.String("error", resolveErr.Error()),
				)
			}
		}

		if id != nil {
			r = r.WithContext(httpx.WithIdentity(r.Context(), id))
		}

		switch Evaluate(id, path) {
		case VerdictAllow:
			if !PublicPath(path) {
				obs.RecordGuard("allow")
			}
			next.ServeHTTP(w, r)

		case VerdictLogin:
			if errors.Is(resolveErr, jwtx.ErrExpired) && pair.HasRefresh() && !isAPIPath(path) {
				// RequireRole downstream owns the refresh attempt.
				next.ServeHTTP(w, r)
				return
			}

			obs.RecordGuard("login")
			if isAPIPath(path) {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)

		case VerdictUnauthorized:
			obs.RecordGuard("unauthorized")
			if isAPIPath(path) {
				httpx.WriteError(w, http.StatusForbidden, "unauthorized", "insufficient role")
				return
			}
			http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
		}
	})
}
