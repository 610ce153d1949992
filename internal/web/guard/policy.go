package guard

import (
	"strings"

	"github.com/mediplan/mediplan/internal/web/domain"
)

// Verdict is the outcome of evaluating a request against the route policy.
type Verdict int

const (
	// VerdictAllow lets the request through.
	VerdictAllow Verdict = iota
	// VerdictLogin means no valid identity was present on a protected path.
	VerdictLogin
	// VerdictUnauthorized means a valid identity holds the wrong role.
	VerdictUnauthorized
)

// publicPrefixes are path prefixes reachable without a session.
var publicPrefixes = []string{
	"/oauth/",
	"/api/auth/",
	"/swagger/",
	"/static/",
}

// publicPaths are exact paths reachable without a session.
var publicPaths = map[string]struct{}{
	"/":             {},
	"/login":        {},
	"/register":     {},
	"/unauthorized": {},
	"/livez":        {},
	"/readyz":       {},
	"/metrics":      {},
	"/favicon.ico":  {},
}

// PublicPath reports whether the path is reachable without a session.
func PublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// PrefixRole returns the role that owns the path's protected area, if any.
// Page routes and their API counterparts share one policy, so an optional
// leading /api segment is stripped before matching.
func PrefixRole(path string) (domain.Role, bool) {
	path = strings.TrimPrefix(path, "/api")

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleMedic, domain.RolePacient} {
		prefix := role.RoutePrefix()
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return role, true
		}
	}
	return "", false
}

// Evaluate decides what to do with a request. It is a pure function of the
// identity and the path, so the edge middleware and the page-level checks
// can never disagree.
func Evaluate(id *domain.Identity, path string) Verdict {
	if PublicPath(path) {
		return VerdictAllow
	}

	if id == nil {
		return VerdictLogin
	}

	if role, ok := PrefixRole(path); ok && id.Role != role {
		return VerdictUnauthorized
	}

	return VerdictAllow
}
