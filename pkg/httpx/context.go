package httpx

import "context"

type ctxKey string

const (
	// CtxKeyIdentity carries the verified identity established by the route
	// guard so handlers never re-verify the access token themselves.
	CtxKeyIdentity ctxKey = "identity"
)

// IdentityFromContext retrieves the value stored under CtxKeyIdentity.
// Callers assert the concrete type themselves to avoid an import cycle
// between httpx and the domain package.
func IdentityFromContext(ctx context.Context) any {
	return ctx.Value(CtxKeyIdentity)
}

// WithIdentity stores the verified identity in the context.
func WithIdentity(ctx context.Context, identity any) context.Context {
	return context.WithValue(ctx, CtxKeyIdentity, identity)
}
