package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/internal/web/obs"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/cryptox"
)

// ErrNoSession means there was no refresh token to work with. Callers send
// the browser to /login.
var ErrNoSession = errors.New("session: no refresh token")

// tokenRefresher is the slice of the auth SDK the coordinator needs.
type tokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*authsdk.AuthResponse, error)
}

// Coordinator serialises refresh attempts. Refresh tokens are single use
// upstream, so two concurrent requests holding the same token must not
// both redeem it: the first caller becomes the leader and performs the
// exchange, everyone else waits and shares the leader's outcome. Each
// caller still writes the resulting cookies to its own response.
type Coordinator struct {
	client tokenRefresher
	store  *CookieStore
	log    *slog.Logger

	mu       sync.Mutex
	inflight map[string]*refreshCall
}

type refreshCall struct {
	done chan struct{}
	pair domain.TokenPair
	err  error
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(client tokenRefresher, store *CookieStore, log *slog.Logger) *Coordinator {
	return &Coordinator{
		client:   client,
		store:    store,
		log:      log,
		inflight: make(map[string]*refreshCall),
	}
}

// Refresh rotates the session's refresh token and writes the new cookie
// pair to w. On any upstream failure the session cookies are cleared so a
// half-dead session cannot linger.
func (c *Coordinator) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.TokenPair, error) {
	pair := c.store.Tokens(r)
	if !pair.HasRefresh() {
		return domain.TokenPair{}, ErrNoSession
	}
	token := pair.RefreshToken

	c.mu.Lock()
	if call, ok := c.inflight[token]; ok {
		c.mu.Unlock()
		return c.await(ctx, w, call)
	}

	call := &refreshCall{done: make(chan struct{})}
	c.inflight[token] = call
	c.mu.Unlock()

	call.pair, call.err = c.exchange(ctx, token)

	c.mu.Lock()
	delete(c.inflight, token)
	c.mu.Unlock()
	close(call.done)

	return c.apply(w, call)
}

// await blocks until the in-flight leader finishes, then applies its
// outcome to this caller's response.
func (c *Coordinator) await(ctx context.Context, w http.ResponseWriter, call *refreshCall) (domain.TokenPair, error) {
	select {
	case <-call.done:
		obs.RecordRefresh("shared")
		return c.apply(w, call)
	case <-ctx.Done():
		return domain.TokenPair{}, ctx.Err()
	}
}

// apply writes the call's outcome to the caller's response writer.
func (c *Coordinator) apply(w http.ResponseWriter, call *refreshCall) (domain.TokenPair, error) {
	if call.err != nil {
		c.store.Clear(w)
		return domain.TokenPair{}, call.err
	}

	if err := c.store.SetTokens(w, call.pair); err != nil {
		c.store.Clear(w)
		return domain.TokenPair{}, err
	}

	return call.pair, nil
}

// exchange redeems the refresh token upstream.
func (c *Coordinator) exchange(ctx context.Context, token string) (domain.TokenPair, error) {
	resp, err := c.client.RefreshToken(ctx, token)
	if err != nil {
		obs.RecordRefresh("failure")
		c.log.WarnContext(ctx, "refresh token rotation failed",
			slog.String("refresh_token_fp", cryptox.FingerprintToken(token)),
			slog.String("error", err.Error()),
		)
		return domain.TokenPair{}, err
	}

	obs.RecordRefresh("success")
	c.log.DebugContext(ctx, "refresh token rotated",
		slog.String("refresh_token_fp", cryptox.FingerprintToken(token)),
	)

	return domain.TokenPair{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	}, nil
}
