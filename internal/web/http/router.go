package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mediplan/mediplan/internal/web/guard"
	"github.com/mediplan/mediplan/internal/web/obs"
	"github.com/mediplan/mediplan/internal/web/proxy"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
	"github.com/mediplan/mediplan/pkg/jwtx"
	"github.com/mediplan/mediplan/pkg/slogx"

	_ "github.com/mediplan/mediplan/api/web" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	startTime    time.Time
	buildVersion string
	redirectURL  string
	logger       *slog.Logger

	keys *jwtx.KeySet

	SDK       *authsdk.SDKClient
	Store     *session.CookieStore
	Refresher *session.Coordinator
	Guard     *guard.Guard
	Proxy     *proxy.Client
}

func NewRouter(
	keys *jwtx.KeySet,
	redirectURL, buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		redirectURL:  redirectURL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	// Set default middleware chain. The guard runs innermost so its
	// decisions are logged and counted like any other response.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		obs.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerPages()
	r.registerAuth()
	r.registerOAuth()
	r.registerAPI()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			MediPlan Web Gateway API
//	@version		0.1.0
//	@description	Browser-facing gateway for the MediPlan appointment platform. Handles the
//	@description	OAuth2 authorization-code + PKCE flow against the authorization server,
//	@description	keeps the session in httpOnly cookies, and proxies /api calls to the
//	@description	resource server with bearer injection.
//
//	@contact.name				MediPlan Team
//	@contact.url				https://github.com/mediplan/mediplan
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	mws := append(r.middlewares, r.Guard.Middleware)
	httpx.Chain(r.Mux, mws...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		SDK:       r.SDK,
		Store:     r.Store,
		Refresher: r.Refresher,
		Logger:    r.logger,
	}

	// Credential-bearing endpoints get the strict limit to slow brute force
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{
		SDK:         r.SDK,
		Store:       r.Store,
		Resolver:    r.Guard.Resolver,
		RedirectURL: r.redirectURL,
		Logger:      r.logger,
	}

	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /oauth/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAPI() {
	me := &MeHandler{SDK: r.SDK, Store: r.Store}
	r.Mux.Handle("GET /api/me",
		httpx.Chain(me,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Everything else under /api is proxied to the resource server. The
	// guard has already enforced the route policy by the time this runs.
	r.Mux.Handle("/api/", http.HandlerFunc(r.Proxy.Forward))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", obs.Handler())
}
