package proxy

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/httpx"
)

// maxProxyBody caps buffered request bodies. The API carries JSON, not
// uploads, so this is generous.
const maxProxyBody = 4 << 20

// Client forwards /api requests to the resource server with the session's
// bearer token attached. When the upstream answers 401 it performs exactly
// one refresh-and-retry; a second 401 is passed through as-is.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      *session.CookieStore
	Refresher  *session.Coordinator
	Log        *slog.Logger
}

// NewClient creates a resource server proxy client.
func NewClient(baseURL string, store *session.CookieStore, refresher *session.Coordinator, log *slog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Store:     store,
		Refresher: refresher,
		Log:       log,
	}
}

// Forward proxies the request upstream. The incoming body is buffered so
// it can be replayed on the retry leg.
func (c *Client) Forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody+1))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}
	if len(body) > maxProxyBody {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "bad_request", "request body too large")
		return
	}

	pair := c.Store.Tokens(r)

	resp, err := c.do(r.Context(), r, body, pair.AccessToken)
	if err != nil {
		c.upstreamDown(w, r, err)
		return
	}

	if resp.StatusCode == http.StatusUnauthorized && pair.HasRefresh() {
		resp.Body.Close()

		fresh, err := c.Refresher.Refresh(r.Context(), w, r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "session expired")
			return
		}

		resp, err = c.do(r.Context(), r, body, fresh.AccessToken)
		if err != nil {
			c.upstreamDown(w, r, err)
			return
		}
	}
	defer resp.Body.Close()

	copyResponse(w, resp)
}

// do performs one upstream round trip.
func (c *Client) do(ctx context.Context, r *http.Request, body []byte, accessToken string) (*http.Response, error) {
	upstreamURL := c.BaseURL + upstreamPath(r)

	req, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	copyRequestHeaders(req, r)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.HTTPClient.Do(req)
}

// upstreamPath maps the gateway path onto the resource server, dropping
// the /api prefix and preserving the query string.
func upstreamPath(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	return path
}

func (c *Client) upstreamDown(w http.ResponseWriter, r *http.Request, err error) {
	c.Log.ErrorContext(r.Context(), "resource server unreachable",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	httpx.WriteError(w, http.StatusBadGateway, "upstream_failure", "resource server unavailable")
}
