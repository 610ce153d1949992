package proxy

import (
	"io"
	"net/http"
	"strings"
)

// hopHeaders are connection-scoped headers that must not be forwarded in
// either direction, per RFC 9110 section 7.6.1.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// forwardableRequestHeaders are the request headers worth passing through.
// Cookies deliberately stay behind: the upstream authenticates on the
// bearer header alone and must never see the gateway's session cookies.
var forwardableRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Type",
	"If-None-Match",
	"If-Modified-Since",
}

// copyRequestHeaders populates the upstream request from the incoming one.
func copyRequestHeaders(dst *http.Request, src *http.Request) {
	for _, name := range forwardableRequestHeaders {
		if v := src.Header.Get(name); v != "" {
			dst.Header.Set(name, v)
		}
	}
}

// copyResponse relays the upstream response to the client, minus hop-by-hop
// headers and any Set-Cookie the upstream might emit. Session cookies are
// the gateway's business only.
func copyResponse(w http.ResponseWriter, resp *http.Response) {
	for name, values := range resp.Header {
		if isHopHeader(name) || strings.EqualFold(name, "Set-Cookie") {
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
