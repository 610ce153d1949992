package authsdk

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure classes the gateway core produces.
// Every error crossing the SDK boundary carries exactly one of these, so
// callers branch on kind instead of probing error shapes.
type Kind string

const (
	// KindUnauthenticated means no usable credential: the upstream rejected
	// the token or grant. Surfaced to browsers as a redirect to /login.
	KindUnauthenticated Kind = "unauthenticated"

	// KindUnauthorized means a valid session holds the wrong role for the
	// requested resource. Surfaced as a redirect to /unauthorized.
	KindUnauthorized Kind = "unauthorized"

	// KindProtocol means the exchange itself failed: non-2xx status outside
	// the auth classes, or a malformed body.
	KindProtocol Kind = "protocol_failure"

	// KindUpstream means the server was unreachable: connection errors and
	// timeouts.
	KindUpstream Kind = "upstream_failure"
)

// Error is the uniform error type returned by the SDK. The raw upstream
// body, when captured, lives only in the wrapped error text and is meant
// for server-side logs, never for end users.
type Error struct {
	Kind   Kind
	Op     string // the operation that failed, e.g. "refresh-token"
	Status int    // HTTP status when one was received, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authsdk: %s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("authsdk: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// upstreamError wraps a transport-level failure (connection refused,
// timeout, body read error).
func upstreamError(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

// protocolError wraps a malformed-response failure.
func protocolError(op string, status int, err error) *Error {
	return &Error{Kind: KindProtocol, Op: op, Status: status, Err: err}
}

// statusError classifies a non-2xx upstream status. 401/403 mean the
// credential was rejected; everything else is a protocol failure.
func statusError(op string, status int, body []byte) *Error {
	kind := KindProtocol
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindUnauthenticated
	}

	return &Error{
		Kind:   kind,
		Op:     op,
		Status: status,
		Err:    fmt.Errorf("upstream said: %s", truncate(body, 256)),
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
