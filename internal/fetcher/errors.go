package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Kind classifies a fetch failure.
type Kind string

// Fetch failure kinds. The set is closed.
const (
	// KindInvalidURL means the URL could not be requested at all.
	KindInvalidURL Kind = "invalid_url"

	// KindTimeout means the request did not finish within the timeout.
	KindTimeout Kind = "timeout"

	// KindDNS means the host name could not be resolved.
	KindDNS Kind = "dns"

	// KindConnection means the TCP or TLS connection failed.
	KindConnection Kind = "connection"

	// KindHTTPStatus means the server answered with a 4xx or 5xx status.
	KindHTTPStatus Kind = "http_status"

	// KindTransport covers every other request failure.
	KindTransport Kind = "transport"

	// KindBody means the response body could not be read or decoded.
	KindBody Kind = "body"
)

// ErrStatus is wrapped by FetchError for KindHTTPStatus failures.
var ErrStatus = errors.New("unsuccessful http status")

// ErrUnsupportedScheme is wrapped by FetchError when the URL is neither
// http nor https.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// ErrMissingHost is wrapped by FetchError when the URL has no host.
var ErrMissingHost = errors.New("missing host in url")

// FetchError describes a failed fetch.
type FetchError struct {
	// Kind is the failure class.
	Kind Kind

	// URL is the requested URL.
	URL string

	// StatusCode is set for KindHTTPStatus.
	StatusCode int

	// Timeout is the request timeout in effect, set for KindTimeout.
	Timeout time.Duration

	// Err is the underlying error.
	Err error
}

// Error returns a human-readable description of the failure.
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return fmt.Sprintf("invalid url %q: %v", e.URL, e.Err)
	case KindTimeout:
		return fmt.Sprintf("request to %s timed out (timeout=%s)", e.URL, e.Timeout)
	case KindDNS:
		return fmt.Sprintf("failed to resolve host for %s: %v", e.URL, e.Err)
	case KindConnection:
		return fmt.Sprintf("failed to connect to %s: %v", e.URL, e.Err)
	case KindHTTPStatus:
		return fmt.Sprintf("%d %s: %s for url: %s",
			e.StatusCode, statusClass(e.StatusCode), http.StatusText(e.StatusCode), e.URL)
	case KindBody:
		return fmt.Sprintf("failed to read response from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

func statusClass(code int) string {
	if code >= http.StatusInternalServerError {
		return "Server Error"
	}
	return "Client Error"
}

// classify turns a request error into a FetchError.
// Timeouts are checked first because a DNS lookup or dial can also time out.
func classify(rawURL string, timeout time.Duration, err error) *FetchError {
	fe := &FetchError{Kind: KindTransport, URL: rawURL, Err: err}

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		fe.Kind = KindTimeout
		fe.Timeout = timeout
	case errors.As(err, &dnsErr):
		fe.Kind = KindDNS
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		fe.Kind = KindConnection
	case errors.As(err, &opErr) && opErr.Op == "dial":
		fe.Kind = KindConnection
	}
	return fe
}

// readError classifies an error returned while reading the body.
func readError(rawURL string, timeout time.Duration, err error) *FetchError {
	fe := classify(rawURL, timeout, err)
	if fe.Kind != KindTimeout {
		fe.Kind = KindBody
	}
	return fe
}
