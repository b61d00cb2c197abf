package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/model"
)

// Result is the outcome of a single fetch: exactly one of Page and Err
// is set.
type Result struct {
	// Page is the fetched page on success.
	Page *model.Page

	// Err describes the failure.
	Err *FetchError
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Page != nil
}

// Fetcher performs HTTP GET requests with a fixed timeout and User-Agent.
// It holds no per-request state and is safe for concurrent use.
type Fetcher struct {
	// client performs the requests. It has no cookie jar, so no cookie
	// survives from one request to the next.
	client *http.Client

	// timeout bounds each request, body included.
	timeout time.Duration

	// userAgent is the User-Agent header.
	userAgent string

	// maxBodySize limits the decoded body size to read.
	maxBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum decoded body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// New creates a Fetcher with the default timeout, User-Agent and body limit.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     config.DefaultTimeout,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = newHTTPClient()
	}

	return f
}

// newHTTPClient returns a client that ignores proxy environment variables.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	return &http.Client{Transport: transport}
}

// Timeout returns the per-request timeout.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch performs a GET request for rawURL.
// Responses with a status of 400 or above are failures. Redirects are
// followed the way net/http does by default.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	if err := validateURL(rawURL); err != nil {
		return Result{Err: &FetchError{Kind: KindInvalidURL, URL: rawURL, Err: err}}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{Err: &FetchError{Kind: KindInvalidURL, URL: rawURL, Err: err}}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{Err: classify(rawURL, f.timeout, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{Err: &FetchError{
			Kind:       KindHTTPStatus,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        ErrStatus,
		}}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := readBody(resp.Body, resp.Header.Get("Content-Encoding"), contentType, f.maxBodySize)
	if err != nil {
		return Result{Err: readError(rawURL, f.timeout, err)}
	}

	page := &model.Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}
	page.ComputeHash()

	return Result{Page: page}
}

// validateURL checks that rawURL is an absolute http or https URL.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsupportedScheme
	}
	if u.Host == "" {
		return ErrMissingHost
	}
	return nil
}
