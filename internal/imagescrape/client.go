package imagescrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20 // 10 MB

	// DefaultUserAgent identifies outbound requests when none is configured.
	DefaultUserAgent = "ImageScraperBot/1.0"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// ClientOptions configures an outbound HTTP client built on a shared transport.
type ClientOptions struct {
	Transport http.RoundTripper
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

func (o ClientOptions) httpClient() *http.Client {
	return &http.Client{
		Timeout:       o.Timeout,
		Transport:     o.Transport,
		CheckRedirect: safeRedirectPolicy,
	}
}

func (o ClientOptions) userAgent() string {
	if o.UserAgent == "" {
		return DefaultUserAgent
	}
	return o.UserAgent
}

func (o ClientOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Response is a fetched page. The caller must close Body.
type Response struct {
	Body        io.ReadCloser
	StatusCode  int
	ContentType string
	// URL is the final location after redirects.
	URL *url.URL
}

// Fetcher defines how the engine retrieves raw HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// limitedReadCloser reads at most maxResponseBody bytes and closes the
// original body. When the limit is hit while the body still has data,
// onTruncate runs once.
type limitedReadCloser struct {
	lr         *io.LimitedReader
	body       io.ReadCloser
	onTruncate func()
	checked    bool
}

func newLimitedReadCloser(body io.ReadCloser, limit int64, onTruncate func()) *limitedReadCloser {
	return &limitedReadCloser{
		lr:         &io.LimitedReader{R: body, N: limit},
		body:       body,
		onTruncate: onTruncate,
	}
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	n, err := l.lr.Read(p)
	if err == io.EOF && l.lr.N <= 0 && !l.checked {
		l.checked = true
		var next [1]byte
		if m, _ := io.ReadFull(l.body, next[:]); m > 0 && l.onTruncate != nil {
			l.onTruncate()
		}
	}
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.body.Close()
}

// HTTPClient implements Fetcher with a full GET request.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewHTTPClient returns a page Fetcher. Redirect chains are validated and
// capped at five hops.
func NewHTTPClient(opts ClientOptions) *HTTPClient {
	return &HTTPClient{
		client:    opts.httpClient(),
		userAgent: opts.userAgent(),
		logger:    opts.logger(),
	}
}

// Fetch retrieves the page at the given URL. The body is limited to 10 MB;
// a longer page is cut off with a warning.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req) //nolint:bodyclose // body is returned to caller via limitedReadCloser
	if err != nil {
		return nil, err
	}

	return &Response{
		Body: newLimitedReadCloser(resp.Body, maxResponseBody, func() {
			c.logger.Warn("page body truncated",
				"url", targetURL,
				"limit_bytes", maxResponseBody,
			)
		}),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL,
	}, nil
}
