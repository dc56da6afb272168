package imagescrape

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// SizeFetcher looks up image sizes with HEAD requests. Every failure yields a
// size of zero; nothing is retried.
type SizeFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewSizeFetcher returns a SizeFetcher. opts.Transport should be the
// process-wide transport so HEAD requests reuse pooled connections.
func NewSizeFetcher(opts ClientOptions) *SizeFetcher {
	return &SizeFetcher{
		client:    opts.httpClient(),
		userAgent: opts.userAgent(),
		logger:    opts.logger(),
	}
}

// FetchSize returns the Content-Length reported for imageURL, or 0 when the
// request fails, the status is not 2xx, or the header is missing.
func (f *SizeFetcher) FetchSize(ctx context.Context, imageURL string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		f.logFailure(ctx, imageURL, "error", err)
		return 0
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logFailure(ctx, imageURL, "error", err)
		return 0
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logFailure(ctx, imageURL, "status", resp.StatusCode)
		return 0
	}

	return contentLength(resp)
}

func (f *SizeFetcher) logFailure(ctx context.Context, imageURL, key string, value any) {
	f.logger.DebugContext(ctx, "image size lookup failed", "image_url", imageURL, key, value)
}

func contentLength(resp *http.Response) int64 {
	if v := resp.Header.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return max(resp.ContentLength, 0)
}
