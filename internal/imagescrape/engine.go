package imagescrape

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/image-scraper/internal/model"
	"github.com/Bahjat/image-scraper/internal/platform/errs"
)

// DefaultConcurrency is the size-lookup fan-out used when none is configured.
const DefaultConcurrency = 10

const invalidURLMessage = "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com)."

// sizeFetcher defines how the engine looks up image sizes. Implementations
// must not fail: an unknown size is reported as 0.
type sizeFetcher interface {
	FetchSize(ctx context.Context, imageURL string) int64
}

// Engine orchestrates page fetching, image extraction, URL resolution and
// concurrent size lookups. It holds no per-scrape state and is safe for
// concurrent use.
type Engine struct {
	fetcher     Fetcher
	sizer       sizeFetcher
	concurrency int
	logger      *slog.Logger
}

// NewEngine returns an Engine that runs at most concurrency size lookups at a
// time per scrape. A nil logger discards output.
func NewEngine(fetcher Fetcher, sizer sizeFetcher, concurrency int, logger *slog.Logger) *Engine {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		fetcher:     fetcher,
		sizer:       sizer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Scrape fetches pageURL, finds its images and looks up their sizes.
//
// Only an empty URL or a page that cannot be retrieved produce an error.
// Image references that cannot be resolved are left out, and images whose
// size cannot be determined (including lookups cut short by ctx) are kept
// with size 0. Images are returned in document order.
func (e *Engine) Scrape(ctx context.Context, pageURL string) (*model.ScrapeResult, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, &errs.AppError{
			Kind:    errs.EmptyInput,
			Message: "Please enter the URL of the page to scrape.",
		}
	}

	target, err := parsePageURL(pageURL)
	if err != nil {
		return nil, err
	}

	doc, base, err := e.loadPage(ctx, target)
	if err != nil {
		return nil, err
	}

	images := e.resolveAll(ctx, base, doc.ImageRefs)
	e.fetchSizes(ctx, images)

	return model.NewScrapeResult(pageURL, images), nil
}

func parsePageURL(pageURL string) (*url.URL, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: invalidURLMessage,
			Cause:   err,
		}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: invalidURLMessage,
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Only http and https URLs are supported.",
		}
	}
	return parsed, nil
}

// loadPage fetches and parses the page, returning the document and the URL
// its relative references resolve against.
func (e *Engine) loadPage(ctx context.Context, target *url.URL) (*Document, *url.URL, error) {
	resp, err := e.fetcher.Fetch(ctx, target.String())
	if err != nil {
		return nil, nil, fetchFailure(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &errs.AppError{
			Kind:           errs.Unreachable,
			UpstreamStatus: resp.StatusCode,
			Message:        "The provided URL returned an error status.",
		}
	}

	body, err := charset.NewReader(resp.Body, resp.ContentType)
	if err != nil {
		return nil, nil, readFailure(ctx, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, nil, readFailure(ctx, err)
	}

	base := target
	if resp.URL != nil {
		base = resp.URL
	}
	if doc.BaseHref != "" {
		if b, err := Resolve(base, doc.BaseHref); err == nil {
			base = b
		}
	}

	return doc, base, nil
}

func fetchFailure(ctx context.Context, err error) error {
	if isDeadline(ctx, err) {
		return &errs.AppError{
			Kind:    errs.Timeout,
			Message: "Scrape timed out. The target URL may be slow to respond.",
			Cause:   err,
		}
	}
	return &errs.AppError{
		Kind:    errs.Unreachable,
		Message: "The provided URL could not be reached. Check the address.",
		Cause:   err,
	}
}

func readFailure(ctx context.Context, err error) error {
	if isDeadline(ctx, err) {
		return fetchFailure(ctx, err)
	}
	return &errs.AppError{
		Kind:    errs.ParsingFailed,
		Message: "Failed to read the HTML content.",
		Cause:   err,
	}
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// resolveAll resolves every reference against base, dropping the ones that
// cannot be resolved. The returned records have no size yet.
func (e *Engine) resolveAll(ctx context.Context, base *url.URL, refs []string) []model.ImageRecord {
	images := make([]model.ImageRecord, 0, len(refs))
	for _, ref := range refs {
		u, err := Resolve(base, ref)
		if err != nil {
			e.logger.DebugContext(ctx, "skipping image reference", "ref", ref, "error", err)
			continue
		}
		images = append(images, model.ImageRecord{URL: u.String()})
	}
	return images
}

// fetchSizes fills in images[i].Size concurrently. Each goroutine writes only
// its own slot, so document order is kept whatever the completion order.
// Once ctx is done no further lookups are started and those images stay at 0.
func (e *Engine) fetchSizes(ctx context.Context, images []model.ImageRecord) {
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	skipped := 0
	for i := range images {
		if ctx.Err() != nil {
			skipped++
			continue
		}
		imageURL := images[i].URL
		g.Go(func() error {
			images[i].Size = e.sizer.FetchSize(ctx, imageURL)
			return nil
		})
	}
	_ = g.Wait()

	if skipped > 0 {
		e.logger.WarnContext(ctx, "size lookups not started before deadline",
			"skipped", skipped, "total", len(images), "error", ctx.Err())
	}
}
