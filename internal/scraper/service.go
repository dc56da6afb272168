package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Bahjat/image-scraper/internal/model"
	"github.com/Bahjat/image-scraper/internal/platform/errs"
	"github.com/Bahjat/image-scraper/internal/platform/requestid"
)

// Service runs scrapes through an ImageScrapeProvider and logs the outcome.
type Service struct {
	provider ImageScrapeProvider
	logger   *slog.Logger
}

// NewService creates a Service backed by the given provider.
func NewService(provider ImageScrapeProvider, logger *slog.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Scrape delegates to the provider and logs the outcome.
func (s *Service) Scrape(ctx context.Context, pageURL string) (*model.ScrapeResult, error) {
	logger := s.logger.With("url", pageURL, "request_id", requestid.FromContext(ctx))
	start := time.Now()

	result, err := s.provider.Scrape(ctx, pageURL)
	if err != nil {
		var appErr *errs.AppError
		if !errors.As(err, &appErr) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &errs.AppError{
				Kind:    errs.Timeout,
				Message: "Scrape timed out. The target URL may be slow to respond.",
				Cause:   err,
			}
		}

		kind := errs.KindOf(err)
		if kind == errs.EmptyInput {
			logger.Debug("scrape skipped", "kind", kind.String())
			return nil, err
		}

		attrs := []any{"error", err, "kind", kind.String()}
		if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
			attrs = append(attrs, "target_status", appErr.UpstreamStatus)
		}
		logger.Error("scrape failed", attrs...)
		return nil, err
	}

	logger.Info("scrape complete",
		"total_count", result.TotalCount,
		"total_size_bytes", result.TotalSizeBytes,
		"total_size", result.TotalSizeHuman,
		"duration", time.Since(start).String(),
	)
	return result, nil
}
