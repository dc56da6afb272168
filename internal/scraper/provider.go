package scraper

import (
	"context"

	"github.com/Bahjat/image-scraper/internal/model"
)

// ImageScrapeProvider defines the contract for any scrape engine.
type ImageScrapeProvider interface {
	Scrape(ctx context.Context, pageURL string) (*model.ScrapeResult, error)
}
