package model

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var errTotalsMismatch = errors.New("scrape result totals do not match images")

// ImageRecord is a single image found on a page. Size is zero when the size
// could not be determined.
type ImageRecord struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// ScrapeResult holds every image found on a page, in document order, with
// totals derived from the image list.
type ScrapeResult struct {
	URL            string        `json:"url"`
	Images         []ImageRecord `json:"images"`
	TotalCount     int           `json:"total_count"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	TotalSizeHuman string        `json:"total_size_human"`
}

// NewScrapeResult builds a ScrapeResult and derives its totals from images.
func NewScrapeResult(pageURL string, images []ImageRecord) *ScrapeResult {
	if images == nil {
		images = []ImageRecord{}
	}

	var total int64
	for _, img := range images {
		total += img.Size
	}

	return &ScrapeResult{
		URL:            pageURL,
		Images:         images,
		TotalCount:     len(images),
		TotalSizeBytes: total,
		TotalSizeHuman: humanize.IBytes(uint64(total)),
	}
}

// Validate recomputes the totals and reports whether they still match Images.
func (r *ScrapeResult) Validate() error {
	want := NewScrapeResult(r.URL, r.Images)
	if r.TotalCount != want.TotalCount || r.TotalSizeBytes != want.TotalSizeBytes {
		return fmt.Errorf("%w: count %d/%d, bytes %d/%d", errTotalsMismatch,
			r.TotalCount, want.TotalCount, r.TotalSizeBytes, want.TotalSizeBytes)
	}
	return nil
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
