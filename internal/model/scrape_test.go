package model

import (
	"encoding/json"
	"testing"
)

func TestNewScrapeResult_Totals(t *testing.T) {
	tests := []struct {
		name      string
		images    []ImageRecord
		wantCount int
		wantBytes int64
		wantHuman string
	}{
		{name: "nil images", images: nil, wantCount: 0, wantBytes: 0, wantHuman: "0 B"},
		{name: "empty images", images: []ImageRecord{}, wantCount: 0, wantBytes: 0, wantHuman: "0 B"},
		{
			name: "mixed sizes with unknown",
			images: []ImageRecord{
				{URL: "http://site.test/a.png", Size: 100},
				{URL: "http://site.test/b.png", Size: 0},
				{URL: "http://site.test/c.png", Size: 200},
			},
			wantCount: 3,
			wantBytes: 300,
			wantHuman: "300 B",
		},
		{
			name:      "megabytes",
			images:    []ImageRecord{{URL: "http://site.test/big.jpg", Size: 3 << 20}},
			wantCount: 1,
			wantBytes: 3 << 20,
			wantHuman: "3.0 MiB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewScrapeResult("http://site.test/", tt.images)
			if r.TotalCount != tt.wantCount {
				t.Errorf("TotalCount = %d, want %d", r.TotalCount, tt.wantCount)
			}
			if r.TotalSizeBytes != tt.wantBytes {
				t.Errorf("TotalSizeBytes = %d, want %d", r.TotalSizeBytes, tt.wantBytes)
			}
			if r.TotalSizeHuman != tt.wantHuman {
				t.Errorf("TotalSizeHuman = %q, want %q", r.TotalSizeHuman, tt.wantHuman)
			}
			if r.Images == nil {
				t.Error("Images is nil, want empty slice")
			}
			if err := r.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestScrapeResult_ValidateDetectsMismatch(t *testing.T) {
	r := NewScrapeResult("http://site.test/", []ImageRecord{{URL: "http://site.test/a.png", Size: 10}})
	r.TotalSizeBytes = 11

	if err := r.Validate(); err == nil {
		t.Fatal("expected mismatch error, got nil")
	}
}

func TestScrapeResult_EmptyImagesEncodeAsArray(t *testing.T) {
	data, err := json.Marshal(NewScrapeResult("http://site.test/", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw["images"]) != "[]" {
		t.Errorf("images = %s, want []", raw["images"])
	}
}
