// Package provider contains the feed adapters that normalize external
// sources into content records, plus the aggregator that fans out over them.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feedrank/feedrank/internal/domain"
)

const defaultFetchTimeout = 15 * time.Second

// Provider adapts one external feed into content records.
type Provider interface {
	FetchContents(ctx context.Context) ([]domain.Content, error)
	Name() string
}

// maxFeedBytes caps how much of a feed body is read.
const maxFeedBytes = 10 << 20

// fetchBody GETs url and returns the response body.
func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return body, nil
}

// feedTimeLayouts are the timestamp forms accepted from feeds.
var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseFeedTime parses a feed timestamp, trying the accepted layouts in
// order.
func parseFeedTime(s string) (time.Time, error) {
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
