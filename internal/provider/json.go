package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/feedrank/feedrank/internal/domain"
)

// JSONProvider consumes a structured feed of the form
// {"contents":[{id,title,type,metrics,published_at,tags}]}.
type JSONProvider struct {
	name   string
	url    string
	client *http.Client
}

// NewJSONProvider creates a JSON feed adapter with a bounded fetch timeout.
func NewJSONProvider(name, url string, timeout time.Duration) *JSONProvider {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &JSONProvider{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the registered provider name.
func (p *JSONProvider) Name() string { return p.name }

type jsonFeed struct {
	Contents []jsonItem `json:"contents"`
}

type jsonItem struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	Metrics     map[string]any `json:"metrics"`
	PublishedAt string         `json:"published_at"`
	Tags        []string       `json:"tags"`
}

// FetchContents downloads and parses the feed. A transport or parse failure
// surfaces as an error; the aggregator treats it as an empty contribution.
func (p *JSONProvider) FetchContents(ctx context.Context) ([]domain.Content, error) {
	body, err := fetchBody(ctx, p.client, p.url)
	if err != nil {
		return nil, err
	}

	var feed jsonFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse json feed: %w", err)
	}

	contents := make([]domain.Content, 0, len(feed.Contents))
	for _, item := range feed.Contents {
		publishedAt, err := parseFeedTime(item.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", item.ID, err)
		}
		contents = append(contents, domain.Content{
			ID:          item.ID,
			Title:       item.Title,
			Type:        domain.Type(item.Type),
			Metrics:     item.Metrics,
			PublishedAt: publishedAt,
			Tags:        item.Tags,
		})
	}

	return contents, nil
}
