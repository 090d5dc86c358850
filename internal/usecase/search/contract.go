package search

import (
	"context"

	"github.com/feedrank/feedrank/internal/domain"
)

// ContentStore is the storage contract consumed by the pipeline.
type ContentStore interface {
	Search(ctx context.Context, keyword, contentType string) ([]domain.Content, error)
	Upsert(ctx context.Context, c domain.Content) error
}

// PageCache memoizes computed result pages.
type PageCache interface {
	Get(
		ctx context.Context,
		key string,
		produce func(ctx context.Context) (domain.Page, error),
	) (domain.Page, error)
	Clear(ctx context.Context) error
}

// Aggregator collects content from every registered provider. Provider
// failures are isolated inside the aggregator and never surface here.
type Aggregator interface {
	FetchAll(ctx context.Context) []domain.Content
}
