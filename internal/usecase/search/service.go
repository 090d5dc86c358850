package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/feedrank/feedrank/internal/domain"
	"github.com/feedrank/feedrank/internal/notify"
)

// Service is the content pipeline: cached ranked search on one side, feed
// synchronization on the other. The two request types share no state beyond
// the store and the cache.
type Service struct {
	store    ContentStore
	cache    PageCache
	agg      Aggregator
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
	synced   prometheus.Counter
}

// New creates the search pipeline service.
func New(
	store ContentStore,
	cache PageCache,
	agg Aggregator,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		agg:      agg,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source used for scoring. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSyncedCounter attaches a counter incremented by the number of records
// each successful sync upserts.
func (s *Service) WithSyncedCounter(c prometheus.Counter) *Service {
	s.synced = c
	return s
}

// Search returns one ranked result page for the query, served from the page
// cache when a fresh entry exists.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) (domain.Page, error) {
	q = q.Normalize()
	return s.cache.Get(ctx, q.CacheKey(), func(ctx context.Context) (domain.Page, error) {
		return s.performSearch(ctx, q)
	})
}

// performSearch runs the uncached path: fetch candidates, score, sort,
// paginate.
func (s *Service) performSearch(ctx context.Context, q domain.SearchQuery) (domain.Page, error) {
	contents, err := s.store.Search(ctx, q.Keyword, q.Type)
	if err != nil {
		return domain.Page{}, fmt.Errorf("search contents: %w", err)
	}

	now := s.now()
	scored := make([]domain.ScoredContent, 0, len(contents))
	for _, c := range contents {
		// Re-check the filters in memory so keyword semantics do not
		// depend on the store backend.
		if !c.MatchesKeyword(q.Keyword) {
			continue
		}
		if q.Type != "" && string(c.Type) != q.Type {
			continue
		}
		scored = append(scored, domain.ScoredContent{Content: c, Score: Score(c, now)})
	}

	sortScored(scored, q.SortBy)

	total := len(scored)
	page := paginate(scored, q.Offset(), q.PerPage)

	return domain.Page{
		Data:       page,
		Pagination: domain.NewPagination(total, q.Page, q.PerPage),
	}, nil
}

// sortScored orders results descending by score or published date. Equal
// keys keep their pre-sort relative order. Unknown sort keys leave store
// order untouched.
func sortScored(scored []domain.ScoredContent, by domain.SortBy) {
	switch by {
	case domain.SortByScore:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})
	case domain.SortByDate:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Content.PublishedAt.After(scored[j].Content.PublishedAt)
		})
	}
}

func paginate(scored []domain.ScoredContent, offset, perPage int) []domain.ScoredContent {
	if offset >= len(scored) {
		return []domain.ScoredContent{}
	}
	end := offset + perPage
	if end > len(scored) {
		end = len(scored)
	}
	return scored[offset:end]
}

// Sync re-ingests content from all providers, upserts every record, and
// invalidates the page cache. A provider failure only shrinks the batch; a
// store failure aborts the sync with no partial count reported.
func (s *Service) Sync(ctx context.Context) (int, error) {
	s.notifier.Info(ctx, "Starting content synchronization from providers", nil)

	contents := s.agg.FetchAll(ctx)

	count := 0
	for _, c := range contents {
		if err := s.store.Upsert(ctx, c); err != nil {
			err = fmt.Errorf("sync aborted: %w", err)
			s.notifier.Error(ctx, "Failed to synchronize contents: "+err.Error(),
				map[string]string{"content_id": c.ID})
			return 0, err
		}
		count++
	}

	if err := s.cache.Clear(ctx); err != nil {
		// Cached pages still expire by TTL; log and move on.
		s.logger.Warn("Failed to clear page cache after sync", zap.Error(err))
	}

	if s.synced != nil {
		s.synced.Add(float64(count))
	}
	s.notifier.Success(ctx,
		fmt.Sprintf("Successfully synchronized %d contents from providers", count), nil)

	return count, nil
}
