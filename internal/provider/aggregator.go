package provider

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/feedrank/feedrank/internal/domain"
)

// Aggregator fans out over the registered providers and concatenates their
// output. Provider failures are isolated: a failing provider contributes an
// empty slice and the rest still count.
type Aggregator struct {
	providers []Provider
	logger    *zap.Logger
	failures  *prometheus.CounterVec
}

// NewAggregator creates an aggregator over an explicit provider list
// resolved at startup. failures is a counter vec with label "provider",
// may be nil.
func NewAggregator(providers []Provider, logger *zap.Logger, failures *prometheus.CounterVec) *Aggregator {
	return &Aggregator{providers: providers, logger: logger, failures: failures}
}

// Providers returns the registered providers in registration order.
func (a *Aggregator) Providers() []Provider { return a.providers }

// FetchAll fetches every provider concurrently and concatenates the results
// in registration order, preserving per-provider order. Duplicate ids across
// providers are left in place; store upsert resolves them last-write-wins.
func (a *Aggregator) FetchAll(ctx context.Context) []domain.Content {
	results := make([][]domain.Content, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()

			contents, err := p.FetchContents(ctx)
			if err != nil {
				a.logger.Error("Provider fetch failed",
					zap.String("provider", p.Name()),
					zap.Error(err),
				)
				if a.failures != nil {
					a.failures.WithLabelValues(p.Name()).Inc()
				}
				return
			}

			a.logger.Info("Provider fetch complete",
				zap.String("provider", p.Name()),
				zap.Int("contents", len(contents)),
			)
			results[i] = contents
		}(i, p)
	}
	wg.Wait()

	var all []domain.Content
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}
