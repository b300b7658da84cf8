package source

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"depradar/internal/domain"
	"depradar/internal/ports"
	"depradar/internal/scanner"
)

// Aggregator polls every configured source concurrently and returns the union
// of freshly published items. One failing source never poisons the batch: its
// error is logged and it contributes nothing.
type Aggregator struct {
	registry *scanner.Registry
	sources  []scanner.Source
	lookback time.Duration
	logger   *slog.Logger
}

var _ ports.ItemSource = (*Aggregator)(nil)

// NewAggregator wires the scanner registry with config-defined sources.
func NewAggregator(reg *scanner.Registry, sources []scanner.Source, lookback time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{registry: reg, sources: sources, lookback: lookback, logger: logger}
}

// FetchRecent fans out one task per source and waits for all of them. Result
// ordering across sources is not guaranteed; within a source, entry order
// follows the source's declared order. Cross-source deduplication is left to
// the relevance filter. An empty source list yields an empty batch.
func (a *Aggregator) FetchRecent(ctx context.Context) ([]domain.CandidateItem, error) {
	cutoff := time.Now().UTC().Add(-a.lookback)

	var (
		mu    sync.Mutex
		items []domain.CandidateItem
		wg    sync.WaitGroup
	)

	for _, src := range a.sources {
		strategy, err := a.registry.Resolve(src.Kind)
		if err != nil {
			a.warn("skipping source", "source", src.Locator, "error", err)
			continue
		}

		wg.Add(1)
		go func(src scanner.Source, strategy scanner.Scanner) {
			defer wg.Done()

			results, err := strategy.Scan(ctx, scanner.Request{Source: src, Cutoff: cutoff})
			if err != nil {
				a.warn("source failed", "source", src.Locator, "kind", src.Kind, "error", err)
				return
			}

			mu.Lock()
			items = append(items, results...)
			mu.Unlock()
		}(src, strategy)
	}

	wg.Wait()

	if a.logger != nil {
		a.logger.Info("aggregation finished", "sources", len(a.sources), "items", len(items))
	}
	return items, nil
}

func (a *Aggregator) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
