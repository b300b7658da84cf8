package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/semaphore"

	"depradar/internal/domain"
	"depradar/internal/ports"
)

const defaultConcurrency = 5

// jsonBlockExpr finds a JSON object inside a ```json fenced block, or a bare
// one anywhere in the response.
var jsonBlockExpr = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```|(\\{.*?\\})")

// AnalysisEngine performs deep per-item analysis under a hard concurrency
// ceiling: fetch the page, extract the article text, ask the injected
// analyzer for a judgment, parse it. Every failure is contained to its item.
type AnalysisEngine struct {
	fetcher     ports.PageFetcher
	extractor   ports.Extractor
	analyzer    ports.Analyzer
	concurrency int
	logger      *slog.Logger
}

// NewAnalysisEngine wires the per-item collaborators. A non-positive
// concurrency falls back to the default gate size.
func NewAnalysisEngine(fetcher ports.PageFetcher, extractor ports.Extractor, analyzer ports.Analyzer, concurrency int, logger *slog.Logger) *AnalysisEngine {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &AnalysisEngine{
		fetcher:     fetcher,
		extractor:   extractor,
		analyzer:    analyzer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run submits every item up front; at most the configured number run
// concurrently while the rest wait for a slot. Output order is not
// guaranteed to match input order.
func (e *AnalysisEngine) Run(ctx context.Context, items []domain.CandidateItem) []domain.AnalysisRecord {
	if len(items) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(e.concurrency))

	var (
		mu      sync.Mutex
		records []domain.AnalysisRecord
		wg      sync.WaitGroup
	)

	for _, item := range items {
		wg.Add(1)
		go func(item domain.CandidateItem) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				e.warn("analysis slot acquire aborted", "link", item.Link, "error", err)
				return
			}
			defer sem.Release(1)

			if record, ok := e.analyzeOne(ctx, item); ok {
				mu.Lock()
				records = append(records, record)
				mu.Unlock()
			}
		}(item)
	}

	wg.Wait()

	if e.logger != nil {
		e.logger.Info("deep analysis finished", "candidates", len(items), "accepted", len(records))
	}
	return records
}

// analyzeOne runs a single item's pipeline. A false return means the item
// was discarded; discards are logged, never raised out of the batch.
func (e *AnalysisEngine) analyzeOne(ctx context.Context, item domain.CandidateItem) (domain.AnalysisRecord, bool) {
	html, err := e.fetcher.Fetch(ctx, item.Link)
	if err != nil {
		e.warn("content fetch failed, discarding", "link", item.Link, "error", err)
		return domain.AnalysisRecord{}, false
	}

	fullText := e.extractor.Extract(html)
	if fullText == "" {
		e.warn("no usable article text, discarding", "link", item.Link)
		return domain.AnalysisRecord{}, false
	}

	raw, err := e.analyzer.Analyze(ctx, ports.PromptFields{
		Title:    item.Title,
		Summary:  item.Summary,
		FullText: fullText,
	})
	if err != nil {
		e.warn("analysis invocation failed, discarding", "link", item.Link, "error", err)
		return domain.AnalysisRecord{}, false
	}

	analysis, ok := parseAnalysis(raw)
	if !ok {
		e.warn("no parseable JSON in analyzer response, discarding", "link", item.Link)
		return domain.AnalysisRecord{}, false
	}
	if !analysis.IsRelevant {
		if e.logger != nil {
			e.logger.Info("analyzer judged item not relevant, discarding", "link", item.Link)
		}
		return domain.AnalysisRecord{}, false
	}

	return domain.AnalysisRecord{Link: item.Link, Title: item.Title, Analysis: analysis}, true
}

// parseAnalysis extracts the judgment object from a raw analyzer response,
// tolerating markdown code fences around the JSON.
func parseAnalysis(raw string) (domain.Analysis, bool) {
	match := jsonBlockExpr.FindStringSubmatch(raw)
	if match == nil {
		return domain.Analysis{}, false
	}

	jsonText := match[1]
	if jsonText == "" {
		jsonText = match[2]
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		return domain.Analysis{}, false
	}
	return analysis, true
}

func (e *AnalysisEngine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
