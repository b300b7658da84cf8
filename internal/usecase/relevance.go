package usecase

import (
	"context"
	"log/slog"

	"depradar/internal/domain"
	"depradar/internal/infrastructure/embed"
	"depradar/internal/ports"
)

// RelevanceFilter reduces the aggregator's output to items semantically
// close to the project fingerprint, with no duplicate identities.
//
// Failure policy: a missing fingerprint embedding or a model failure is a
// filter malfunction, not a reason to drop a run. By default the filter
// fails open and returns its input unchanged; fail-closed drops the batch.
type RelevanceFilter struct {
	engines    func(model string) ports.Embedder
	model      string
	threshold  float64
	failClosed bool
	logger     *slog.Logger
}

// NewRelevanceFilter wires the engine provider (typically an embed.Cache)
// with the configured model and inclusive threshold.
func NewRelevanceFilter(engines func(model string) ports.Embedder, model string, threshold float64, failClosed bool, logger *slog.Logger) *RelevanceFilter {
	return &RelevanceFilter{
		engines:    engines,
		model:      model,
		threshold:  threshold,
		failClosed: failClosed,
		logger:     logger,
	}
}

// Filter scores each candidate's "title. summary" text against the project
// embedding and keeps items with similarity >= threshold, recording the
// score. Kept items are then deduplicated by link, first occurrence wins.
// Empty input returns empty without touching the model.
func (f *RelevanceFilter) Filter(ctx context.Context, items []domain.CandidateItem, fp domain.Fingerprint) []domain.CandidateItem {
	if len(items) == 0 {
		return nil
	}

	if len(fp.Embedding) == 0 {
		f.error("project embedding missing, relevance filtering skipped")
		return f.malfunction(items)
	}

	engine := f.engines(f.model)

	kept := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		vector, err := engine.Embed(ctx, item.Title+". "+item.Summary)
		if err != nil {
			f.error("embedding failed", "link", item.Link, "error", err)
			return f.malfunction(items)
		}

		score, err := embed.Cosine(fp.Embedding, vector)
		if err != nil {
			f.error("similarity failed", "link", item.Link, "error", err)
			return f.malfunction(items)
		}

		if score >= f.threshold {
			item.RelevanceScore = score
			kept = append(kept, item)
			f.debug("candidate kept", "title", item.Title, "score", score)
		} else {
			f.debug("candidate dropped", "title", item.Title, "score", score)
		}
	}

	deduped := dedupeByLink(kept)
	if f.logger != nil {
		f.logger.Info("relevance filtering finished",
			"candidates", len(items), "kept", len(deduped), "threshold", f.threshold)
	}
	return deduped
}

// dedupeByLink keeps the first occurrence of each link in input order. Items
// without a link are dropped entirely.
func dedupeByLink(items []domain.CandidateItem) []domain.CandidateItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		if _, ok := seen[item.Link]; ok {
			continue
		}
		seen[item.Link] = struct{}{}
		out = append(out, item)
	}
	return out
}

func (f *RelevanceFilter) malfunction(items []domain.CandidateItem) []domain.CandidateItem {
	if f.failClosed {
		return nil
	}
	return items
}

func (f *RelevanceFilter) error(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Error(msg, args...)
	}
}

func (f *RelevanceFilter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
