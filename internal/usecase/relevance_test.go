package usecase

import (
	"context"
	"errors"
	"testing"

	"depradar/internal/domain"
	"depradar/internal/ports"
)

// fakeEmbedder returns canned vectors keyed by the exact input text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no canned vector for: " + text)
	}
	return vec, nil
}

func (f *fakeEmbedder) Model() string { return "fake" }

func provider(e ports.Embedder) func(model string) ports.Embedder {
	return func(model string) ports.Embedder { return e }
}

func TestRelevanceFilterThresholdInclusive(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Boundary. exactly at threshold": {3, 4},
		"Perfect. identical direction":   {1, 0},
		"Orthogonal. unrelated":          {0, 1},
	}}

	filter := NewRelevanceFilter(provider(embedder), "fake", 0.6, false, nil)

	fp := domain.Fingerprint{Embedding: []float32{1, 0}}
	items := []domain.CandidateItem{
		{Link: "https://a.com/1", Title: "Boundary", Summary: "exactly at threshold"},
		{Link: "https://b.com/1", Title: "Perfect", Summary: "identical direction"},
		{Link: "https://c.com/1", Title: "Orthogonal", Summary: "unrelated"},
	}

	kept := filter.Filter(context.Background(), items, fp)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept items, got %d", len(kept))
	}
	if kept[0].Link != "https://a.com/1" {
		t.Fatalf("score equal to the threshold should be kept, got %v", kept)
	}
	if kept[0].RelevanceScore != 0.6 {
		t.Fatalf("unexpected score: %f", kept[0].RelevanceScore)
	}
	if kept[1].RelevanceScore != 1 {
		t.Fatalf("unexpected score: %f", kept[1].RelevanceScore)
	}
}

func TestRelevanceFilterMixedBatch(t *testing.T) {
	t.Parallel()

	// Scores close to 0.8, 0.2 and 0.5 against a 0.4 threshold.
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Close. new ORM release":  {4, 3},
		"Far. gardening tips":     {1, 4.899},
		"Middling. general infra": {1, 1.7320508},
	}}

	filter := NewRelevanceFilter(provider(embedder), "fake", 0.4, false, nil)

	fp := domain.Fingerprint{Embedding: []float32{1, 0}}
	items := []domain.CandidateItem{
		{Link: "https://a.com/1", Title: "Close", Summary: "new ORM release"},
		{Link: "https://b.com/1", Title: "Far", Summary: "gardening tips"},
		{Link: "https://c.com/1", Title: "Middling", Summary: "general infra"},
	}

	kept := filter.Filter(context.Background(), items, fp)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept items, got %d", len(kept))
	}
	if kept[0].Link != "https://a.com/1" || kept[1].Link != "https://c.com/1" {
		t.Fatalf("unexpected kept set: %v", kept)
	}
	if kept[0].RelevanceScore < 0.79 || kept[0].RelevanceScore > 0.81 {
		t.Fatalf("unexpected score: %f", kept[0].RelevanceScore)
	}
}

func TestRelevanceFilterDedupeFirstWins(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Post. from the feed":    {1, 0},
		"Post. from the release": {1, 0},
	}}

	filter := NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil)

	fp := domain.Fingerprint{Embedding: []float32{1, 0}}
	items := []domain.CandidateItem{
		{Link: "https://a.com/1", Title: "Post", Summary: "from the feed"},
		{Link: "https://a.com/1", Title: "Post", Summary: "from the release"},
	}

	kept := filter.Filter(context.Background(), items, fp)
	if len(kept) != 1 {
		t.Fatalf("expected 1 item after dedupe, got %d", len(kept))
	}
	if kept[0].Summary != "from the feed" {
		t.Fatalf("first occurrence should win, got %q", kept[0].Summary)
	}
}

func TestRelevanceFilterEmptyInput(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	filter := NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil)

	kept := filter.Filter(context.Background(), nil, domain.Fingerprint{Embedding: []float32{1}})
	if len(kept) != 0 {
		t.Fatalf("expected empty result, got %d", len(kept))
	}
	if embedder.calls != 0 {
		t.Fatalf("empty input should not touch the model, got %d calls", embedder.calls)
	}
}

func TestRelevanceFilterFailsOpenOnMissingEmbedding(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	filter := NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil)

	items := []domain.CandidateItem{{Link: "https://a.com/1", Title: "A"}}
	kept := filter.Filter(context.Background(), items, domain.Fingerprint{})
	if len(kept) != 1 {
		t.Fatalf("missing project embedding should pass candidates through, got %d", len(kept))
	}
}

func TestRelevanceFilterFailsClosedWhenConfigured(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{err: errors.New("model down")}
	filter := NewRelevanceFilter(provider(embedder), "fake", 0.5, true, nil)

	items := []domain.CandidateItem{{Link: "https://a.com/1", Title: "A"}}
	kept := filter.Filter(context.Background(), items, domain.Fingerprint{Embedding: []float32{1}})
	if len(kept) != 0 {
		t.Fatalf("fail-closed filter should drop the batch, got %d", len(kept))
	}
}

func TestRelevanceFilterFailsOpenOnModelError(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{err: errors.New("model down")}
	filter := NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil)

	items := []domain.CandidateItem{
		{Link: "https://a.com/1", Title: "A"},
		{Link: "https://b.com/1", Title: "B"},
	}
	kept := filter.Filter(context.Background(), items, domain.Fingerprint{Embedding: []float32{1}})
	if len(kept) != 2 {
		t.Fatalf("fail-open filter should return all candidates, got %d", len(kept))
	}
}
