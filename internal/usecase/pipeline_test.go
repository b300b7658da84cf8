package usecase

import (
	"context"
	"errors"
	"io"
	"testing"

	"depradar/internal/domain"
	"depradar/internal/logging"
)

type fakeSource struct {
	items []domain.CandidateItem
	err   error
}

func (f *fakeSource) FetchRecent(ctx context.Context) ([]domain.CandidateItem, error) {
	return f.items, f.err
}

type fakeArchive struct {
	seen     map[string]struct{}
	recorded []domain.AnalysisRecord
	readErr  error
}

func (f *fakeArchive) FilterNew(ctx context.Context, items []domain.CandidateItem) ([]domain.CandidateItem, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var fresh []domain.CandidateItem
	for _, item := range items {
		if _, ok := f.seen[item.Link]; !ok {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

func (f *fakeArchive) Record(ctx context.Context, records []domain.AnalysisRecord) error {
	f.recorded = append(f.recorded, records...)
	return nil
}

type fakeReporter struct {
	written [][]domain.AnalysisRecord
	err     error
}

func (f *fakeReporter) Write(records []domain.AnalysisRecord) error {
	f.written = append(f.written, records)
	return f.err
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []domain.CandidateItem{
		{Link: "https://a.com/1", Title: "Relevant", Summary: "matches"},
		{Link: "https://b.com/1", Title: "Offtopic", Summary: "does not"},
		{Link: "https://c.com/1", Title: "Seen", Summary: "matches"},
	}}

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Relevant. matches":  {1, 0},
		"Offtopic. does not": {0, 1},
		"Seen. matches":      {1, 0},
	}}
	filter := NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil)

	archive := &fakeArchive{seen: map[string]struct{}{"https://c.com/1": {}}}

	analyzer := &fakeAnalyzer{responses: map[string]string{
		"Relevant": `{"is_relevant": true, "criticality_score": 3, "summary": "worth reading"}`,
	}}
	engine := NewAnalysisEngine(
		&fakeFetcher{pages: map[string]string{"https://a.com/1": "full article"}},
		identityExtractor{},
		analyzer,
		2,
		nil,
	)

	reporter := &fakeReporter{}

	pipeline := NewPipeline(source, filter, archive, engine, reporter, logging.NewWithWriter(io.Discard, "error"))

	fp := domain.Fingerprint{Embedding: []float32{1, 0}}
	if err := pipeline.Run(context.Background(), fp); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(reporter.written) != 1 || len(reporter.written[0]) != 1 {
		t.Fatalf("expected one report with one record, got %v", reporter.written)
	}
	if reporter.written[0][0].Link != "https://a.com/1" {
		t.Fatalf("unexpected reported link: %s", reporter.written[0][0].Link)
	}

	if len(archive.recorded) != 1 || archive.recorded[0].Link != "https://a.com/1" {
		t.Fatalf("expected the accepted item to be archived, got %v", archive.recorded)
	}
}

func TestPipelineAbortsOnSourceError(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(
		&fakeSource{err: errors.New("all feeds down")},
		NewRelevanceFilter(provider(&fakeEmbedder{}), "fake", 0.5, false, nil),
		&fakeArchive{},
		NewAnalysisEngine(&fakeFetcher{}, identityExtractor{}, &fakeAnalyzer{}, 1, nil),
		&fakeReporter{},
		logging.NewWithWriter(io.Discard, "error"),
	)

	if err := pipeline.Run(context.Background(), domain.Fingerprint{Embedding: []float32{1}}); err == nil {
		t.Fatal("expected the source error to surface")
	}
}

func TestPipelineAbortsOnArchiveReadError(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{"A. s": {1}}}

	pipeline := NewPipeline(
		&fakeSource{items: []domain.CandidateItem{{Link: "https://a.com/1", Title: "A", Summary: "s"}}},
		NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil),
		&fakeArchive{readErr: errors.New("disk gone")},
		NewAnalysisEngine(&fakeFetcher{}, identityExtractor{}, &fakeAnalyzer{}, 1, nil),
		&fakeReporter{},
		logging.NewWithWriter(io.Discard, "error"),
	)

	if err := pipeline.Run(context.Background(), domain.Fingerprint{Embedding: []float32{1}}); err == nil {
		t.Fatal("expected the archive error to surface")
	}
}

func TestPipelineReportFailureStillArchives(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{"A. s": {1}}}
	archive := &fakeArchive{}

	analyzer := &fakeAnalyzer{responses: map[string]string{
		"A": `{"is_relevant": true}`,
	}}

	pipeline := NewPipeline(
		&fakeSource{items: []domain.CandidateItem{{Link: "https://a.com/1", Title: "A", Summary: "s"}}},
		NewRelevanceFilter(provider(embedder), "fake", 0.5, false, nil),
		archive,
		NewAnalysisEngine(&fakeFetcher{pages: map[string]string{"https://a.com/1": "body"}}, identityExtractor{}, analyzer, 1, nil),
		&fakeReporter{err: errors.New("disk full")},
		logging.NewWithWriter(io.Discard, "error"),
	)

	if err := pipeline.Run(context.Background(), domain.Fingerprint{Embedding: []float32{1}}); err != nil {
		t.Fatalf("report failure should not abort the cycle: %v", err)
	}
	if len(archive.recorded) != 1 {
		t.Fatalf("accepted item should still be archived, got %d", len(archive.recorded))
	}
}
