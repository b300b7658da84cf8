package ports

import (
	"context"

	"depradar/internal/domain"
)

// ItemSource pulls fresh candidate items from all configured sources.
type ItemSource interface {
	FetchRecent(ctx context.Context) ([]domain.CandidateItem, error)
}

// Archive records processed items and filters out ones seen in earlier runs.
type Archive interface {
	FilterNew(ctx context.Context, items []domain.CandidateItem) ([]domain.CandidateItem, error)
	Record(ctx context.Context, records []domain.AnalysisRecord) error
}

// Embedder turns text into a vector for similarity scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// PromptFields carries the per-item inputs handed to the analysis capability.
type PromptFields struct {
	Title    string
	Summary  string
	FullText string
}

// Analyzer is the injected deep-analysis capability. It returns raw text that
// the caller parses; the pipeline treats it as opaque.
type Analyzer interface {
	Analyze(ctx context.Context, fields PromptFields) (string, error)
}

// PageFetcher retrieves a page body over HTTP under the transport policy.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor pulls the primary article text out of a fetched HTML page.
type Extractor interface {
	Extract(html string) string
}

// ReportWriter hands the final analysis batch to a reporting collaborator.
type ReportWriter interface {
	Write(records []domain.AnalysisRecord) error
}

// Runner controls when pipeline executions happen.
type Runner interface {
	Start(ctx context.Context, job func(context.Context)) error
	Stop(ctx context.Context) error
}
