package scanner

import (
	"context"
	"fmt"
	"time"

	"depradar/internal/domain"
)

// Source describes a single configured origin of candidate items. Locator is
// a feed URL for feed sources or an "owner/repo" identifier for releases.
type Source struct {
	Locator string
	Kind    domain.SourceKind
}

// Request carries all parameters required to execute a scan.
type Request struct {
	Source Source
	Cutoff time.Time
}

// Scanner captures a single source-kind strategy (feed, release, ...).
type Scanner interface {
	Kind() domain.SourceKind
	Scan(ctx context.Context, req Request) ([]domain.CandidateItem, error)
}

// Registry keeps a mapping from source kinds to their implementations.
type Registry struct {
	scanners map[domain.SourceKind]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[domain.SourceKind]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[domain.SourceKind]Scanner{}
	}
	r.scanners[scanner.Kind()] = scanner
}

// Resolve returns a scanner by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (Scanner, error) {
	if scanner, ok := r.scanners[kind]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("no scanner registered for source kind %q", kind)
}
