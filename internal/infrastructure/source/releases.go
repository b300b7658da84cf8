package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"depradar/internal/domain"
	"depradar/internal/scanner"
	"depradar/internal/transport"
)

const (
	releaseSummaryLimit = 800
	defaultAPIBase      = "https://api.github.com"
)

// ReleaseScanner fetches recent releases of a GitHub repository.
type ReleaseScanner struct {
	policy    *transport.Policy
	timeout   time.Duration
	userAgent string
	token     string
	apiBase   string
	logger    *slog.Logger
}

var _ scanner.Scanner = (*ReleaseScanner)(nil)

// NewReleaseScanner wires the transport policy and an optional API token.
// Without a token, requests run against the unauthenticated rate limit.
func NewReleaseScanner(policy *transport.Policy, timeout time.Duration, userAgent, token string, logger *slog.Logger) *ReleaseScanner {
	return &ReleaseScanner{
		policy:    policy,
		timeout:   timeout,
		userAgent: userAgent,
		token:     token,
		apiBase:   defaultAPIBase,
		logger:    logger,
	}
}

// Kind identifies the strategy inside the registry.
func (s *ReleaseScanner) Kind() domain.SourceKind {
	return domain.KindRelease
}

type release struct {
	Name        string    `json:"name"`
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// Scan lists releases for an "owner/repo" identifier and keeps the ones
// published at or after the cutoff.
func (s *ReleaseScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.CandidateItem, error) {
	repo := req.Source.Locator
	apiURL := fmt.Sprintf("%s/repos/%s/releases", s.apiBase, repo)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "token "+s.token)
	}

	resp, err := s.policy.Client(apiURL, s.timeout).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request releases for %s: %w", repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("releases API for %s returned %s", repo, resp.Status)
	}

	var releases []release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode releases for %s: %w", repo, err)
	}

	shortName := repo
	if idx := strings.LastIndex(repo, "/"); idx >= 0 {
		shortName = repo[idx+1:]
	}

	var items []domain.CandidateItem
	for _, rel := range releases {
		if rel.PublishedAt.IsZero() || rel.PublishedAt.Before(req.Cutoff) {
			continue
		}

		name := rel.Name
		if name == "" {
			name = rel.TagName
		}

		body := rel.Body
		if body == "" {
			body = "No release notes."
		}

		items = append(items, domain.CandidateItem{
			Link:        rel.HTMLURL,
			Title:       "GitHub Release: " + name,
			PublishedAt: rel.PublishedAt.UTC(),
			Summary:     truncate(body, releaseSummaryLimit),
			Tags:        []string{"github", "release", shortName},
			SourceKind:  domain.KindRelease,
		})
	}

	if s.logger != nil {
		s.logger.Info("releases scanned", "repo", repo, "fresh", len(items))
	}
	return items, nil
}
