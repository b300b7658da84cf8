package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"depradar/internal/domain"
	"depradar/internal/scanner"
	"depradar/internal/transport"
)

const feedSummaryLimit = 400

// FeedScanner fetches a syndication feed and extracts entries published
// within the lookback window.
type FeedScanner struct {
	policy    *transport.Policy
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

var _ scanner.Scanner = (*FeedScanner)(nil)

// NewFeedScanner wires the transport policy and per-request settings.
func NewFeedScanner(policy *transport.Policy, timeout time.Duration, userAgent string, logger *slog.Logger) *FeedScanner {
	return &FeedScanner{policy: policy, timeout: timeout, userAgent: userAgent, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (s *FeedScanner) Kind() domain.SourceKind {
	return domain.KindFeed
}

// Scan fetches one feed URL and returns its fresh entries. A structurally
// malformed feed counts as a fetch failure, not a partial result.
func (s *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.CandidateItem, error) {
	feedURL := req.Source.Locator

	raw, err := s.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed feed %s: %w", feedURL, err)
	}

	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", feedURL, err)
	}

	var items []domain.CandidateItem
	for _, entry := range feed.Items {
		published := entryPublished(entry)
		if published == nil || published.Before(req.Cutoff) {
			continue
		}

		tags := make([]string, 0, len(entry.Categories))
		for _, cat := range entry.Categories {
			if cat != "" {
				tags = append(tags, strings.ToLower(cat))
			}
		}

		items = append(items, domain.CandidateItem{
			Link:        resolveLink(base, entry.Link),
			Title:       entry.Title,
			PublishedAt: published.UTC(),
			Summary:     entrySummary(entry),
			Tags:        tags,
			SourceKind:  domain.KindFeed,
		})
	}

	if s.logger != nil {
		s.logger.Info("feed scanned", "url", feedURL, "fresh", len(items))
	}
	return items, nil
}

func (s *FeedScanner) fetch(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.policy.Client(feedURL, s.timeout).Do(req)
	if err != nil {
		return "", fmt.Errorf("request feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed %s returned %s", feedURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read feed %s: %w", feedURL, err)
	}
	return string(body), nil
}

func entryPublished(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	return entry.UpdatedParsed
}

// entrySummary prefers rich content over the short description. Content is
// stripped of markup and truncated; the raw description passes through as a
// fallback.
func entrySummary(entry *gofeed.Item) string {
	if entry.Content != "" {
		if text := stripMarkup(entry.Content); text != "" {
			return truncate(text, feedSummaryLimit)
		}
	}
	return entry.Description
}

func resolveLink(base *url.URL, link string) string {
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

func stripMarkup(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
