package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"depradar/internal/ports"
	"depradar/internal/transport"
)

// PageFetcher retrieves article pages for deep analysis, honoring the
// transport policy per URL.
type PageFetcher struct {
	policy    *transport.Policy
	timeout   time.Duration
	userAgent string
}

var _ ports.PageFetcher = (*PageFetcher)(nil)

// NewPageFetcher wires the shared transport policy with per-request settings.
func NewPageFetcher(policy *transport.Policy, timeout time.Duration, userAgent string) *PageFetcher {
	return &PageFetcher{policy: policy, timeout: timeout, userAgent: userAgent}
}

// Fetch returns the page body as a string.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.policy.Client(url, f.timeout).Do(req)
	if err != nil {
		return "", fmt.Errorf("request page %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page %s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page %s: %w", url, err)
	}
	return string(body), nil
}
