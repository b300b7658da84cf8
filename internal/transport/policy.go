package transport

import (
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Policy resolves, per URL, whether requests use verified or unverified TLS.
// Hosts matching any configured skip substring are exempted from certificate
// verification; everything else shares one verified transport built lazily on
// first use and read-only afterwards. A single Policy is injected into every
// stage so the verified transport is constructed once per process.
type Policy struct {
	skipHosts []string
	logger    *slog.Logger

	once       sync.Once
	verified   *http.Transport
	unverified *http.Transport
}

// NewPolicy builds a policy from the configured skip list. Substring matching
// is intentionally permissive: "insecure.example.com" also matches
// "notinsecure.example.com".
func NewPolicy(skipHosts []string, logger *slog.Logger) *Policy {
	return &Policy{skipHosts: skipHosts, logger: logger}
}

// Client returns an HTTP client for the given URL with the caller's timeout.
// The underlying transport is shared, so connection pooling is preserved
// across calls and stages. URL-parse failures default to verified.
func (p *Policy) Client(rawURL string, timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: p.TransportFor(rawURL)}
}

// TransportFor resolves the shared transport appropriate for the given URL.
// Every exemption use is logged as a security-relevant event.
func (p *Policy) TransportFor(rawURL string) *http.Transport {
	p.once.Do(p.build)

	if len(p.skipHosts) == 0 {
		return p.verified
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return p.verified
	}

	host := parsed.Host
	for _, skip := range p.skipHosts {
		if skip != "" && strings.Contains(host, skip) {
			if p.logger != nil {
				p.logger.Warn("disabling TLS certificate verification",
					"url", rawURL, "host", host, "matched", skip)
			}
			return p.unverified
		}
	}

	return p.verified
}

func (p *Policy) build() {
	roots, err := x509.SystemCertPool()
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("system cert pool unavailable, using defaults", "error", err)
		}
		roots = nil
	}

	p.verified = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: roots},
	}
	p.unverified = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}
}
