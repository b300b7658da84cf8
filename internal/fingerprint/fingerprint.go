package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"depradar/internal/config"
	"depradar/internal/domain"
	"depradar/internal/ports"
)

// Builder composes the project fingerprint: narrative text, dependency
// identifiers, and one embedding of the whole. Built once per run; the
// pipeline treats the result as read-only.
type Builder struct {
	embedder ports.Embedder
	logger   *slog.Logger
}

// NewBuilder wires the embedding engine.
func NewBuilder(embedder ports.Embedder, logger *slog.Logger) *Builder {
	return &Builder{embedder: embedder, logger: logger}
}

// Build gathers dependencies from the manual keywords and the optional go.mod
// manifest, then embeds the composed context. A failed embedding still
// returns the textual fingerprint so callers can apply their failure policy.
func (b *Builder) Build(ctx context.Context, cfg config.ProjectConfig) (domain.Fingerprint, error) {
	deps := make(map[string]struct{})
	for _, kw := range cfg.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			deps[kw] = struct{}{}
		}
	}

	if cfg.Manifest != "" {
		parsed, err := parseManifest(cfg.Manifest)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("skipping project manifest", "path", cfg.Manifest, "error", err)
			}
		} else {
			for _, dep := range parsed {
				deps[dep] = struct{}{}
			}
		}
	}

	fp := domain.Fingerprint{
		Narrative:    cfg.Narrative,
		Dependencies: sortedKeys(deps),
	}

	embedding, err := b.embedder.Embed(ctx, ContextText(fp))
	if err != nil {
		return fp, fmt.Errorf("embed project context: %w", err)
	}
	fp.Embedding = embedding

	if b.logger != nil {
		b.logger.Info("project fingerprint built",
			"dependencies", len(fp.Dependencies), "dimensions", len(fp.Embedding))
	}
	return fp, nil
}

// ContextText composes the text that gets embedded and primes the analyst's
// system prompt.
func ContextText(fp domain.Fingerprint) string {
	return fmt.Sprintf("Project focus: %s. Key technologies and libraries used: %s",
		fp.Narrative, strings.Join(fp.Dependencies, " "))
}

// parseManifest extracts "path@version" identifiers from a go.mod file.
func parseManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	mod, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	deps := make([]string, 0, len(mod.Require))
	for _, req := range mod.Require {
		if req.Indirect {
			continue
		}
		deps = append(deps, req.Mod.Path+"@"+req.Mod.Version)
	}
	return deps, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
