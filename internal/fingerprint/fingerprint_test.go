package fingerprint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depradar/internal/config"
	"depradar/internal/domain"
)

type stubEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) Model() string { return "stub" }

func writeManifest(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "go.mod")
	content := `module example.com/service

go 1.25

require (
	github.com/jackc/pgx/v5 v5.7.0
	github.com/redis/go-redis/v9 v9.8.0
)

require golang.org/x/text v0.21.0 // indirect
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestBuilderBuild(t *testing.T) {
	t.Parallel()

	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	builder := NewBuilder(embedder, nil)

	fp, err := builder.Build(context.Background(), config.ProjectConfig{
		Narrative: "a payments backend",
		Manifest:  writeManifest(t),
		Keywords:  []string{"kafka", "  ", "kafka"},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	want := []string{
		"github.com/jackc/pgx/v5@v5.7.0",
		"github.com/redis/go-redis/v9@v9.8.0",
		"kafka",
	}
	if len(fp.Dependencies) != len(want) {
		t.Fatalf("unexpected dependencies: %v", fp.Dependencies)
	}
	for i, dep := range want {
		if fp.Dependencies[i] != dep {
			t.Fatalf("dependency %d = %q, want %q", i, fp.Dependencies[i], dep)
		}
	}

	if len(fp.Embedding) != 2 {
		t.Fatalf("embedding not attached: %v", fp.Embedding)
	}

	if len(embedder.texts) != 1 || !strings.Contains(embedder.texts[0], "Project focus: a payments backend.") {
		t.Fatalf("unexpected embedded text: %v", embedder.texts)
	}
	if strings.Contains(embedder.texts[0], "golang.org/x/text") {
		t.Fatal("indirect requirements should not join the fingerprint")
	}
}

func TestBuilderBadManifestIsSkipped(t *testing.T) {
	t.Parallel()

	embedder := &stubEmbedder{vector: []float32{1}}
	builder := NewBuilder(embedder, nil)

	fp, err := builder.Build(context.Background(), config.ProjectConfig{
		Narrative: "a service",
		Manifest:  filepath.Join(t.TempDir(), "missing", "go.mod"),
		Keywords:  []string{"grpc"},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(fp.Dependencies) != 1 || fp.Dependencies[0] != "grpc" {
		t.Fatalf("keywords should survive a broken manifest: %v", fp.Dependencies)
	}
}

func TestBuilderEmbedFailure(t *testing.T) {
	t.Parallel()

	embedder := &stubEmbedder{err: errors.New("model down")}
	builder := NewBuilder(embedder, nil)

	fp, err := builder.Build(context.Background(), config.ProjectConfig{
		Narrative: "a service",
		Keywords:  []string{"grpc"},
	})
	if err == nil {
		t.Fatal("expected the embedding error to surface")
	}
	if len(fp.Embedding) != 0 {
		t.Fatalf("failed embedding should stay empty, got %v", fp.Embedding)
	}
	if fp.Narrative != "a service" || len(fp.Dependencies) != 1 {
		t.Fatalf("textual fingerprint should still be returned: %+v", fp)
	}
}

func TestContextText(t *testing.T) {
	t.Parallel()

	got := ContextText(domain.Fingerprint{
		Narrative:    "an api gateway",
		Dependencies: []string{"grpc", "redis"},
	})
	want := "Project focus: an api gateway. Key technologies and libraries used: grpc redis"
	if got != want {
		t.Fatalf("unexpected context text: %q", got)
	}
}
