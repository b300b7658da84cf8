package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"depradar/internal/config"
	"depradar/internal/domain"
	"depradar/internal/fingerprint"
	"depradar/internal/infrastructure/embed"
	"depradar/internal/infrastructure/extract"
	"depradar/internal/infrastructure/llm"
	"depradar/internal/infrastructure/report"
	"depradar/internal/infrastructure/schedule"
	"depradar/internal/infrastructure/source"
	"depradar/internal/infrastructure/storage"
	"depradar/internal/infrastructure/web"
	"depradar/internal/logging"
	"depradar/internal/ports"
	"depradar/internal/scanner"
	"depradar/internal/transport"
	"depradar/internal/usecase"
)

// App owns the composed pipeline and the resources behind it.
type App struct {
	cfg       config.Config
	logger    *slog.Logger
	source    ports.ItemSource
	filter    *usecase.RelevanceFilter
	archive   *storage.SQLiteArchive
	fetcher   ports.PageFetcher
	extractor ports.Extractor
	reporter  ports.ReportWriter
	builder   *fingerprint.Builder
}

// New wires all adapters from the configuration. The caller must Close the
// returned App to release the archive store.
func New(cfg config.Config) (*App, error) {
	logger := logging.New(cfg.Logging.Level)
	policy := transport.NewPolicy(cfg.Security.SkipTLSVerify, logger)

	registry := scanner.NewRegistry()
	registry.Register(source.NewFeedScanner(policy, cfg.Scout.Timeout(), cfg.Scout.UserAgent, logger))
	registry.Register(source.NewReleaseScanner(policy, cfg.Scout.Timeout(), cfg.Scout.UserAgent, cfg.Scout.GitHubToken, logger))

	sources := make([]scanner.Source, 0, len(cfg.Sources.Feeds)+len(cfg.Sources.Releases))
	for _, url := range cfg.Sources.Feeds {
		sources = append(sources, scanner.Source{Locator: url, Kind: domain.KindFeed})
	}
	for _, repo := range cfg.Sources.Releases {
		sources = append(sources, scanner.Source{Locator: repo, Kind: domain.KindRelease})
	}

	cache := embed.NewCache(func(model string) ports.Embedder {
		return embed.NewOllamaClient(cfg.Embed.Endpoint, model)
	})

	archive, err := storage.Open(cfg.Database.Path, cfg.Analysis.FailClosed, logger)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		source: source.NewAggregator(registry, sources, cfg.Analysis.Lookback(), logger),
		filter: usecase.NewRelevanceFilter(
			cache.Engine,
			cfg.Embed.Model,
			cfg.Analysis.SimilarityThreshold,
			cfg.Analysis.FailClosed,
			logger,
		),
		archive:   archive,
		fetcher:   web.NewPageFetcher(policy, cfg.Analyst.Timeout(), cfg.Analyst.UserAgent),
		extractor: extract.ArticleExtractor{},
		reporter:  report.NewFileWriter(cfg.Report.Dir, cfg.Report.Format, logger),
		builder:   fingerprint.NewBuilder(cache.Engine(cfg.Embed.Model), logger),
	}, nil
}

// Logger exposes the application logger for the command layer.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// RunOnce executes a single scan cycle. The project fingerprint is rebuilt
// each cycle so manifest and keyword edits take effect without a restart.
func (a *App) RunOnce(ctx context.Context) error {
	fp, err := a.builder.Build(ctx, a.cfg.Project)
	if err != nil {
		a.logger.Error("fingerprint build incomplete", "error", err)
	}

	analyst := llm.NewChatAnalyst(a.cfg.LLM, fingerprint.ContextText(fp))
	engine := usecase.NewAnalysisEngine(a.fetcher, a.extractor, analyst, a.cfg.Analyst.Concurrency, a.logger)
	pipeline := usecase.NewPipeline(a.source, a.filter, a.archive, engine, a.reporter, a.logger)

	return pipeline.Run(ctx, fp)
}

// RunEvery executes cycles on a fixed interval until the context is
// cancelled. The first cycle starts immediately.
func (a *App) RunEvery(ctx context.Context, every time.Duration) error {
	runner := schedule.NewIntervalRunner(every)
	err := runner.Start(ctx, func(ctx context.Context) {
		if err := a.RunOnce(ctx); err != nil {
			a.logger.Error("scan cycle failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return runner.Stop(context.Background())
}

// Close releases resources held by the composed adapters.
func (a *App) Close() error {
	return a.archive.Close()
}
