package usecase

import (
	"context"
	"log/slog"

	"depradar/internal/domain"
	"depradar/internal/ports"
)

// Pipeline runs one full scan cycle: gather candidates, score them against
// the project fingerprint, drop items already archived, analyze the
// survivors, then report and record what was accepted.
type Pipeline struct {
	source   ports.ItemSource
	filter   *RelevanceFilter
	archive  ports.Archive
	engine   *AnalysisEngine
	reporter ports.ReportWriter
	logger   *slog.Logger
}

func NewPipeline(
	source ports.ItemSource,
	filter *RelevanceFilter,
	archive ports.Archive,
	engine *AnalysisEngine,
	reporter ports.ReportWriter,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		source:   source,
		filter:   filter,
		archive:  archive,
		engine:   engine,
		reporter: reporter,
		logger:   logger,
	}
}

// Run executes one cycle. The cycle itself only fails on an unrecoverable
// early-stage error; downstream report and archive failures are logged and
// the cycle completes.
func (p *Pipeline) Run(ctx context.Context, fp domain.Fingerprint) error {
	candidates, err := p.source.FetchRecent(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("candidates gathered", "count", len(candidates))

	relevant := p.filter.Filter(ctx, candidates, fp)
	p.logger.Info("relevance filter applied", "kept", len(relevant), "dropped", len(candidates)-len(relevant))
	if len(relevant) == 0 {
		p.logger.Info("nothing relevant this cycle")
		return nil
	}

	fresh, err := p.archive.FilterNew(ctx, relevant)
	if err != nil {
		p.logger.Error("archive lookup failed, aborting cycle", "error", err)
		return err
	}
	p.logger.Info("archive exclusion applied", "new", len(fresh), "previously_seen", len(relevant)-len(fresh))
	if len(fresh) == 0 {
		p.logger.Info("all relevant items already seen")
		return nil
	}

	records := p.engine.Run(ctx, fresh)
	if len(records) == 0 {
		p.logger.Info("no items survived deep analysis")
		return nil
	}

	if err := p.reporter.Write(records); err != nil {
		p.logger.Error("report writing failed", "error", err)
	}

	if err := p.archive.Record(ctx, records); err != nil {
		p.logger.Error("archive recording failed, items may be re-analyzed next cycle", "error", err)
	}

	p.logger.Info("cycle complete",
		"candidates", len(candidates),
		"relevant", len(relevant),
		"new", len(fresh),
		"reported", len(records))
	return nil
}
