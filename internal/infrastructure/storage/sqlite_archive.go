package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"depradar/internal/domain"
	"depradar/internal/ports"
)

const schema = `
	CREATE TABLE IF NOT EXISTS articles (
		link              TEXT PRIMARY KEY,
		title             TEXT NOT NULL,
		criticality_score INTEGER,
		recorded_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

// SQLiteArchive is the durable seen-set. Rows are append-only from the
// pipeline's perspective; link is the sole uniqueness constraint.
type SQLiteArchive struct {
	db         *sql.DB
	failClosed bool
	logger     *slog.Logger
}

var _ ports.Archive = (*SQLiteArchive)(nil)

// Open creates the database file (and parent directory) if needed and
// initializes the schema.
func Open(path string, failClosed bool, logger *slog.Logger) (*SQLiteArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize archive schema: %w", err)
	}

	return &SQLiteArchive{db: db, failClosed: failClosed, logger: logger}, nil
}

// Close releases the database handle.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// FilterNew returns only the items whose link is absent from the archive,
// preserving input order. An empty input returns empty without touching
// storage. A read failure fails open (all items pass, logged) unless the
// archive was opened fail-closed.
func (a *SQLiteArchive) FilterNew(ctx context.Context, items []domain.CandidateItem) ([]domain.CandidateItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	links := make([]string, 0, len(items))
	for _, item := range items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}

	query, args, err := sq.Select("link").From("articles").Where(sq.Eq{"link": links}).ToSql()
	if err != nil {
		return a.readFailure(items, fmt.Errorf("build archive query: %w", err))
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return a.readFailure(items, fmt.Errorf("query archive: %w", err))
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return a.readFailure(items, fmt.Errorf("scan archive row: %w", err))
		}
		seen[link] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return a.readFailure(items, fmt.Errorf("iterate archive rows: %w", err))
	}

	fresh := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Link]; !ok {
			fresh = append(fresh, item)
		}
	}

	if a.logger != nil {
		a.logger.Info("archive check", "candidates", len(items), "new", len(fresh))
	}
	return fresh, nil
}

// readFailure applies the fail-open policy: favor reprocessing over silently
// losing candidates.
func (a *SQLiteArchive) readFailure(items []domain.CandidateItem, err error) ([]domain.CandidateItem, error) {
	if a.failClosed {
		return nil, err
	}
	if a.logger != nil {
		a.logger.Error("archive read failed, treating all candidates as new", "error", err)
	}
	return items, nil
}

// Record inserts each accepted record. Pre-existing links are silent no-ops;
// an absent criticality score persists as NULL.
func (a *SQLiteArchive) Record(ctx context.Context, records []domain.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	builder := sq.Insert("articles").
		Options("OR IGNORE").
		Columns("link", "title", "criticality_score")

	for _, rec := range records {
		var score any
		if rec.Analysis.CriticalityScore.Valid {
			score = rec.Analysis.CriticalityScore.Value
		}
		builder = builder.Values(rec.Link, rec.Title, score)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build archive insert: %w", err)
	}

	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}

	if a.logger != nil {
		inserted, _ := res.RowsAffected()
		a.logger.Info("archived analyses", "inserted", inserted, "records", len(records))
	}
	return nil
}
