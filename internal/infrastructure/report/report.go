package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"depradar/internal/domain"
	"depradar/internal/ports"
)

// FileWriter renders the final analysis batch to a timestamped CSV or JSON
// file, highest criticality first.
type FileWriter struct {
	dir    string
	format string
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.ReportWriter = (*FileWriter)(nil)

// NewFileWriter wires the output directory and format ("csv" or "json").
func NewFileWriter(dir, format string, logger *slog.Logger) *FileWriter {
	return &FileWriter{dir: dir, format: format, logger: logger, now: time.Now}
}

// Write sorts and persists the records. An empty batch writes nothing.
func (w *FileWriter) Write(records []domain.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	sorted := sortByCriticality(records)
	path := filepath.Join(w.dir, fmt.Sprintf("depradar_report_%s.%s", w.now().Format("20060102_150405"), w.format))

	var err error
	switch w.format {
	case "csv":
		err = w.writeCSV(path, sorted)
	case "json":
		err = w.writeJSON(path, sorted)
	default:
		return fmt.Errorf("unknown report format %q (available: csv, json)", w.format)
	}
	if err != nil {
		return err
	}

	if w.logger != nil {
		w.logger.Info("report written", "path", path, "records", len(sorted))
	}
	return nil
}

// sortByCriticality orders highest score first; records without a score sink
// to the end. The input slice is left untouched.
func sortByCriticality(records []domain.AnalysisRecord) []domain.AnalysisRecord {
	sorted := make([]domain.AnalysisRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Analysis.CriticalityScore, sorted[j].Analysis.CriticalityScore
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Value > b.Value
	})
	return sorted
}

func (w *FileWriter) writeCSV(path string, records []domain.AnalysisRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"Title", "Link", "Criticality", "Justification", "Summary", "Reported_At_UTC"}); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	reportedAt := w.now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		row := []string{
			rec.Title,
			rec.Link,
			rec.Analysis.CriticalityScore.String(),
			rec.Analysis.Justification,
			rec.Analysis.Summary,
			reportedAt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (w *FileWriter) writeJSON(path string, records []domain.AnalysisRecord) error {
	type entry struct {
		Title    string          `json:"title"`
		Link     string          `json:"link"`
		Analysis domain.Analysis `json:"analysis"`
	}

	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entry{Title: rec.Title, Link: rec.Link, Analysis: rec.Analysis})
	}

	payload := map[string]any{
		"report_generated_at_utc": w.now().UTC().Format(time.RFC3339),
		"article_count":           len(entries),
		"analyses":                entries,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
