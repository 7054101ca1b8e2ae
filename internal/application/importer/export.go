package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
	"github.com/orgreport/backend/internal/infrastructure/persistence/reconcile"
)

// ResultExporter writes the outcome of an import run as CSV files, one per
// bucket: imported, not_imported and previous. File names carry the run's
// start timestamp so consecutive runs never overwrite each other.
type ResultExporter struct {
	dir string
}

// NewResultExporter creates an exporter writing into dir.
func NewResultExporter(dir string) *ResultExporter {
	return &ResultExporter{dir: dir}
}

// Export writes the three bucket files for the run. Empty buckets still
// produce a file with just the header row, so a missing file always means
// the run itself did not happen.
func (x *ResultExporter) Export(run *models.ImportRunModel, result *reconcile.Result) error {
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	stamp := run.StartedAt.UTC().Format("20060102T150405Z")
	buckets := []struct {
		name string
		rows []reconcile.Snapshot
	}{
		{"imported", result.Imported},
		{"not_imported", result.Failed},
		{"previous", result.Skipped},
	}
	for _, b := range buckets {
		path := filepath.Join(x.dir, fmt.Sprintf("%s_%s.csv", b.name, stamp))
		if err := writeBucket(path, b.rows); err != nil {
			return err
		}
	}
	return nil
}

func writeBucket(path string, rows []reconcile.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"table", "id", "reason"}); err != nil {
		return fmt.Errorf("failed to write result header: %w", err)
	}
	for _, snap := range rows {
		record := []string{snap.Table, snap.Entity.EntityID().String(), snap.Reason}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush result file: %w", err)
	}
	return nil
}
