// Command importer loads a CSV file of entities and runs it through the
// reconciliation pipeline, printing a summary of the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/orgreport/backend/internal/application/importer"
	"github.com/orgreport/backend/internal/infrastructure/config"
	"github.com/orgreport/backend/internal/infrastructure/dedup"
	csvimport "github.com/orgreport/backend/internal/infrastructure/import"
	"github.com/orgreport/backend/internal/infrastructure/logger"
	"github.com/orgreport/backend/internal/infrastructure/persistence"
	"github.com/orgreport/backend/internal/infrastructure/persistence/reconcile"
)

func main() {
	var (
		table    = flag.String("table", "", "target table (people, positions, locations, organizations, reports)")
		file     = flag.String("file", "", "path of the CSV file to import")
		rules    = flag.String("rules", "", "match rules, e.g. \"people:name;positions:code,name\"")
		remember = flag.Bool("remember", false, "skip rows whose content was imported before")
	)
	flag.Parse()

	if *table == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if !csvimport.SupportedTable(*table) {
		fmt.Fprintf(os.Stderr, "unsupported table %q\n", *table)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(cfg, log, *table, *file, *rules, *remember); err != nil {
		log.Error("import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, table, file, ruleSpec string, remember bool) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	parser, err := csvimport.NewCSVParser(f)
	if err != nil {
		return fmt.Errorf("failed to read CSV: %w", err)
	}
	if err := parser.ParseHeader(); err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return fmt.Errorf("failed to read CSV rows: %w", err)
	}

	entities, rowErrs, err := csvimport.BuildEntities(table, rows)
	if err != nil {
		return err
	}
	if rowErrs.HasErrors() {
		fmt.Fprintln(os.Stderr, rowErrs.String())
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	hashes, err := dedup.Open(cfg.Import.HashLogPath)
	if err != nil {
		return fmt.Errorf("failed to open hash log: %w", err)
	}
	defer hashes.Close()

	ruleSet, err := parseRules(ruleSpec)
	if err != nil {
		return err
	}

	runRepo := persistence.NewGormImportRunRepository(db.DB)
	exporter := importer.NewResultExporter(cfg.Import.ResultDir)
	service := importer.NewService(db, runRepo, hashes, exporter, cfg.Import.MaxBatchSize, log)

	summary, err := service.Import(context.Background(), entities, ruleSet, importer.Options{
		Source:           "csv:" + filepath.Base(file),
		RememberPrevious: remember,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d imported, %d failed, %d skipped (of %d rows, %d rejected while parsing)\n",
		summary.Run.ID,
		len(summary.Result.Imported),
		len(summary.Result.Failed),
		len(summary.Result.Skipped),
		len(rows),
		rowErrs.Count(),
	)
	for _, snap := range summary.Result.Failed {
		fmt.Printf("  failed %s %s: %s\n", snap.Table, snap.Entity.EntityID(), snap.Reason)
	}
	return nil
}

// parseRules parses "table:col1,col2;table2:col" into a rule set.
func parseRules(spec string) (*reconcile.RuleSet, error) {
	rules := reconcile.NewRuleSet()
	if spec == "" {
		return rules, nil
	}
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		table, cols, ok := strings.Cut(part, ":")
		if !ok || cols == "" {
			return nil, fmt.Errorf("malformed rule %q, expected table:col1,col2", part)
		}
		columns := strings.Split(cols, ",")
		for i := range columns {
			columns[i] = strings.TrimSpace(columns[i])
		}
		rules.Add(strings.TrimSpace(table), columns...)
	}
	return rules, nil
}
