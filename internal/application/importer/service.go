// Package importer orchestrates batch imports: dedup against the hash log,
// reconciliation inside a single transaction, run history, and result export.
package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/dedup"
	"github.com/orgreport/backend/internal/infrastructure/persistence"
	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
	"github.com/orgreport/backend/internal/infrastructure/persistence/reconcile"
)

// Options controls a single import run.
type Options struct {
	// Source labels the run in history (e.g. "api", "csv:people.csv").
	Source string
	// RememberPrevious skips entities whose content hash is already in the
	// hash log and records the hashes of newly imported entities.
	RememberPrevious bool
}

// Summary is the outcome of one import run.
type Summary struct {
	Run    *models.ImportRunModel `json:"run"`
	Result *reconcile.Result      `json:"result"`
}

// Service runs import batches end to end. The batch itself is transactional;
// the run history row and the hash log are maintained outside the batch
// transaction so they survive a failed batch.
type Service struct {
	db       *persistence.Database
	runs     *persistence.GormImportRunRepository
	hashes   *dedup.HashLog  // optional
	exporter *ResultExporter // optional
	maxBatch int
	log      *zap.Logger
}

// NewService creates an import service. hashes and exporter may be nil, in
// which case dedup and CSV result export are disabled.
func NewService(
	db *persistence.Database,
	runs *persistence.GormImportRunRepository,
	hashes *dedup.HashLog,
	exporter *ResultExporter,
	maxBatch int,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		runs:     runs,
		hashes:   hashes,
		exporter: exporter,
		maxBatch: maxBatch,
		log:      log,
	}
}

// Import processes a batch of entities against the given match rules. Every
// entity is reconciled in its own savepoint inside one shared transaction;
// a failed entity is rolled back and reported without aborting the rest.
func (s *Service) Import(ctx context.Context, entities []models.Entity, rules *reconcile.RuleSet, opts Options) (*Summary, error) {
	if s.maxBatch > 0 && len(entities) > s.maxBatch {
		return nil, fmt.Errorf("batch of %d entities exceeds the limit of %d", len(entities), s.maxBatch)
	}

	run, err := s.runs.Begin(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to start import run: %w", err)
	}

	result := &reconcile.Result{}
	pending := s.filterPrevious(entities, opts, result)

	reconciler := reconcile.NewReconciler(rules, s.log)
	driver := reconcile.NewDriver(reconciler, s.log)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		batch := driver.Run(tx.WithContext(ctx), pending)
		result.Imported = batch.Imported
		result.Failed = batch.Failed
		return nil
	})
	if err != nil {
		if failErr := s.runs.Fail(ctx, run, err); failErr != nil {
			s.log.Error("failed to mark import run as failed", zap.Error(failErr))
		}
		return nil, fmt.Errorf("import batch failed: %w", err)
	}

	s.rememberImported(result, opts)

	if err := s.runs.Complete(ctx, run, len(entities), len(result.Imported), len(result.Failed), len(result.Skipped)); err != nil {
		s.log.Error("failed to record import run outcome", zap.Error(err))
	}

	if s.exporter != nil {
		if err := s.exporter.Export(run, result); err != nil {
			s.log.Error("failed to export import results", zap.Error(err))
		}
	}

	s.log.Info("import run finished",
		zap.String("runId", run.ID.String()),
		zap.String("source", opts.Source),
		zap.Int("total", len(entities)),
		zap.Int("imported", len(result.Imported)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return &Summary{Run: run, Result: result}, nil
}

// filterPrevious removes entities whose content hash is already recorded,
// booking them as skipped. Entities that cannot be hashed pass through and
// fail during reconciliation with a proper typed error.
func (s *Service) filterPrevious(entities []models.Entity, opts Options, result *reconcile.Result) []models.Entity {
	if !opts.RememberPrevious || s.hashes == nil {
		return entities
	}
	pending := make([]models.Entity, 0, len(entities))
	for _, e := range entities {
		hash, err := reconcile.ContentHash(e)
		if err == nil && s.hashes.Contains(hash) {
			result.AddSkipped(e, "content imported previously")
			continue
		}
		pending = append(pending, e)
	}
	return pending
}

// rememberImported appends the content hashes of successfully imported
// entities to the hash log after the batch has committed.
func (s *Service) rememberImported(result *reconcile.Result, opts Options) {
	if !opts.RememberPrevious || s.hashes == nil {
		return
	}
	hashes := make([]string, 0, len(result.Imported))
	for _, snap := range result.Imported {
		hash, err := reconcile.ContentHash(snap.Entity)
		if err != nil {
			continue
		}
		hashes = append(hashes, hash)
	}
	if err := s.hashes.Append(hashes...); err != nil {
		s.log.Error("failed to record imported hashes", zap.Error(err))
	}
}

// History returns the most recent import runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]models.ImportRunModel, error) {
	return s.runs.FindRecent(ctx, limit)
}

// Run returns one import run by id.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (*models.ImportRunModel, error) {
	return s.runs.FindByID(ctx, id)
}
