package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// ErrRunNotFound is returned when an import run does not exist.
var ErrRunNotFound = errors.New("import run not found")

// GormImportRunRepository persists import run records using GORM. Runs are
// written outside the batch transaction so the audit row survives a failed
// batch.
type GormImportRunRepository struct {
	db *gorm.DB
}

// NewGormImportRunRepository creates a new GormImportRunRepository
func NewGormImportRunRepository(db *gorm.DB) *GormImportRunRepository {
	return &GormImportRunRepository{db: db}
}

// Begin creates a run record in the running state and returns it.
func (r *GormImportRunRepository) Begin(ctx context.Context, source string) (*models.ImportRunModel, error) {
	now := time.Now()
	run := models.ImportRunModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Source:    source,
		Status:    models.RunStatusRunning,
		StartedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Complete marks the run as finished and stores the batch counters.
func (r *GormImportRunRepository) Complete(ctx context.Context, run *models.ImportRunModel, total, imported, failed, skipped int) error {
	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.TotalCount = total
	run.ImportedCount = imported
	run.FailedCount = failed
	run.SkippedCount = skipped
	run.CompletedAt = &now
	run.UpdatedAt = now
	return r.db.WithContext(ctx).Save(run).Error
}

// Fail marks the run as failed with the given cause.
func (r *GormImportRunRepository) Fail(ctx context.Context, run *models.ImportRunModel, cause error) error {
	now := time.Now()
	run.Status = models.RunStatusFailed
	if cause != nil {
		run.Error = cause.Error()
	}
	run.CompletedAt = &now
	run.UpdatedAt = now
	return r.db.WithContext(ctx).Save(run).Error
}

// FindByID finds an import run by ID
func (r *GormImportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ImportRunModel, error) {
	var run models.ImportRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// FindRecent returns the most recent runs, newest first.
func (r *GormImportRunRepository) FindRecent(ctx context.Context, limit int) ([]models.ImportRunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.ImportRunModel
	if err := r.db.WithContext(ctx).
		Order(`"startedAt" DESC`).
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
