package importer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/dedup"
	"github.com/orgreport/backend/internal/infrastructure/persistence"
	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
	"github.com/orgreport/backend/internal/infrastructure/persistence/reconcile"
)

func setupService(t *testing.T, hashes *dedup.HashLog, exporter *ResultExporter, maxBatch int) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.PersonModel{},
		&models.PositionModel{},
		&models.LocationModel{},
		&models.OrganizationModel{},
		&models.ReportModel{},
		&models.PeoplePositionModel{},
		&models.ReportPersonModel{},
		&models.ImportRunModel{},
	)
	require.NoError(t, err)

	database := &persistence.Database{DB: db}
	runs := persistence.NewGormImportRunRepository(db)
	return NewService(database, runs, hashes, exporter, maxBatch, nil), db
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("buckets entities and records the run", func(t *testing.T) {
		dir := t.TempDir()
		exporter := NewResultExporter(dir)
		svc, db := setupService(t, nil, exporter, 0)

		missing := uuid.New()
		entities := []models.Entity{
			&models.PersonModel{Name: "DMIN, D"},
			&models.PersonModel{Name: "ERINSON, E"},
			&models.PositionModel{BaseModel: models.BaseModel{ID: missing}, Name: "ghost"},
		}

		summary, err := svc.Import(ctx, entities, reconcile.NewRuleSet(), Options{Source: "test"})
		require.NoError(t, err)
		assert.Len(t, summary.Result.Imported, 2)
		assert.Len(t, summary.Result.Failed, 1)
		assert.Empty(t, summary.Result.Skipped)

		var run models.ImportRunModel
		require.NoError(t, db.Where("id = ?", summary.Run.ID).Take(&run).Error)
		assert.Equal(t, models.RunStatusCompleted, run.Status)
		assert.Equal(t, 3, run.TotalCount)
		assert.Equal(t, 2, run.ImportedCount)
		assert.Equal(t, 1, run.FailedCount)
		assert.Equal(t, "test", run.Source)
		assert.NotNil(t, run.CompletedAt)

		// the failed position was rolled back, the people committed
		var people, positions int64
		db.Model(&models.PersonModel{}).Count(&people)
		db.Model(&models.PositionModel{}).Count(&positions)
		assert.Equal(t, int64(2), people)
		assert.Equal(t, int64(0), positions)
	})

	t.Run("rejects oversized batches", func(t *testing.T) {
		svc, _ := setupService(t, nil, nil, 1)
		entities := []models.Entity{
			&models.PersonModel{Name: "A"},
			&models.PersonModel{Name: "B"},
		}
		_, err := svc.Import(ctx, entities, reconcile.NewRuleSet(), Options{Source: "test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds the limit")
	})
}

func TestService_Import_RememberPrevious(t *testing.T) {
	ctx := context.Background()
	logPath := filepath.Join(t.TempDir(), "hashes.txt")
	hashes, err := dedup.Open(logPath)
	require.NoError(t, err)
	defer hashes.Close()

	svc, _ := setupService(t, hashes, nil, 0)
	opts := Options{Source: "test", RememberPrevious: true}

	first, err := svc.Import(ctx, []models.Entity{&models.PersonModel{Name: "DMIN, D"}}, reconcile.NewRuleSet(), opts)
	require.NoError(t, err)
	require.Len(t, first.Result.Imported, 1)
	assert.Equal(t, 1, hashes.Len())

	// same content, fresh object: the hash log flags it as already done
	second, err := svc.Import(ctx, []models.Entity{&models.PersonModel{Name: "DMIN, D"}}, reconcile.NewRuleSet(), opts)
	require.NoError(t, err)
	assert.Empty(t, second.Result.Imported)
	require.Len(t, second.Result.Skipped, 1)
	assert.Equal(t, "content imported previously", second.Result.Skipped[0].Reason)
	assert.Equal(t, 1, second.Run.SkippedCount)

	// different content still goes through
	third, err := svc.Import(ctx, []models.Entity{&models.PersonModel{Name: "ERINSON, E"}}, reconcile.NewRuleSet(), opts)
	require.NoError(t, err)
	assert.Len(t, third.Result.Imported, 1)
	assert.Equal(t, 2, hashes.Len())
}

func TestService_History(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, nil, nil, 0)

	for i := 0; i < 3; i++ {
		_, err := svc.Import(ctx, []models.Entity{&models.PersonModel{Name: "P"}}, reconcile.NewRuleSet(), Options{Source: "test"})
		require.NoError(t, err)
	}

	runs, err := svc.History(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	got, err := svc.Run(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, got.ID)
}

func TestResultExporter(t *testing.T) {
	dir := t.TempDir()
	exporter := NewResultExporter(filepath.Join(dir, "results"))

	person := &models.PersonModel{BaseModel: models.BaseModel{ID: uuid.New()}, Name: "DMIN, D"}
	run := &models.ImportRunModel{}
	run.ID = uuid.New()
	result := &reconcile.Result{
		Imported: []reconcile.Snapshot{{Table: models.TablePeople, Entity: person}},
	}
	result.AddSkipped(&models.PersonModel{BaseModel: models.BaseModel{ID: uuid.New()}, Name: "X"}, "content imported previously")

	require.NoError(t, exporter.Export(run, result))

	stamp := run.StartedAt.UTC().Format("20060102T150405Z")
	imported := filepath.Join(dir, "results", "imported_"+stamp+".csv")
	file, err := os.Open(imported)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"table", "id", "reason"}, records[0])
	assert.Equal(t, []string{models.TablePeople, person.ID.String(), ""}, records[1])

	// empty buckets still produce a header-only file
	failed := filepath.Join(dir, "results", "not_imported_"+stamp+".csv")
	_, err = os.Stat(failed)
	require.NoError(t, err)

	previous := filepath.Join(dir, "results", "previous_"+stamp+".csv")
	pf, err := os.Open(previous)
	require.NoError(t, err)
	defer pf.Close()
	prevRecords, err := csv.NewReader(pf).ReadAll()
	require.NoError(t, err)
	require.Len(t, prevRecords, 2)
	assert.Equal(t, "content imported previously", prevRecords[1][2])
}
