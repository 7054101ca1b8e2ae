package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	)
	require.NoError(t, err)

	return db
}

func openRowsOfPerson(t *testing.T, db *gorm.DB, personID uuid.UUID) []models.PeoplePositionModel {
	t.Helper()
	var rows []models.PeoplePositionModel
	err := db.Where(`"personId" = ? AND "endedAt" IS NULL`, personID).Find(&rows).Error
	require.NoError(t, err)
	return rows
}

func openRowsOfPosition(t *testing.T, db *gorm.DB, positionID uuid.UUID) []models.PeoplePositionModel {
	t.Helper()
	var rows []models.PeoplePositionModel
	err := db.Where(`"positionId" = ? AND "endedAt" IS NULL`, positionID).Find(&rows).Error
	require.NoError(t, err)
	return rows
}

func openPairRows(t *testing.T, db *gorm.DB, personID, positionID uuid.UUID) []models.PeoplePositionModel {
	t.Helper()
	var rows []models.PeoplePositionModel
	err := db.Where(`"personId" = ? AND "positionId" = ? AND "endedAt" IS NULL`, personID, positionID).
		Find(&rows).Error
	require.NoError(t, err)
	return rows
}

// seedPair inserts a person, a position holding that person, and the open
// pairing row, bypassing the reconciler.
func seedPair(t *testing.T, db *gorm.DB, personName, positionName string, at time.Time) (uuid.UUID, uuid.UUID) {
	t.Helper()
	personID := uuid.New()
	positionID := uuid.New()

	person := models.PersonModel{
		BaseModel: models.BaseModel{ID: personID, CreatedAt: at, UpdatedAt: at},
		Name:      personName,
		Role:      1,
	}
	require.NoError(t, db.Create(&person).Error)

	position := models.PositionModel{
		BaseModel:       models.BaseModel{ID: positionID, CreatedAt: at, UpdatedAt: at},
		Name:            positionName,
		CurrentPersonID: &personID,
	}
	require.NoError(t, db.Create(&position).Error)

	pair := models.PeoplePositionModel{
		CreatedAt:  at,
		PersonID:   &personID,
		PositionID: &positionID,
	}
	require.NoError(t, db.Create(&pair).Error)

	return personID, positionID
}
