package reconcile

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// closeOffset is subtracted from the reconciliation instant when a row is
// closed, so a closed row sorts strictly before the replacement opened in the
// same reconciliation even though both share the same logical "now".
const closeOffset = time.Second

// Ledger is the append/soft-close primitive over the peoplePositions history
// table. Every state transition is expressed as "close zero or more open
// rows, open one or two new rows"; rows are never deleted.
type Ledger struct {
	log *zap.Logger
}

// NewLedger creates a ledger.
func NewLedger(log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{log: log}
}

// Open appends a new open assignment row. Either side may be nil, making the
// row a placeholder for the populated side.
func (l *Ledger) Open(tx *gorm.DB, now time.Time, personID, positionID *uuid.UUID) error {
	row := models.PeoplePositionModel{
		CreatedAt:  now,
		PersonID:   personID,
		PositionID: positionID,
	}
	if err := tx.Create(&row).Error; err != nil {
		return NewPersistenceError(models.TablePeoplePositions, uuid.Nil, err)
	}
	return nil
}

// OpenUnassignedPerson appends the "person currently holds no position"
// placeholder. Every person gets one at creation time so the ledger has a
// complete record from the person's first appearance.
func (l *Ledger) OpenUnassignedPerson(tx *gorm.DB, now time.Time, personID uuid.UUID) error {
	return l.Open(tx, now, &personID, nil)
}

// Close stamps the row's endedAt just before now, preserving strict ordering
// against rows opened at now. The row itself is identified by its full
// column triple since the table has no surrogate key.
func (l *Ledger) Close(tx *gorm.DB, row *models.PeoplePositionModel, now time.Time) error {
	endedAt := now.Add(-closeOffset)
	res := matchRow(tx, row).
		Where(`"endedAt" IS NULL`).
		Update("endedAt", endedAt)
	if res.Error != nil {
		return NewPersistenceError(models.TablePeoplePositions, uuid.Nil, res.Error)
	}
	row.EndedAt = &endedAt
	return nil
}

// CloseCurrentPositionOfPerson closes the person's open assignment unless it
// already points at keep. When the closed row was a real pairing, the freed
// position receives a position-only placeholder and its currentPersonId is
// cleared.
func (l *Ledger) CloseCurrentPositionOfPerson(tx *gorm.DB, now time.Time, personID uuid.UUID, keep *uuid.UUID) error {
	row, err := l.openRowOfPerson(tx, personID)
	if err != nil || row == nil {
		return err
	}
	if row.PositionID != nil && keep != nil && *row.PositionID == *keep {
		return nil
	}
	if err := l.Close(tx, row, now); err != nil {
		return err
	}
	if row.PositionID == nil {
		return nil
	}
	if err := tx.Table(models.TablePositions).
		Where("id = ?", *row.PositionID).
		Update("currentPersonId", nil).Error; err != nil {
		return NewPersistenceError(models.TablePositions, *row.PositionID, err)
	}
	return l.Open(tx, now, nil, row.PositionID)
}

// CloseCurrentPersonOfPosition is the symmetric operation: it closes the
// position's open assignment unless it already points at keep, giving the
// freed person a person-only placeholder.
func (l *Ledger) CloseCurrentPersonOfPosition(tx *gorm.DB, now time.Time, positionID uuid.UUID, keep *uuid.UUID) error {
	row, err := l.openRowOfPosition(tx, positionID)
	if err != nil || row == nil {
		return err
	}
	if row.PersonID != nil && keep != nil && *row.PersonID == *keep {
		return nil
	}
	if err := l.Close(tx, row, now); err != nil {
		return err
	}
	if row.PersonID == nil {
		return nil
	}
	return l.Open(tx, now, row.PersonID, nil)
}

// Pair opens the assignment row linking person and position. Conflicting
// open rows must already be closed by the caller; Pair itself only checks
// idempotence: an identical open pairing makes it a no-op.
func (l *Ledger) Pair(tx *gorm.DB, now time.Time, personID, positionID uuid.UUID) error {
	var existing models.PeoplePositionModel
	err := tx.
		Where(`"personId" = ? AND "positionId" = ? AND "endedAt" IS NULL`, personID, positionID).
		Take(&existing).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return l.Open(tx, now, &personID, &positionID)
	default:
		return NewPersistenceError(models.TablePeoplePositions, uuid.Nil, err)
	}
}

// openRowOfPerson fetches the single open row with personId = personID.
// The at-most-one-open invariant makes Take sufficient.
func (l *Ledger) openRowOfPerson(tx *gorm.DB, personID uuid.UUID) (*models.PeoplePositionModel, error) {
	var row models.PeoplePositionModel
	err := tx.
		Where(`"personId" = ? AND "endedAt" IS NULL`, personID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewPersistenceError(models.TablePeoplePositions, personID, err)
	}
	return &row, nil
}

func (l *Ledger) openRowOfPosition(tx *gorm.DB, positionID uuid.UUID) (*models.PeoplePositionModel, error) {
	var row models.PeoplePositionModel
	err := tx.
		Where(`"positionId" = ? AND "endedAt" IS NULL`, positionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewPersistenceError(models.TablePeoplePositions, positionID, err)
	}
	return &row, nil
}

// matchRow builds the WHERE clause identifying one ledger row by its column
// triple, handling the nullable sides.
func matchRow(tx *gorm.DB, row *models.PeoplePositionModel) *gorm.DB {
	q := tx.Model(&models.PeoplePositionModel{}).
		Where(`"createdAt" = ?`, row.CreatedAt)
	if row.PersonID == nil {
		q = q.Where(`"personId" IS NULL`)
	} else {
		q = q.Where(`"personId" = ?`, *row.PersonID)
	}
	if row.PositionID == nil {
		q = q.Where(`"positionId" IS NULL`)
	} else {
		q = q.Where(`"positionId" = ?`, *row.PositionID)
	}
	return q
}
