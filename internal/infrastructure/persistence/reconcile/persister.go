package reconcile

import (
	"time"

	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// Persister writes a single flat entity. It never touches relation-valued
// fields; those belong to the Reconciler. A foreign-key column is written
// only when the Reconciler resolved a relation for it; a nil FK pointer is
// left out of the update so a scalar-only re-import cannot clear a stored
// reference.
type Persister struct {
	ledger *Ledger
}

// NewPersister creates a persister backed by the given ledger.
func NewPersister(ledger *Ledger) *Persister {
	return &Persister{ledger: ledger}
}

// Persist dispatches to Insert or Update based on the entity's resolved
// status.
func (p *Persister) Persist(tx *gorm.DB, e models.Entity, now time.Time, isUpdate bool) error {
	if isUpdate {
		return p.Update(tx, e, now)
	}
	return p.Insert(tx, e, now)
}

// Insert stamps createdAt = updatedAt = now and writes a new row. A new
// person additionally gets the unassigned placeholder so it has a ledger
// presence from creation.
func (p *Persister) Insert(tx *gorm.DB, e models.Entity, now time.Time) error {
	if !SupportedTable(e.TableName()) {
		return NewUnsupportedTable(e.TableName())
	}
	e.Stamp(now, true)
	if err := tx.Create(e).Error; err != nil {
		return NewPersistenceError(e.TableName(), e.EntityID(), err)
	}
	if e.TableName() == models.TablePeople {
		return p.ledger.OpenUnassignedPerson(tx, now, e.EntityID())
	}
	return nil
}

// Update overwrites the stored row's manifested columns with the in-memory
// entity's values and stamps updatedAt = now. The stored row must exist; a
// zero-row update means the identifier dangles.
func (p *Persister) Update(tx *gorm.DB, e models.Entity, now time.Time) error {
	values, err := columnValues(e)
	if err != nil {
		return err
	}
	stripUnsetForeignKeys(values)
	values["updatedAt"] = now

	res := tx.Table(e.TableName()).
		Where("id = ?", e.EntityID()).
		Updates(values)
	if res.Error != nil {
		return NewPersistenceError(e.TableName(), e.EntityID(), res.Error)
	}
	if res.RowsAffected == 0 {
		return NewDanglingIdentifier(e.TableName(), e.EntityID())
	}
	e.Stamp(now, false)
	return nil
}
