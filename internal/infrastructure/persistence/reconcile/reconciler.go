package reconcile

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// Reconciler resolves identity and relations for one user-supplied entity
// (and its nested relations) into consistent persisted state.
//
// All insert-vs-update decisions for the entity and its direct relations are
// resolved into an immutable decision record before any row is written: case
// selection in the position/person matrix depends on the pre-mutation state
// of every participant, so mutating early would corrupt the later lookups.
type Reconciler struct {
	resolver  *Resolver
	persister *Persister
	ledger    *Ledger
	log       *zap.Logger
}

// NewReconciler wires a reconciler over the given rule set.
func NewReconciler(rules *RuleSet, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	ledger := NewLedger(log)
	return &Reconciler{
		resolver:  NewResolver(rules, log),
		persister: NewPersister(ledger),
		ledger:    ledger,
		log:       log,
	}
}

// relation captures one pre-mutation resolution outcome.
type relation struct {
	attached bool
	isUpdate bool
}

// Reconcile processes one entity and its subtree within tx. Any failure
// leaves the caller responsible for rolling the transaction back; no partial
// association changes are meant to survive.
func (r *Reconciler) Reconcile(tx *gorm.DB, e models.Entity, now time.Time) error {
	switch v := e.(type) {
	case *models.PositionModel:
		return r.reconcilePosition(tx, v, now)
	case *models.ReportModel:
		return r.reconcileReport(tx, v, now)
	case *models.OrganizationModel:
		return r.reconcileOrganization(tx, v, now)
	case *models.PersonModel, *models.LocationModel:
		return r.reconcileSingle(tx, e, now)
	default:
		return NewUnsupportedTable(e.TableName())
	}
}

// reconcileSingle handles a flat entity with no relations attached.
func (r *Reconciler) reconcileSingle(tx *gorm.DB, e models.Entity, now time.Time) error {
	isUpdate, err := r.resolver.Resolve(tx, e)
	if err != nil {
		return err
	}
	return r.persister.Persist(tx, e, now, isUpdate)
}

// reconcileOrganization handles an organization with an optional parent
// relation, a one-directional substitution.
func (r *Reconciler) reconcileOrganization(tx *gorm.DB, org *models.OrganizationModel, now time.Time) error {
	selfUpdate, err := r.resolver.Resolve(tx, org)
	if err != nil {
		return err
	}
	parent := relation{attached: org.Parent != nil}
	if parent.attached {
		if parent.isUpdate, err = r.resolver.Resolve(tx, org.Parent); err != nil {
			return err
		}
	}

	if parent.attached {
		if err := r.persister.Persist(tx, org.Parent, now, parent.isUpdate); err != nil {
			return err
		}
		parentID := org.Parent.EntityID()
		org.ParentOrgID = &parentID
	}
	return r.persister.Persist(tx, org, now, selfUpdate)
}

// reconcilePosition applies the position/person assignment matrix.
//
// The ledger calls are written uniformly: closing the person's previous
// position, closing the position's previous person and opening the new
// pairing each degrade to no-ops when there is nothing to close or the
// pairing already exists, which collapses the four conflict cases into one
// sequence.
func (r *Reconciler) reconcilePosition(tx *gorm.DB, pos *models.PositionModel, now time.Time) error {
	selfUpdate, err := r.resolver.Resolve(tx, pos)
	if err != nil {
		return err
	}
	person := relation{attached: pos.Person != nil}
	location := relation{attached: pos.Location != nil}
	organization := relation{attached: pos.Organization != nil}
	if person.attached {
		if person.isUpdate, err = r.resolver.Resolve(tx, pos.Person); err != nil {
			return err
		}
	}
	if location.attached {
		if location.isUpdate, err = r.resolver.Resolve(tx, pos.Location); err != nil {
			return err
		}
	}
	if organization.attached {
		if organization.isUpdate, err = r.resolver.Resolve(tx, pos.Organization); err != nil {
			return err
		}
	}

	// Simple substitutions: persist the related record, then carry its
	// identifier on the position's foreign key.
	if location.attached {
		if err := r.persister.Persist(tx, pos.Location, now, location.isUpdate); err != nil {
			return err
		}
		locationID := pos.Location.EntityID()
		pos.LocationID = &locationID
	}
	if organization.attached {
		if err := r.persister.Persist(tx, pos.Organization, now, organization.isUpdate); err != nil {
			return err
		}
		organizationID := pos.Organization.EntityID()
		pos.OrganizationID = &organizationID
	}

	if person.attached {
		if err := r.persister.Persist(tx, pos.Person, now, person.isUpdate); err != nil {
			return err
		}
		personID := pos.Person.EntityID()
		positionID := pos.EntityID()

		// Free the person from a conflicting former position and the
		// position from a conflicting former holder before pairing.
		if err := r.ledger.CloseCurrentPositionOfPerson(tx, now, personID, &positionID); err != nil {
			return err
		}
		if err := r.ledger.CloseCurrentPersonOfPosition(tx, now, positionID, &personID); err != nil {
			return err
		}
		pos.CurrentPersonID = &personID
	}

	if err := r.persister.Persist(tx, pos, now, selfUpdate); err != nil {
		return err
	}

	if person.attached {
		return r.ledger.Pair(tx, now, pos.Person.EntityID(), pos.EntityID())
	}
	return nil
}

// reconcileReport handles the N-to-many attendee list, keyed on the person's
// identifier, plus the optional location/organization substitutions.
func (r *Reconciler) reconcileReport(tx *gorm.DB, rep *models.ReportModel, now time.Time) error {
	for i := range rep.People {
		if rep.People[i].Person == nil {
			return NewInvalidEntity(models.TableReportPeople, "attendee record has no person attached")
		}
	}

	selfUpdate, err := r.resolver.Resolve(tx, rep)
	if err != nil {
		return err
	}
	location := relation{attached: rep.Location != nil}
	organization := relation{attached: rep.Organization != nil}
	if location.attached {
		if location.isUpdate, err = r.resolver.Resolve(tx, rep.Location); err != nil {
			return err
		}
	}
	if organization.attached {
		if organization.isUpdate, err = r.resolver.Resolve(tx, rep.Organization); err != nil {
			return err
		}
	}
	attendeeUpdates := make([]bool, len(rep.People))
	for i := range rep.People {
		if attendeeUpdates[i], err = r.resolver.Resolve(tx, rep.People[i].Person); err != nil {
			return err
		}
	}

	if location.attached {
		if err := r.persister.Persist(tx, rep.Location, now, location.isUpdate); err != nil {
			return err
		}
		locationID := rep.Location.EntityID()
		rep.LocationID = &locationID
	}
	if organization.attached {
		if err := r.persister.Persist(tx, rep.Organization, now, organization.isUpdate); err != nil {
			return err
		}
		organizationID := rep.Organization.EntityID()
		rep.OrganizationID = &organizationID
	}

	if err := r.persister.Persist(tx, rep, now, selfUpdate); err != nil {
		return err
	}

	for i := range rep.People {
		rp := &rep.People[i]
		if err := r.persister.Persist(tx, rp.Person, now, attendeeUpdates[i]); err != nil {
			return err
		}
		rp.PersonID = rp.Person.EntityID()
		rp.ReportID = rep.EntityID()
		if err := r.upsertAttendee(tx, rp); err != nil {
			return err
		}
	}
	return nil
}

// upsertAttendee writes the reportPeople row for one attendee. Equality is
// by personId: an existing row for the pair gets its flags refreshed, a
// missing one is inserted.
func (r *Reconciler) upsertAttendee(tx *gorm.DB, rp *models.ReportPersonModel) error {
	var existing models.ReportPersonModel
	err := tx.
		Where(`"reportId" = ? AND "personId" = ?`, rp.ReportID, rp.PersonID).
		Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.ReportPersonModel{
			PersonID:   rp.PersonID,
			ReportID:   rp.ReportID,
			IsPrimary:  rp.IsPrimary,
			IsAttendee: rp.IsAttendee,
			IsAuthor:   rp.IsAuthor,
		}
		if err := tx.Create(&row).Error; err != nil {
			return NewPersistenceError(models.TableReportPeople, rp.PersonID, err)
		}
		return nil
	case err != nil:
		return NewPersistenceError(models.TableReportPeople, rp.PersonID, err)
	default:
		res := tx.Model(&models.ReportPersonModel{}).
			Where(`"reportId" = ? AND "personId" = ?`, rp.ReportID, rp.PersonID).
			Updates(map[string]any{
				"isPrimary":  rp.IsPrimary,
				"isAttendee": rp.IsAttendee,
				"isAuthor":   rp.IsAuthor,
			})
		if res.Error != nil {
			return NewPersistenceError(models.TableReportPeople, rp.PersonID, res.Error)
		}
		return nil
	}
}
