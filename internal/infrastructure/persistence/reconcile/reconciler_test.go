package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

func TestReconciler_PositionWithNewPersonAndLocation(t *testing.T) {
	db := setupTestDB(t)
	rec := NewReconciler(NewRuleSet(), nil)
	now := time.Now()

	pos := models.PositionModel{
		Name:   "EF 1.1 Advisor C",
		Status: 1,
		Person: &models.PersonModel{
			Name: "ADVISOR, A",
			Role: 1,
		},
		Location: &models.LocationModel{
			Name:   "Wishingwells Park",
			Status: 1,
		},
	}
	require.NoError(t, rec.Reconcile(db, &pos, now))

	var storedPos models.PositionModel
	require.NoError(t, db.Where("name = ?", "EF 1.1 Advisor C").Take(&storedPos).Error)
	var storedPerson models.PersonModel
	require.NoError(t, db.Where("name = ?", "ADVISOR, A").Take(&storedPerson).Error)
	var storedLoc models.LocationModel
	require.NoError(t, db.Where("name = ?", "Wishingwells Park").Take(&storedLoc).Error)

	require.NotNil(t, storedPos.CurrentPersonID)
	assert.Equal(t, storedPerson.ID, *storedPos.CurrentPersonID)
	require.NotNil(t, storedPos.LocationID)
	assert.Equal(t, storedLoc.ID, *storedPos.LocationID)

	// One open pairing row on each side; the unassigned placeholder the
	// person received at creation is closed again within the same run.
	personOpen := openRowsOfPerson(t, db, storedPerson.ID)
	require.Len(t, personOpen, 1)
	require.NotNil(t, personOpen[0].PositionID)
	assert.Equal(t, storedPos.ID, *personOpen[0].PositionID)
	assert.Len(t, openRowsOfPosition(t, db, storedPos.ID), 1)
}

func TestReconciler_PositionAssignmentMatrix(t *testing.T) {
	t.Run("re-import of an existing pairing is idempotent", func(t *testing.T) {
		db := setupTestDB(t)
		personID, positionID := seedPair(t, db, "HOLDER, H", "EF 3.1 Chief", time.Now().Add(-time.Hour))

		rules := NewRuleSet()
		rules.Add(models.TablePositions, "name")
		rules.Add(models.TablePeople, "name")
		rec := NewReconciler(rules, nil)

		pos := models.PositionModel{
			Name:   "EF 3.1 Chief",
			Person: &models.PersonModel{Name: "HOLDER, H", Role: 1},
		}
		require.NoError(t, rec.Reconcile(db, &pos, time.Now()))

		assert.Equal(t, positionID, pos.ID)
		assert.Equal(t, personID, pos.Person.ID)

		var total int64
		require.NoError(t, db.Model(&models.PeoplePositionModel{}).Count(&total).Error)
		assert.EqualValues(t, 1, total)
		assert.Len(t, openPairRows(t, db, personID, positionID), 1)
	})

	t.Run("unassigned person takes a free position", func(t *testing.T) {
		db := setupTestDB(t)
		rules := NewRuleSet()
		rules.Add(models.TablePositions, "name")
		rules.Add(models.TablePeople, "name")
		rec := NewReconciler(rules, nil)

		// Seed the person and position separately, both unpaired.
		earlier := time.Now().Add(-time.Hour)
		require.NoError(t, rec.Reconcile(db, &models.PersonModel{Name: "NEWHIRE, N", Role: 1}, earlier))
		require.NoError(t, rec.Reconcile(db, &models.PositionModel{Name: "EF 4.2 Analyst"}, earlier))

		pos := models.PositionModel{
			Name:   "EF 4.2 Analyst",
			Person: &models.PersonModel{Name: "NEWHIRE, N", Role: 1},
		}
		require.NoError(t, rec.Reconcile(db, &pos, time.Now()))

		personOpen := openRowsOfPerson(t, db, pos.Person.ID)
		require.Len(t, personOpen, 1)
		require.NotNil(t, personOpen[0].PositionID)
		assert.Equal(t, pos.ID, *personOpen[0].PositionID)

		// The earlier unassigned placeholder is closed, not deleted.
		var closed []models.PeoplePositionModel
		err := db.Where(`"personId" = ? AND "endedAt" IS NOT NULL`, pos.Person.ID).Find(&closed).Error
		require.NoError(t, err)
		require.Len(t, closed, 1)
		assert.Nil(t, closed[0].PositionID)
	})

	t.Run("both sides occupied frees both former partners", func(t *testing.T) {
		db := setupTestDB(t)
		earlier := time.Now().Add(-time.Hour)
		person1ID, position2ID := seedPair(t, db, "MOVER, M", "EF 5.1 Old Seat", earlier)
		person2ID, position1ID := seedPair(t, db, "OUSTED, O", "EF 5.2 New Seat", earlier)

		rules := NewRuleSet()
		rules.Add(models.TablePositions, "name")
		rules.Add(models.TablePeople, "name")
		rec := NewReconciler(rules, nil)

		pos := models.PositionModel{
			Name:   "EF 5.2 New Seat",
			Person: &models.PersonModel{Name: "MOVER, M", Role: 1},
		}
		require.NoError(t, rec.Reconcile(db, &pos, time.Now()))
		require.Equal(t, position1ID, pos.ID)
		require.Equal(t, person1ID, pos.Person.ID)

		// New pairing is the only open row on both of its sides.
		pair := openPairRows(t, db, person1ID, position1ID)
		require.Len(t, pair, 1)
		assert.Len(t, openRowsOfPerson(t, db, person1ID), 1)
		assert.Len(t, openRowsOfPosition(t, db, position1ID), 1)

		// Freed position keeps a position-only placeholder and drops its
		// holder reference.
		freedOpen := openRowsOfPosition(t, db, position2ID)
		require.Len(t, freedOpen, 1)
		assert.Nil(t, freedOpen[0].PersonID)
		var freedPos models.PositionModel
		require.NoError(t, db.Where("id = ?", position2ID).Take(&freedPos).Error)
		assert.Nil(t, freedPos.CurrentPersonID)

		// Ousted person keeps a person-only placeholder.
		oustedOpen := openRowsOfPerson(t, db, person2ID)
		require.Len(t, oustedOpen, 1)
		assert.Nil(t, oustedOpen[0].PositionID)
	})

	t.Run("position without person leaves assignments untouched", func(t *testing.T) {
		db := setupTestDB(t)
		personID, positionID := seedPair(t, db, "STAYER, S", "EF 6.1 Liaison", time.Now().Add(-time.Hour))

		loc := models.LocationModel{BaseModel: models.BaseModel{ID: uuid.New()}, Name: "Harbour Office", Status: 1}
		require.NoError(t, db.Create(&loc).Error)
		require.NoError(t, db.Model(&models.PositionModel{}).
			Where("id = ?", positionID).
			Update("locationId", loc.ID).Error)

		rules := NewRuleSet()
		rules.Add(models.TablePositions, "name")
		rec := NewReconciler(rules, nil)

		pos := models.PositionModel{Name: "EF 6.1 Liaison", Code: "EF61L"}
		require.NoError(t, rec.Reconcile(db, &pos, time.Now()))
		require.Equal(t, positionID, pos.ID)

		// A scalar-only re-import must not disturb the holder or the
		// location the stored row already carries.
		var stored models.PositionModel
		require.NoError(t, db.Where("id = ?", positionID).Take(&stored).Error)
		assert.Equal(t, "EF61L", stored.Code)
		require.NotNil(t, stored.CurrentPersonID)
		assert.Equal(t, personID, *stored.CurrentPersonID)
		require.NotNil(t, stored.LocationID)
		assert.Equal(t, loc.ID, *stored.LocationID)
		assert.Len(t, openPairRows(t, db, personID, positionID), 1)
	})
}

func TestReconciler_PersonUpdateKeepsAssignment(t *testing.T) {
	db := setupTestDB(t)
	personID, positionID := seedPair(t, db, "RANKUP, R", "EF 7.1 Advisor", time.Now().Add(-time.Hour))

	rules := NewRuleSet()
	rules.Add(models.TablePeople, "name")
	rec := NewReconciler(rules, nil)

	person := models.PersonModel{Name: "RANKUP, R", Role: 1, Rank: "OF-5"}
	require.NoError(t, rec.Reconcile(db, &person, time.Now()))
	require.Equal(t, personID, person.ID)

	var stored models.PersonModel
	require.NoError(t, db.Where("id = ?", personID).Take(&stored).Error)
	assert.Equal(t, "OF-5", stored.Rank)
	assert.Len(t, openPairRows(t, db, personID, positionID), 1)
}

func TestReconciler_Organization(t *testing.T) {
	db := setupTestDB(t)
	rules := NewRuleSet()
	rules.Add(models.TableOrganizations, "shortName")
	rec := NewReconciler(rules, nil)

	org := models.OrganizationModel{
		ShortName: "EF 1.1",
		Type:      1,
		Parent:    &models.OrganizationModel{ShortName: "EF 1", Type: 1},
	}
	require.NoError(t, rec.Reconcile(db, &org, time.Now()))

	var parent models.OrganizationModel
	require.NoError(t, db.Where(`"shortName" = ?`, "EF 1").Take(&parent).Error)
	var child models.OrganizationModel
	require.NoError(t, db.Where(`"shortName" = ?`, "EF 1.1").Take(&child).Error)
	require.NotNil(t, child.ParentOrgID)
	assert.Equal(t, parent.ID, *child.ParentOrgID)

	// Re-import with the same rule updates both rows in place.
	again := models.OrganizationModel{
		ShortName: "EF 1.1",
		LongName:  "Engagement Force 1.1",
		Type:      1,
		Parent:    &models.OrganizationModel{ShortName: "EF 1", Type: 1},
	}
	require.NoError(t, rec.Reconcile(db, &again, time.Now()))
	assert.Equal(t, child.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.OrganizationModel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestReconciler_Report(t *testing.T) {
	db := setupTestDB(t)
	rules := NewRuleSet()
	rules.Add(models.TablePeople, "name")
	rec := NewReconciler(rules, nil)
	now := time.Now()

	rep := models.ReportModel{
		Intent: "Discuss budget",
		State:  2,
		Location: &models.LocationModel{
			Name:   "St Johns Airport",
			Status: 1,
		},
		People: []models.ReportPersonModel{
			{IsPrimary: true, IsAttendee: true, Person: &models.PersonModel{Name: "PRINCIPAL, P", Role: 1}},
			{IsAttendee: true, IsAuthor: true, Person: &models.PersonModel{Name: "AUTHOR, A", Role: 0}},
		},
	}
	require.NoError(t, rec.Reconcile(db, &rep, now))

	var stored models.ReportModel
	require.NoError(t, db.Where("intent = ?", "Discuss budget").Take(&stored).Error)
	require.NotNil(t, stored.LocationID)

	var attendees []models.ReportPersonModel
	require.NoError(t, db.Where(`"reportId" = ?`, stored.ID).Find(&attendees).Error)
	require.Len(t, attendees, 2)

	t.Run("re-import refreshes attendee flags without duplicating rows", func(t *testing.T) {
		again := models.ReportModel{
			BaseModel: models.BaseModel{ID: stored.ID},
			Intent:    "Discuss budget",
			State:     2,
			People: []models.ReportPersonModel{
				{IsPrimary: false, IsAttendee: false, Person: &models.PersonModel{Name: "PRINCIPAL, P", Role: 1}},
			},
		}
		require.NoError(t, rec.Reconcile(db, &again, now.Add(time.Minute)))

		var rows []models.ReportPersonModel
		require.NoError(t, db.Where(`"reportId" = ?`, stored.ID).Find(&rows).Error)
		assert.Len(t, rows, 2)

		var principal models.PersonModel
		require.NoError(t, db.Where("name = ?", "PRINCIPAL, P").Take(&principal).Error)
		var row models.ReportPersonModel
		require.NoError(t, db.Where(`"reportId" = ? AND "personId" = ?`, stored.ID, principal.ID).Take(&row).Error)
		assert.False(t, row.IsPrimary)
		assert.False(t, row.IsAttendee)
	})

	t.Run("attendee without a person is rejected up front", func(t *testing.T) {
		bad := models.ReportModel{
			Intent: "Broken attendee list",
			People: []models.ReportPersonModel{{IsAttendee: true}},
		}
		err := rec.Reconcile(db, &bad, now)
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeInvalidEntity))

		var count int64
		require.NoError(t, db.Model(&models.ReportModel{}).Where("intent = ?", "Broken attendee list").Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})
}

func TestReconciler_UnsupportedEntity(t *testing.T) {
	db := setupTestDB(t)
	rec := NewReconciler(NewRuleSet(), nil)

	err := rec.Reconcile(db, &models.ImportRunModel{}, time.Now())
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeUnsupportedTable))
}

func TestReconciler_DanglingRelationFailsWholeEntity(t *testing.T) {
	db := setupTestDB(t)
	rec := NewReconciler(NewRuleSet(), nil)

	pos := models.PositionModel{
		Name:   "EF 8.1 Advisor",
		Person: &models.PersonModel{BaseModel: models.BaseModel{ID: uuid.New()}, Name: "GHOST, G"},
	}
	err := rec.Reconcile(db, &pos, time.Now())
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeDanglingIdentifier))

	// Resolution happens before any write, so nothing was stored.
	var count int64
	require.NoError(t, db.Model(&models.PositionModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	err = db.Where("name = ?", "GHOST, G").Take(&models.PersonModel{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
