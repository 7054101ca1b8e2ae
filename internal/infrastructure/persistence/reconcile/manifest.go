package reconcile

import (
	"github.com/google/uuid"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// The update manifests below enumerate, per table, exactly which columns an
// import may overwrite. Identifier and timestamp columns are handled by the
// Resolver and Persister; relationship-valued fields never appear here, they
// belong to the Reconciler.

var supportedTables = map[string]bool{
	models.TablePeople:        true,
	models.TablePositions:     true,
	models.TableLocations:     true,
	models.TableOrganizations: true,
	models.TableReports:       true,
}

// SupportedTable reports whether the import layer has logic for the table.
func SupportedTable(table string) bool {
	return supportedTables[table]
}

// foreign-key columns are excluded from content hashing: they are derived
// during reconciliation, not part of the user-supplied content of a record.
var foreignKeyColumns = map[string]bool{
	"currentPersonId": true,
	"locationId":      true,
	"organizationId":  true,
	"parentOrgId":     true,
}

// stripUnsetForeignKeys removes FK columns whose in-memory value is nil. A
// nil FK pointer means no relation was attached for this import, not a
// request to clear the stored reference, so an update must leave the stored
// column alone.
func stripUnsetForeignKeys(values map[string]any) {
	for col := range foreignKeyColumns {
		v, ok := values[col]
		if !ok {
			continue
		}
		if id, isID := v.(*uuid.UUID); isID && id == nil {
			delete(values, col)
		}
	}
}

// columnValues returns the updatable column/value pairs for an entity,
// following the per-table manifest. An unknown entity type yields an
// UnsupportedTable error before any I/O.
func columnValues(e models.Entity) (map[string]any, error) {
	switch v := e.(type) {
	case *models.PersonModel:
		return map[string]any{
			"name":          v.Name,
			"status":        v.Status,
			"role":          v.Role,
			"rank":          v.Rank,
			"emailAddress":  v.EmailAddress,
			"phoneNumber":   v.PhoneNumber,
			"biography":     v.Biography,
			"country":       v.Country,
			"gender":        v.Gender,
			"code":          v.Code,
			"endOfTourDate": v.EndOfTourDate,
		}, nil
	case *models.PositionModel:
		return map[string]any{
			"name":            v.Name,
			"code":            v.Code,
			"type":            v.Type,
			"status":          v.Status,
			"currentPersonId": v.CurrentPersonID,
			"locationId":      v.LocationID,
			"organizationId":  v.OrganizationID,
		}, nil
	case *models.LocationModel:
		return map[string]any{
			"name":   v.Name,
			"lat":    v.Lat,
			"lng":    v.Lng,
			"status": v.Status,
		}, nil
	case *models.OrganizationModel:
		return map[string]any{
			"shortName":          v.ShortName,
			"longName":           v.LongName,
			"identificationCode": v.IdentificationCode,
			"type":               v.Type,
			"status":             v.Status,
			"parentOrgId":        v.ParentOrgID,
		}, nil
	case *models.ReportModel:
		return map[string]any{
			"intent":         v.Intent,
			"reportText":     v.ReportText,
			"keyOutcomes":    v.KeyOutcomes,
			"nextSteps":      v.NextSteps,
			"state":          v.State,
			"engagementDate": v.EngagementDate,
			"locationId":     v.LocationID,
			"organizationId": v.OrganizationID,
		}, nil
	default:
		return nil, NewUnsupportedTable(e.TableName())
	}
}

// Detach returns a copy of the entity with all relation pointers stripped,
// suitable for reporting batch results after the originals have been mutated
// or rolled back.
func Detach(e models.Entity) models.Entity {
	switch v := e.(type) {
	case *models.PersonModel:
		c := *v
		return &c
	case *models.PositionModel:
		c := *v
		c.Person = nil
		c.Location = nil
		c.Organization = nil
		return &c
	case *models.LocationModel:
		c := *v
		return &c
	case *models.OrganizationModel:
		c := *v
		c.Parent = nil
		return &c
	case *models.ReportModel:
		c := *v
		c.Location = nil
		c.Organization = nil
		if len(v.People) > 0 {
			c.People = make([]models.ReportPersonModel, len(v.People))
			for i, rp := range v.People {
				rp.Person = nil
				c.People[i] = rp
			}
		}
		return &c
	default:
		return e
	}
}
