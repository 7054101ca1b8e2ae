package csvimport

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// Relation columns are expressed with a dotted prefix: a positions file may
// carry "person.name" or "location.name" columns, and any non-empty value
// under a prefix attaches the related record to the row's entity.

// dateLayouts are tried in order when parsing date-valued columns.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// BuildEntities converts parsed rows into entities for the given table.
// Rows with unparseable fields are reported in the error collection and
// excluded from the result; the remaining rows still build.
func BuildEntities(table string, rows []*Row) ([]models.Entity, *ErrorCollection, error) {
	build, ok := rowBuilders[table]
	if !ok {
		return nil, nil, ErrUnsupportedTable
	}

	entities := make([]models.Entity, 0, len(rows))
	errs := NewErrorCollection(0)
	for _, row := range rows {
		before := errs.TotalCount()
		e := build(fieldView{row: row}, errs)
		if errs.TotalCount() > before {
			continue
		}
		entities = append(entities, e)
	}
	return entities, errs, nil
}

// SupportedTable reports whether a row builder exists for the table.
func SupportedTable(table string) bool {
	_, ok := rowBuilders[table]
	return ok
}

type buildFunc func(fieldView, *ErrorCollection) models.Entity

var rowBuilders = map[string]buildFunc{
	models.TablePeople: func(v fieldView, errs *ErrorCollection) models.Entity {
		return buildPerson(v, errs)
	},
	models.TableLocations: func(v fieldView, errs *ErrorCollection) models.Entity {
		return buildLocation(v, errs)
	},
	models.TableOrganizations: func(v fieldView, errs *ErrorCollection) models.Entity {
		return buildOrganization(v, errs)
	},
	models.TablePositions: func(v fieldView, errs *ErrorCollection) models.Entity {
		return buildPosition(v, errs)
	},
	models.TableReports: func(v fieldView, errs *ErrorCollection) models.Entity {
		return buildReport(v, errs)
	},
}

// fieldView reads one row's columns under an optional relation prefix.
type fieldView struct {
	row    *Row
	prefix string
}

func (v fieldView) get(col string) string {
	return v.row.Get(v.prefix + col)
}

func (v fieldView) sub(prefix string) fieldView {
	return fieldView{row: v.row, prefix: v.prefix + prefix + "."}
}

// hasAny reports whether any column under the view's prefix is non-empty.
func (v fieldView) hasAny() bool {
	for col, val := range v.row.Data {
		if strings.HasPrefix(col, v.prefix) && val != "" {
			return true
		}
	}
	return false
}

func (v fieldView) line() int {
	return v.row.LineNumber
}

func (v fieldView) id(errs *ErrorCollection) uuid.UUID {
	raw := v.get("id")
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		errs.AddFormatError(v.line(), v.prefix+"id", "UUID", raw)
		return uuid.Nil
	}
	return id
}

func (v fieldView) intField(col string, errs *ErrorCollection) int {
	raw := v.get(col)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.AddTypeError(v.line(), v.prefix+col, "integer", raw)
		return 0
	}
	return n
}

func (v fieldView) floatField(col string, errs *ErrorCollection) *float64 {
	raw := v.get(col)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errs.AddTypeError(v.line(), v.prefix+col, "number", raw)
		return nil
	}
	return &f
}

func (v fieldView) dateField(col string, errs *ErrorCollection) *time.Time {
	raw := v.get(col)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	errs.AddFormatError(v.line(), v.prefix+col, "RFC 3339 or YYYY-MM-DD date", raw)
	return nil
}

func buildPerson(v fieldView, errs *ErrorCollection) *models.PersonModel {
	return &models.PersonModel{
		BaseModel:     models.BaseModel{ID: v.id(errs)},
		Name:          v.get("name"),
		Status:        v.intField("status", errs),
		Role:          v.intField("role", errs),
		Rank:          v.get("rank"),
		EmailAddress:  v.get("emailAddress"),
		PhoneNumber:   v.get("phoneNumber"),
		Biography:     v.get("biography"),
		Country:       v.get("country"),
		Gender:        v.get("gender"),
		Code:          v.get("code"),
		EndOfTourDate: v.dateField("endOfTourDate", errs),
	}
}

func buildLocation(v fieldView, errs *ErrorCollection) *models.LocationModel {
	return &models.LocationModel{
		BaseModel: models.BaseModel{ID: v.id(errs)},
		Name:      v.get("name"),
		Lat:       v.floatField("lat", errs),
		Lng:       v.floatField("lng", errs),
		Status:    v.intField("status", errs),
	}
}

func buildOrganization(v fieldView, errs *ErrorCollection) *models.OrganizationModel {
	org := &models.OrganizationModel{
		BaseModel:          models.BaseModel{ID: v.id(errs)},
		ShortName:          v.get("shortName"),
		LongName:           v.get("longName"),
		IdentificationCode: v.get("identificationCode"),
		Type:               v.intField("type", errs),
		Status:             v.intField("status", errs),
	}
	if parent := v.sub("parent"); parent.hasAny() {
		org.Parent = buildOrganization(parent, errs)
	}
	return org
}

func buildPosition(v fieldView, errs *ErrorCollection) *models.PositionModel {
	pos := &models.PositionModel{
		BaseModel: models.BaseModel{ID: v.id(errs)},
		Name:      v.get("name"),
		Code:      v.get("code"),
		Type:      v.intField("type", errs),
		Status:    v.intField("status", errs),
	}
	if person := v.sub("person"); person.hasAny() {
		pos.Person = buildPerson(person, errs)
	}
	if location := v.sub("location"); location.hasAny() {
		pos.Location = buildLocation(location, errs)
	}
	if organization := v.sub("organization"); organization.hasAny() {
		pos.Organization = buildOrganization(organization, errs)
	}
	return pos
}

func buildReport(v fieldView, errs *ErrorCollection) *models.ReportModel {
	rep := &models.ReportModel{
		BaseModel:      models.BaseModel{ID: v.id(errs)},
		Intent:         v.get("intent"),
		ReportText:     v.get("reportText"),
		KeyOutcomes:    v.get("keyOutcomes"),
		NextSteps:      v.get("nextSteps"),
		State:          v.intField("state", errs),
		EngagementDate: v.dateField("engagementDate", errs),
	}
	if location := v.sub("location"); location.hasAny() {
		rep.Location = buildLocation(location, errs)
	}
	if organization := v.sub("organization"); organization.hasAny() {
		rep.Organization = buildOrganization(organization, errs)
	}
	return rep
}
