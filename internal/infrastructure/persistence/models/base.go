package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides the common persistence fields shared by every importable
// entity. Timestamps are stamped explicitly by the reconcile package with a
// single per-reconciliation instant, so GORM's automatic time tracking is
// disabled.
type BaseModel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id,omitempty"`
	CreatedAt time.Time `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt,omitempty"`
	UpdatedAt time.Time `gorm:"column:updatedAt;autoUpdateTime:false" json:"updatedAt,omitempty"`
}

// EntityID returns the entity's identifier; uuid.Nil means "not yet resolved".
func (m *BaseModel) EntityID() uuid.UUID {
	return m.ID
}

// SetEntityID assigns the entity's identifier.
func (m *BaseModel) SetEntityID(id uuid.UUID) {
	m.ID = id
}

// Stamp applies the reconciliation timestamp. On insert both createdAt and
// updatedAt are set; on update only updatedAt moves.
func (m *BaseModel) Stamp(now time.Time, isNew bool) {
	if isNew {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Entity is implemented by every importable model. It is the surface the
// reconcile package works against: table identity, identifier access and
// timestamp stamping.
type Entity interface {
	TableName() string
	EntityID() uuid.UUID
	SetEntityID(id uuid.UUID)
	Stamp(now time.Time, isNew bool)
}

// Table names of the consumed schema.
const (
	TablePeople          = "people"
	TablePositions       = "positions"
	TableLocations       = "locations"
	TableOrganizations   = "organizations"
	TableReports         = "reports"
	TablePeoplePositions = "peoplePositions"
	TableReportPeople    = "reportPeople"
	TableImportRuns      = "importRuns"
)
