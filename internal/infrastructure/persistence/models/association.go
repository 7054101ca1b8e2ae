package models

import (
	"time"

	"github.com/google/uuid"
)

// PeoplePositionModel is one timestamped fact in the person/position
// assignment history. A row with endedAt = NULL is open; a row with only one
// side populated is a placeholder ("this side currently has no partner").
// Rows are only ever inserted or closed, never deleted or rewritten, so every
// historical instant has a complete queryable assignment state.
//
// The table has no surrogate key; the (createdAt, personId, positionId)
// triple identifies a transition. All writes go through explicit WHERE
// clauses rather than GORM primary-key helpers because both id columns are
// nullable.
type PeoplePositionModel struct {
	CreatedAt  time.Time  `gorm:"column:createdAt;index" json:"createdAt"`
	PersonID   *uuid.UUID `gorm:"column:personId;type:uuid;index" json:"personId,omitempty"`
	PositionID *uuid.UUID `gorm:"column:positionId;type:uuid;index" json:"positionId,omitempty"`
	EndedAt    *time.Time `gorm:"column:endedAt" json:"endedAt,omitempty"`
}

// TableName returns the table name for GORM
func (PeoplePositionModel) TableName() string {
	return TablePeoplePositions
}

// Open reports whether the assignment row is still current.
func (m *PeoplePositionModel) Open() bool {
	return m.EndedAt == nil
}

// ReportPersonModel links a person to a report with attendance flags. Two
// attendee records are considered the same when their personId matches,
// regardless of flag values.
type ReportPersonModel struct {
	PersonID   uuid.UUID `gorm:"column:personId;type:uuid;index" json:"personId,omitempty"`
	ReportID   uuid.UUID `gorm:"column:reportId;type:uuid;index" json:"reportId,omitempty"`
	IsPrimary  bool      `gorm:"column:isPrimary;default:false" json:"isPrimary"`
	IsAttendee bool      `gorm:"column:isAttendee;default:true" json:"isAttendee"`
	IsAuthor   bool      `gorm:"column:isAuthor;default:false" json:"isAuthor"`

	Person *PersonModel `gorm:"-" json:"person,omitempty"`
}

// TableName returns the table name for GORM
func (ReportPersonModel) TableName() string {
	return TableReportPeople
}
