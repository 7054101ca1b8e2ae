package models

import (
	"time"

	"github.com/google/uuid"
)

// PersonModel is the persistence model for a person. A person holds at most
// one position at a time; the pairing itself lives in peoplePositions.
type PersonModel struct {
	BaseModel
	Name          string     `gorm:"column:name;type:varchar(255);index" json:"name"`
	Status        int        `gorm:"column:status" json:"status"`
	Role          int        `gorm:"column:role;not null" json:"role"`
	Rank          string     `gorm:"column:rank;type:varchar(255)" json:"rank,omitempty"`
	EmailAddress  string     `gorm:"column:emailAddress;type:varchar(255)" json:"emailAddress,omitempty"`
	PhoneNumber   string     `gorm:"column:phoneNumber;type:varchar(100)" json:"phoneNumber,omitempty"`
	Biography     string     `gorm:"column:biography;type:text" json:"biography,omitempty"`
	Country       string     `gorm:"column:country;type:varchar(500)" json:"country,omitempty"`
	Gender        string     `gorm:"column:gender;type:varchar(64)" json:"gender,omitempty"`
	Code          string     `gorm:"column:code;type:varchar(100)" json:"code,omitempty"`
	EndOfTourDate *time.Time `gorm:"column:endOfTourDate" json:"endOfTourDate,omitempty"`
}

// TableName returns the table name for GORM
func (PersonModel) TableName() string {
	return TablePeople
}

// PositionModel is the persistence model for a position. currentPersonId
// mirrors the single open pairing in peoplePositions and is maintained by the
// reconcile package, never written directly by callers.
type PositionModel struct {
	BaseModel
	Name            string     `gorm:"column:name;type:varchar(512);not null;index" json:"name"`
	Code            string     `gorm:"column:code;type:varchar(100)" json:"code,omitempty"`
	Type            int        `gorm:"column:type;not null" json:"type"`
	Status          int        `gorm:"column:status;not null" json:"status"`
	CurrentPersonID *uuid.UUID `gorm:"column:currentPersonId;type:uuid" json:"currentPersonId,omitempty"`
	LocationID      *uuid.UUID `gorm:"column:locationId;type:uuid;index" json:"locationId,omitempty"`
	OrganizationID  *uuid.UUID `gorm:"column:organizationId;type:uuid;index" json:"organizationId,omitempty"`

	Person       *PersonModel       `gorm:"-" json:"person,omitempty"`
	Location     *LocationModel     `gorm:"-" json:"location,omitempty"`
	Organization *OrganizationModel `gorm:"-" json:"organization,omitempty"`
}

// TableName returns the table name for GORM
func (PositionModel) TableName() string {
	return TablePositions
}

// LocationModel is the persistence model for a location.
type LocationModel struct {
	BaseModel
	Name   string   `gorm:"column:name;type:varchar(500);not null;index" json:"name"`
	Lat    *float64 `gorm:"column:lat" json:"lat,omitempty"`
	Lng    *float64 `gorm:"column:lng" json:"lng,omitempty"`
	Status int      `gorm:"column:status;not null" json:"status"`
}

// TableName returns the table name for GORM
func (LocationModel) TableName() string {
	return TableLocations
}

// OrganizationModel is the persistence model for an organization. The parent
// self-reference is reconciled like any other relation.
type OrganizationModel struct {
	BaseModel
	ShortName          string     `gorm:"column:shortName;type:varchar(255);index" json:"shortName"`
	LongName           string     `gorm:"column:longName;type:text" json:"longName,omitempty"`
	IdentificationCode string     `gorm:"column:identificationCode;type:varchar(100)" json:"identificationCode,omitempty"`
	Type               int        `gorm:"column:type;not null" json:"type"`
	Status             int        `gorm:"column:status;not null" json:"status"`
	ParentOrgID        *uuid.UUID `gorm:"column:parentOrgId;type:uuid;index" json:"parentOrgId,omitempty"`

	Parent *OrganizationModel `gorm:"-" json:"parent,omitempty"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return TableOrganizations
}

// ReportModel is the persistence model for an engagement report. Attendees
// are carried on People and written to reportPeople by the reconcile package.
type ReportModel struct {
	BaseModel
	Intent         string     `gorm:"column:intent;type:text" json:"intent"`
	ReportText     string     `gorm:"column:reportText;type:text" json:"reportText,omitempty"`
	KeyOutcomes    string     `gorm:"column:keyOutcomes;type:text" json:"keyOutcomes,omitempty"`
	NextSteps      string     `gorm:"column:nextSteps;type:text" json:"nextSteps,omitempty"`
	State          int        `gorm:"column:state;not null" json:"state"`
	EngagementDate *time.Time `gorm:"column:engagementDate" json:"engagementDate,omitempty"`
	LocationID     *uuid.UUID `gorm:"column:locationId;type:uuid;index" json:"locationId,omitempty"`
	OrganizationID *uuid.UUID `gorm:"column:organizationId;type:uuid;index" json:"organizationId,omitempty"`

	Location     *LocationModel      `gorm:"-" json:"location,omitempty"`
	Organization *OrganizationModel  `gorm:"-" json:"organization,omitempty"`
	People       []ReportPersonModel `gorm:"-" json:"people,omitempty"`
}

// TableName returns the table name for GORM
func (ReportModel) TableName() string {
	return TableReports
}
